package notify

import (
	"context"
	"fmt"
	"strings"

	"openwan/internal/logs"
	"openwan/internal/models"

	"gopkg.in/gomail.v2"
)

// Sender — транспорт письма. Единственная реализация — SMTP (gomail);
// тесты подставляют запоминающий фейк.
type Sender interface {
	Send(recipients []string, subject, html string) error
}

// SMTPConfig — реквизиты исходящего SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct{ cfg SMTPConfig }

func NewSMTPSender(cfg SMTPConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(recipients []string, subject, html string) error {
	m := gomail.NewMessage()
	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}
	m.SetHeader("From", from)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}

// DeviceLookup — доступ к таблице устройств (identity → Device).
type DeviceLookup interface {
	FindByDeviceID(deviceID string) (models.Device, bool, error)
}

// Dispatcher шлёт алерт о переходе WAN-статуса получателям устройства.
// Всё строго best-effort: журнал — источник истины, письмо — любезность.
// Ни одна ошибка отсюда не доходит до записавшего переход.
type Dispatcher struct {
	devices DeviceLookup
	sender  Sender
}

func NewDispatcher(devices DeviceLookup, sender Sender) *Dispatcher {
	return &Dispatcher{devices: devices, sender: sender}
}

const (
	upImageURL   = "https://img.icons8.com/color/48/ok--v1.png"
	downImageURL = "https://img.icons8.com/color/48/cancel--v1.png"
)

// NotifyTransition: находит устройство по identity, разворачивает список
// получателей и отправляет письмо. Устройство могли удалить между
// наблюдением и отправкой — тогда warning и выход (запись в журнале
// уже есть, её это не касается).
func (d *Dispatcher) NotifyTransition(_ context.Context, identity, comment, status, since string) {
	dev, found, err := d.devices.FindByDeviceID(identity)
	if err != nil {
		logs.Logger.Warnf("notify %s/%s: device lookup: %v", identity, comment, err)
		return
	}
	if !found {
		logs.Logger.Warnf("notify %s/%s: device not found, skipping notification", identity, comment)
		return
	}

	recipients := []string(dev.EmailID)
	if len(recipients) == 0 {
		logs.Logger.Warnf("notify %s/%s: no recipients configured", identity, comment)
		return
	}

	subject := fmt.Sprintf("%s Gateway's %s is %s", identity, comment, status)
	html := composeAlertHTML(identity, comment, status, since)

	if err := d.sender.Send(recipients, subject, html); err != nil {
		logs.Logger.Errorf("notify %s/%s: send to %d recipient(s): %v", identity, comment, len(recipients), err)
		return
	}
	logs.Logger.Infof("notify %s/%s: alert sent to %d recipient(s)", identity, comment, len(recipients))
}

func composeAlertHTML(identity, comment, status, since string) string {
	img := downImageURL
	if strings.EqualFold(status, "up") {
		img = upImageURL
	}
	return fmt.Sprintf(`<div style="font-family:sans-serif">
  <h2>%s</h2>
  <p><img src="%s" alt="%s" width="24" height="24" style="vertical-align:middle"/>
     Link <b>%s</b> is <b>%s</b> since %s.</p>
</div>`, identity, img, status, comment, status, since)
}
