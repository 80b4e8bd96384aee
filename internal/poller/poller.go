package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"openwan/internal/gateway"
	"openwan/internal/logs"
	"openwan/internal/models"
	"openwan/internal/wanstatus"
)

// DeviceSource — список устройств для опроса (реализация — *devices.Store).
type DeviceSource interface {
	List() ([]models.Device, error)
}

// Recorder — приёмник наблюдений (реализация — *wanstatus.Service).
type Recorder interface {
	Record(ctx context.Context, o wanstatus.Observation) (*models.WanStatusRecord, error)
}

// Poller — внутрипроцессный polling driver: по тикеру опрашивает netwatch
// каждого устройства и скармливает состояния детектору. Альтернатива
// внешнему пушу в POST /wanstatus; включается конфигом.
//
// Устройства одного цикла опрашиваются параллельно, но каждый ключ
// (identity, WANn) в цикле трогает ровно одна горутина — порядок
// наблюдений per-key сохраняется. Затянувшийся цикл пропускает тики,
// циклы не накладываются.
type Poller struct {
	devices  DeviceSource
	gw       *gateway.Client
	recorder Recorder
	interval time.Duration

	running sync.Mutex // защита от наложения циклов
}

func New(devices DeviceSource, gw *gateway.Client, rec Recorder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{devices: devices, gw: gw, recorder: rec, interval: interval}
}

// Start блокирует до отмены контекста; запускать в отдельной горутине.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logs.Logger.Infof("poller: started, interval %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			logs.Logger.Info("poller: stopped")
			return
		case <-ticker.C:
			if !p.running.TryLock() {
				continue // предыдущий цикл ещё идёт
			}
			p.runCycle(ctx)
			p.running.Unlock()
		}
	}
}

// runCycle опрашивает все устройства текущего списка один раз.
func (p *Poller) runCycle(ctx context.Context) {
	devs, err := p.devices.List()
	if err != nil {
		logs.Logger.Errorf("poller: list devices: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, d := range devs {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pollDevice(ctx, d)
		}()
	}
	wg.Wait()
}

func (p *Poller) pollDevice(ctx context.Context, d models.Device) {
	t := gateway.Target{
		IP:       d.DeviceIP,
		Port:     d.DevicePort,
		Username: d.DeviceUsername,
		Password: d.DevicePassword,
	}

	total := d.PortCount
	if total < 1 || total > 4 {
		total = 4
	}
	labels := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		labels = append(labels, fmt.Sprintf("WAN%d", i))
	}

	hosts, err := p.gw.FetchNetwatch(ctx, t)
	if err != nil {
		// устройство недоступно — пропускаем цикл, без ретраев
		logs.Logger.Warnf("poller: %s: %v", d.DeviceID, err)
		return
	}

	now := time.Now()
	for _, label := range labels {
		for _, h := range hosts {
			if h.Comment != label || h.Status == "" {
				continue
			}
			since := now
			if ts, perr := time.Parse("2006-01-02 15:04:05", h.Since); perr == nil {
				since = ts
			}
			if _, err := p.recorder.Record(ctx, wanstatus.Observation{
				Identity: d.DeviceID,
				Comment:  label,
				Status:   h.Status,
				Since:    since,
			}); err != nil {
				logs.Logger.Errorf("poller: %s/%s: record: %v", d.DeviceID, label, err)
			}
			break
		}
	}
}
