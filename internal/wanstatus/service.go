package wanstatus

import (
	"context"
	"sync"
	"time"

	"openwan/internal/logs"
	"openwan/internal/models"
)

// SinceLayout — формат "since"/"createdAt" в журнале и в ответах API.
const SinceLayout = "02/01/2006, 15:04:05"

// Observation — одно наблюдение состояния линка (вход детектора).
// Само по себе не персистится: в журнал попадают только переходы.
type Observation struct {
	Identity string
	Comment  string
	Status   string
	Since    time.Time
}

// Notifier — контракт диспетчера уведомлений. Вызывается best-effort:
// его ошибки не влияют на уже записанный журнал.
type Notifier interface {
	NotifyTransition(ctx context.Context, identity, comment, status, since string)
}

// Store — контракт хранилища журнала (реализация — *Repo).
type Store interface {
	Latest(identity, comment string) (models.WanStatusRecord, bool, error)
	Create(rec *models.WanStatusRecord) error
	List() ([]models.WanStatusRecord, error)
}

// Service — детектор переходов WAN-статуса.
//
// Состояние на ключ (identity, comment) — строка статуса; "предыдущее"
// состояние определяется операционно: последняя запись журнала по ключу.
// Обработка наблюдений одного ключа сериализуется per-key мьютексом,
// иначе два одновременных наблюдения могут оба прочитать старый статус
// и записать дубль перехода.
type Service struct {
	store    Store
	notifier Notifier

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewService(store Store, n Notifier) *Service {
	return &Service{store: store, notifier: n, keys: make(map[string]*sync.Mutex)}
}

func (s *Service) keyLock(identity, comment string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := identity + "\x00" + comment
	m, ok := s.keys[k]
	if !ok {
		m = &sync.Mutex{}
		s.keys[k] = m
	}
	return m
}

// Record сравнивает наблюдение с последней записью журнала по ключу.
// Статус не изменился — no-op (ни записи, ни письма). Первое наблюдение
// по ключу или смена статуса — переход: пишем запись и шлём уведомление.
// Ошибка персистенции возвращается вызывающему; уведомление — нет.
func (s *Service) Record(ctx context.Context, o Observation) (*models.WanStatusRecord, error) {
	lock := s.keyLock(o.Identity, o.Comment)
	lock.Lock()
	defer lock.Unlock()

	last, found, err := s.store.Latest(o.Identity, o.Comment)
	if err != nil {
		return nil, err
	}
	if found && last.Status == o.Status {
		return nil, nil // не переход: подавляем шум повторных опросов
	}

	rec := &models.WanStatusRecord{
		Identity: o.Identity,
		Comment:  o.Comment,
		Status:   o.Status,
		Since:    o.Since.Format(SinceLayout),
	}
	if err := s.store.Create(rec); err != nil {
		return nil, err
	}

	logs.Logger.WithFields(map[string]interface{}{
		"identity": o.Identity,
		"comment":  o.Comment,
		"status":   o.Status,
	}).Info("wan status transition")

	if s.notifier != nil {
		s.notifier.NotifyTransition(ctx, o.Identity, o.Comment, o.Status, rec.Since)
	}
	return rec, nil
}

// List — журнал для GET /wanstatus.
func (s *Service) List() ([]models.WanStatusRecord, error) {
	return s.store.List()
}
