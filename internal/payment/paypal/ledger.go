package paypal

import (
	"context"
	"sync"
	"time"

	"github.com/rajivgeraev/bonplan-api/internal/payment"
)

// CaptureLedger хранит блокировки и результаты списаний по заказам.
// В проде реализуется через Redis (cache.RedisCache).
type CaptureLedger interface {
	// LoadCapture возвращает сохранённый результат списания или nil, если его нет
	LoadCapture(ctx context.Context, orderID string) (*payment.Confirmation, error)
	SaveCapture(ctx context.Context, orderID string, conf payment.Confirmation, ttl time.Duration) error
	AcquireCaptureLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseCaptureLock(ctx context.Context, orderID string) error
}

type ledgerEntry struct {
	conf      payment.Confirmation
	expiresAt time.Time
}

// MemoryLedger журнал списаний в памяти процесса. Подходит только для одного экземпляра API.
type MemoryLedger struct {
	mu      sync.Mutex
	now     func() time.Time
	results map[string]ledgerEntry
	locks   map[string]time.Time
}

var _ CaptureLedger = (*MemoryLedger)(nil)

// NewMemoryLedger создает журнал в памяти
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		now:     time.Now,
		results: make(map[string]ledgerEntry),
		locks:   make(map[string]time.Time),
	}
}

func (l *MemoryLedger) LoadCapture(_ context.Context, orderID string) (*payment.Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.results[orderID]
	if !ok {
		return nil, nil
	}
	if !l.now().Before(e.expiresAt) {
		delete(l.results, orderID)
		return nil, nil
	}
	conf := e.conf
	return &conf, nil
}

func (l *MemoryLedger) SaveCapture(_ context.Context, orderID string, conf payment.Confirmation, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results[orderID] = ledgerEntry{conf: conf, expiresAt: l.now().Add(ttl)}
	return nil
}

func (l *MemoryLedger) AcquireCaptureLock(_ context.Context, orderID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.locks[orderID]; ok && now.Before(until) {
		return false, nil
	}
	l.locks[orderID] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLedger) ReleaseCaptureLock(_ context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, orderID)
	return nil
}
