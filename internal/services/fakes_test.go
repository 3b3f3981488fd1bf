package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// memMovementStore is an in-memory core.TxMovementStore. WithinTx stages
// writes and only applies them when fn succeeds.
type memMovementStore struct {
	mu        sync.Mutex
	accounts  map[int64]bool
	movements []core.Movement
	nextID    int64
	listErr   error
}

func newMemMovementStore(accounts ...int64) *memMovementStore {
	s := &memMovementStore{accounts: make(map[int64]bool)}
	for _, id := range accounts {
		s.accounts[id] = true
	}
	return s
}

func (s *memMovementStore) ListMovementsByAccount(_ context.Context, accountID int64) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []core.Movement
	for _, m := range s.movements {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMovementStore) AccountExists(_ context.Context, accountID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID], nil
}

func (s *memMovementStore) CreateMovement(_ context.Context, accountID int64, t core.MovementType, amount decimal.Decimal) (core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := core.Movement{ID: s.nextID, AccountID: accountID, Type: t, Amount: amount, CreatedAt: time.Now()}
	s.movements = append(s.movements, m)
	return m, nil
}

func (s *memMovementStore) WithinTx(ctx context.Context, fn func(core.MovementStore) error) error {
	s.mu.Lock()
	snapshot := append([]core.Movement(nil), s.movements...)
	nextID := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.movements = snapshot
		s.nextID = nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memMovementStore) add(accountID int64, t core.MovementType, amount string) {
	s.CreateMovement(context.Background(), accountID, t, decimal.RequireFromString(amount))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.MovementEvent
	err    error
}

func (p *recordingPublisher) PublishMovementEvent(_ context.Context, event *amqp.MovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []*amqp.MovementEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.MovementEvent(nil), p.events...)
}

// blockingPublisher holds every publish until release is closed or the
// publish context expires.
type blockingPublisher struct {
	release   chan struct{}
	started   chan struct{}
	delivered atomic.Int32
	timedOut  atomic.Int32
}

func (p *blockingPublisher) PublishMovementEvent(ctx context.Context, _ *amqp.MovementEvent) error {
	select {
	case p.started <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		p.delivered.Add(1)
		return nil
	case <-ctx.Done():
		p.timedOut.Add(1)
		return ctx.Err()
	}
}

// hookedStore runs afterList once the wrapped store has listed categories.
type hookedStore struct {
	core.LedgerStore
	afterList func()
}

func (s *hookedStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	items, err := s.LedgerStore.ListCategories(ctx)
	if s.afterList != nil {
		s.afterList()
	}
	return items, err
}
