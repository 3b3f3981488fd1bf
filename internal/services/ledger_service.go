package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
)

const (
	categoriesCacheKey   = "categories"
	defaultStoreTimeout  = 5 * time.Second
	balanceFanOutLimit   = 4
	categoriesCacheTTL   = 10 * time.Minute
	categoriesCacheItems = 1
)

// EventPublisher announces admitted and deleted movements.
type EventPublisher interface {
	PublishMovementEvent(ctx context.Context, event *amqp.MovementEvent) error
}

// LedgerService orchestrates ledger operations over the store, publishing
// movement events when a publisher is configured.
type LedgerService struct {
	store      core.LedgerStore
	validator  *MovementValidator
	calculator *BalanceCalculator
	publisher  EventPublisher
	events     *eventDispatcher
	categories *cache.LRUCache[[]core.Category]
	timeout    time.Duration

	eventTimeout time.Duration

	// categoriesGen changes on every category write; a list read while it
	// changed is not cached.
	categoriesMu  sync.Mutex
	categoriesGen uint64
}

type Option func(*LedgerService)

// WithPublisher sets the movement event publisher. A nil publisher disables events.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithEventTimeout bounds each background publish of a movement event.
func WithEventTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.eventTimeout = d
		}
	}
}

// WithStoreTimeout bounds every store round trip made by the service.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewLedgerService(store core.LedgerStore, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      store,
		validator:  NewMovementValidator(store),
		calculator: NewBalanceCalculator(store),
		categories: cache.NewLRUCache[[]core.Category](categoriesCacheItems, categoriesCacheTTL),
		timeout:    defaultStoreTimeout,

		eventTimeout: defaultEventTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil {
		s.events = newEventDispatcher(s.publisher, s.eventTimeout)
	}
	return s
}

// Close flushes pending movement events, waiting at most until ctx expires.
func (s *LedgerService) Close(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	return s.events.close(ctx)
}

// CategoryCache exposes the category cache for cleanup and metrics.
func (s *LedgerService) CategoryCache() *cache.LRUCache[[]core.Category] {
	return s.categories
}

func (s *LedgerService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CreateClient stores a client and opens its first account.
func (s *LedgerService) CreateClient(ctx context.Context, name string) (core.Client, core.Account, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Client{}, core.Account{}, core.NewSchemaError("name", err.Error())
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	client, account, err := s.store.CreateClientWithAccount(ctx, name)
	if err != nil {
		return core.Client{}, core.Account{}, fmt.Errorf("create client: %w", err)
	}
	return client, account, nil
}

func (s *LedgerService) ListClients(ctx context.Context) ([]core.Client, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.store.ListClients(ctx)
}

// GetClient returns the client with its accounts and category assignments.
func (s *LedgerService) GetClient(ctx context.Context, id int64) (core.ClientDetail, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	client, err := s.lookupClient(ctx, id, "")
	if err != nil {
		return core.ClientDetail{}, err
	}
	accounts, err := s.store.ListAccountsByClient(ctx, id)
	if err != nil {
		return core.ClientDetail{}, err
	}
	categories, err := s.store.ListClientCategories(ctx, id)
	if err != nil {
		return core.ClientDetail{}, err
	}
	return core.ClientDetail{Client: client, Accounts: accounts, Categories: categories}, nil
}

func (s *LedgerService) RenameClient(ctx context.Context, id int64, name string) (core.Client, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Client{}, core.NewSchemaError("name", err.Error())
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	client, err := s.store.UpdateClientName(ctx, id, name)
	if errors.Is(err, core.ErrNotFound) {
		return core.Client{}, core.NewReferenceError("client", "", id)
	}
	return client, err
}

// DeleteClient removes the client and everything it owns.
func (s *LedgerService) DeleteClient(ctx context.Context, id int64) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.store.DeleteClient(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewReferenceError("client", "", id)
	}
	if err == nil {
		slog.InfoContext(ctx, "Client deleted", "client_id", id)
	}
	return err
}

// OpenAccount creates an additional account for an existing client.
func (s *LedgerService) OpenAccount(ctx context.Context, clientID int64) (core.Account, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.lookupClient(ctx, clientID, ""); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, clientID)
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.store.DeleteAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewReferenceError("account", "", id)
	}
	return err
}

// ComputeBalance is the balance of one account; unknown accounts have a zero balance.
func (s *LedgerService) ComputeBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.calculator.ComputeBalance(ctx, accountID)
}

// AccountBalance is the balance of an existing account.
func (s *LedgerService) AccountBalance(ctx context.Context, accountID int64) (core.AccountBalance, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.AccountBalance{}, core.NewReferenceError("account", "", accountID)
		}
		return core.AccountBalance{}, err
	}
	balance, err := s.calculator.ComputeBalance(ctx, accountID)
	if err != nil {
		return core.AccountBalance{}, err
	}
	return core.AccountBalance{AccountID: accountID, Balance: balance}, nil
}

// ClientBalances returns the balance of every account of the client. A client
// without accounts yields an empty list.
func (s *LedgerService) ClientBalances(ctx context.Context, clientID int64) (core.ClientBalance, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	client, err := s.lookupClient(ctx, clientID, "")
	if err != nil {
		return core.ClientBalance{}, err
	}
	accounts, err := s.store.ListAccountsByClient(ctx, clientID)
	if err != nil {
		return core.ClientBalance{}, err
	}

	balances := make([]core.AccountBalance, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceFanOutLimit)
	for i, a := range accounts {
		g.Go(func() error {
			balance, err := s.calculator.ComputeBalance(gctx, a.ID)
			if err != nil {
				return err
			}
			balances[i] = core.AccountBalance{AccountID: a.ID, Balance: balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.ClientBalance{}, fmt.Errorf("client %d balances: %w", clientID, err)
	}

	return core.ClientBalance{Client: client, Accounts: balances}, nil
}

// CreateMovement admits a movement through the validator and announces it.
func (s *LedgerService) CreateMovement(ctx context.Context, accountID int64, t core.MovementType, amount decimal.Decimal) (core.Movement, error) {
	sctx, cancel := s.bounded(ctx)
	defer cancel()

	m, err := s.validator.ValidateAndAdmit(sctx, accountID, t, amount)
	if err != nil {
		return core.Movement{}, err
	}

	s.publish(ctx, amqp.EventMovementCreated, m)
	return m, nil
}

func (s *LedgerService) GetMovement(ctx context.Context, id int64) (core.Movement, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	m, err := s.store.GetMovement(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Movement{}, core.NewReferenceError("movement", "", id)
	}
	return m, err
}

// DeleteMovement removes a movement. Deleting an absent movement is a
// ReferenceError, so a repeated delete never succeeds twice.
func (s *LedgerService) DeleteMovement(ctx context.Context, id int64) error {
	sctx, cancel := s.bounded(ctx)
	defer cancel()

	m, err := s.store.DeleteMovement(sctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewReferenceError("movement", "", id)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, amqp.EventMovementDeleted, m)
	return nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, core.NewSchemaError("name", err.Error())
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidateCategories()
	return c, nil
}

// ListCategories serves the category list from cache when possible.
func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	if items, ok := s.categories.Get(categoriesCacheKey); ok {
		slog.DebugContext(ctx, "Categories cache hit", "count", len(items))
		result := make([]core.Category, len(items))
		copy(result, items)
		return result, nil
	}

	s.categoriesMu.Lock()
	gen := s.categoriesGen
	s.categoriesMu.Unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	items, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	s.categoriesMu.Lock()
	if gen == s.categoriesGen {
		s.categories.Set(categoriesCacheKey, items)
	}
	s.categoriesMu.Unlock()
	return items, nil
}

func (s *LedgerService) invalidateCategories() {
	s.categoriesMu.Lock()
	s.categoriesGen++
	s.categories.Purge()
	s.categoriesMu.Unlock()
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.store.DeleteCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewReferenceError("category", "", id)
	}
	if err == nil {
		s.invalidateCategories()
	}
	return err
}

// AssignCategory tags a client with a category. A missing side is reported
// as a ReferenceError naming the request field that carried it.
func (s *LedgerService) AssignCategory(ctx context.Context, clientID, categoryID int64) (core.CategoryClient, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := s.lookupClient(ctx, clientID, "client"); err != nil {
		return core.CategoryClient{}, err
	}

	cc, err := s.store.AssignCategory(ctx, clientID, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.CategoryClient{}, core.NewReferenceError("category", "category", categoryID)
	}
	return cc, err
}

func (s *LedgerService) lookupClient(ctx context.Context, id int64, field string) (core.Client, error) {
	client, err := s.store.GetClient(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Client{}, core.NewReferenceError("client", field, id)
	}
	return client, err
}

// publish is best effort: the movement is already stored and the event
// leaves from the background dispatcher.
func (s *LedgerService) publish(ctx context.Context, event string, m core.Movement) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping movement event", "event", event)
		return
	}
	s.events.enqueue(ctx, amqp.NewMovementEvent(event, m))
}
