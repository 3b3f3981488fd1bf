package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// dsn enables foreign keys (needed for cascades), waits on locked writers and
// opens every transaction with BEGIN IMMEDIATE so check-then-insert sequences
// hold the write lock from their first read.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// repository implements the store ports on top of a Queries value. It is
// shared by SQLiteRepository and the transaction scoped txRepository.
type repository struct {
	queries *Queries
}

// SQLiteRepository is the durable ledger store.
type SQLiteRepository struct {
	repository
	db *sql.DB
}

type txRepository struct {
	repository
}

var (
	_ core.LedgerStore   = (*SQLiteRepository)(nil)
	_ core.AuditStore    = (*SQLiteRepository)(nil)
	_ core.MovementStore = txRepository{}
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		repository: repository{queries: New(db)},
		db:         db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database still answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx implements core.TxMovementStore
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(core.MovementStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txRepository{repository{queries: r.queries.WithTx(tx)}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateClientWithAccount stores a client together with its first account.
func (r *SQLiteRepository) CreateClientWithAccount(ctx context.Context, name string) (core.Client, core.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Client{}, core.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	c, err := q.CreateClient(ctx, name)
	if err != nil {
		return core.Client{}, core.Account{}, fmt.Errorf("create client: %w", err)
	}
	accountID, err := q.CreateAccount(ctx, c.ID)
	if err != nil {
		return core.Client{}, core.Account{}, fmt.Errorf("create account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Client{}, core.Account{}, fmt.Errorf("commit transaction: %w", err)
	}

	client := toCoreClient(c)
	slog.InfoContext(ctx, "Client saved to SQLite", "client_id", client.ID, "account_id", accountID)

	return client, core.Account{ID: accountID, Client: client}, nil
}

func (r repository) GetClient(ctx context.Context, id int64) (core.Client, error) {
	c, err := r.queries.GetClient(ctx, id)
	if err != nil {
		return core.Client{}, notFound(err, "get client %d", id)
	}
	return toCoreClient(c), nil
}

func (r repository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.queries.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	clients := make([]core.Client, len(rows))
	for i, c := range rows {
		clients[i] = toCoreClient(c)
	}
	return clients, nil
}

func (r repository) UpdateClientName(ctx context.Context, id int64, name string) (core.Client, error) {
	c, err := r.queries.UpdateClientName(ctx, id, name)
	if err != nil {
		return core.Client{}, notFound(err, "update client %d", id)
	}
	return toCoreClient(c), nil
}

// DeleteClient removes the client; accounts, movements and category
// assignments go with it through the foreign key cascades.
func (r repository) DeleteClient(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteClient(ctx, id)
	if err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete client %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r repository) CreateAccount(ctx context.Context, clientID int64) (core.Account, error) {
	id, err := r.queries.CreateAccount(ctx, clientID)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account for client %d: %w", clientID, err)
	}
	return r.GetAccount(ctx, id)
}

func (r repository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, notFound(err, "get account %d", id)
	}
	return toCoreAccount(a), nil
}

func (r repository) AccountExists(ctx context.Context, id int64) (bool, error) {
	exists, err := r.queries.AccountExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check account %d: %w", id, err)
	}
	return exists, nil
}

func (r repository) ListAccountsByClient(ctx context.Context, clientID int64) ([]core.Account, error) {
	rows, err := r.queries.ListAccountsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list accounts of client %d: %w", clientID, err)
	}
	accounts := make([]core.Account, len(rows))
	for i, a := range rows {
		accounts[i] = toCoreAccount(a)
	}
	return accounts, nil
}

func (r repository) DeleteAccount(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete account %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r repository) CreateMovement(ctx context.Context, accountID int64, t core.MovementType, amount decimal.Decimal) (core.Movement, error) {
	m, err := r.queries.CreateMovement(ctx, CreateMovementParams{
		AccountID:    accountID,
		MovementType: string(t),
		Amount:       amount.String(),
		CreatedAt:    time.Now().UTC().Format(timeLayout),
	})
	if err != nil {
		return core.Movement{}, fmt.Errorf("create movement: %w", err)
	}

	slog.InfoContext(ctx, "Movement saved to SQLite",
		"id", m.ID,
		"account_id", m.AccountID,
		"movement_type", m.MovementType,
		"amount", m.Amount)

	return toCoreMovement(m)
}

func (r repository) GetMovement(ctx context.Context, id int64) (core.Movement, error) {
	m, err := r.queries.GetMovement(ctx, id)
	if err != nil {
		return core.Movement{}, notFound(err, "get movement %d", id)
	}
	return toCoreMovement(m)
}

// ListMovementsByAccount implements core.MovementReader
func (r repository) ListMovementsByAccount(ctx context.Context, accountID int64) ([]core.Movement, error) {
	rows, err := r.queries.ListMovementsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list movements of account %d: %w", accountID, err)
	}
	movements := make([]core.Movement, 0, len(rows))
	for _, row := range rows {
		m, err := toCoreMovement(row)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// DeleteMovement removes a movement and returns what was deleted.
func (r repository) DeleteMovement(ctx context.Context, id int64) (core.Movement, error) {
	m, err := r.GetMovement(ctx, id)
	if err != nil {
		return core.Movement{}, err
	}
	n, err := r.queries.DeleteMovement(ctx, id)
	if err != nil {
		return core.Movement{}, fmt.Errorf("delete movement %d: %w", id, err)
	}
	if n == 0 {
		return core.Movement{}, fmt.Errorf("delete movement %d: %w", id, core.ErrNotFound)
	}
	return m, nil
}

func (r repository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c, err := r.queries.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return core.Category{ID: c.ID, Name: c.Name}, nil
}

func (r repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, "get category %d", id)
	}
	return core.Category{ID: c.ID, Name: c.Name}, nil
}

func (r repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, len(rows))
	for i, c := range rows {
		categories[i] = core.Category{ID: c.ID, Name: c.Name}
	}
	return categories, nil
}

func (r repository) DeleteCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r repository) AssignCategory(ctx context.Context, clientID, categoryID int64) (core.CategoryClient, error) {
	category, err := r.GetCategory(ctx, categoryID)
	if err != nil {
		return core.CategoryClient{}, err
	}
	id, err := r.queries.CreateCategoryClient(ctx, categoryID, clientID)
	if err != nil {
		return core.CategoryClient{}, fmt.Errorf("assign category %d to client %d: %w", categoryID, clientID, err)
	}
	return core.CategoryClient{ID: id, ClientID: clientID, Category: category}, nil
}

func (r repository) ListClientCategories(ctx context.Context, clientID int64) ([]core.CategoryClient, error) {
	rows, err := r.queries.ListCategoryClientsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list categories of client %d: %w", clientID, err)
	}
	items := make([]core.CategoryClient, len(rows))
	for i, cc := range rows {
		items[i] = core.CategoryClient{
			ID:       cc.ID,
			ClientID: cc.ClientID,
			Category: core.Category{ID: cc.CategoryID, Name: cc.CategoryName},
		}
	}
	return items, nil
}

// RecordMovementAudit implements core.AuditStore. A second row for the same
// message id is rejected with core.ErrDuplicateEvent.
func (r repository) RecordMovementAudit(ctx context.Context, a core.MovementAudit) (core.MovementAudit, error) {
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now().UTC()
	}
	id, err := r.queries.CreateMovementAudit(ctx, CreateMovementAuditParams{
		MessageID:    sql.NullString{String: a.MessageID, Valid: a.MessageID != ""},
		Event:        a.Event,
		MovementID:   a.MovementID,
		AccountID:    a.AccountID,
		MovementType: string(a.MovementType),
		Amount:       a.Amount.String(),
		BalanceAfter: a.BalanceAfter.String(),
		RecordedAt:   a.RecordedAt.Format(timeLayout),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.MovementAudit{}, fmt.Errorf("record movement audit %s: %w", a.MessageID, core.ErrDuplicateEvent)
	}
	if err != nil {
		return core.MovementAudit{}, fmt.Errorf("record movement audit: %w", err)
	}
	a.ID = id
	return a, nil
}

func (r repository) ListMovementAudit(ctx context.Context, accountID int64) ([]core.MovementAudit, error) {
	rows, err := r.queries.ListMovementAuditByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list movement audit of account %d: %w", accountID, err)
	}
	items := make([]core.MovementAudit, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("audit %d amount %q: %w", row.ID, row.Amount, err)
		}
		balance, err := decimal.NewFromString(row.BalanceAfter)
		if err != nil {
			return nil, fmt.Errorf("audit %d balance %q: %w", row.ID, row.BalanceAfter, err)
		}
		recordedAt, err := time.Parse(timeLayout, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("audit %d recorded_at %q: %w", row.ID, row.RecordedAt, err)
		}
		items = append(items, core.MovementAudit{
			ID:           row.ID,
			MessageID:    row.MessageID.String,
			Event:        row.Event,
			MovementID:   row.MovementID,
			AccountID:    row.AccountID,
			MovementType: core.MovementType(row.MovementType),
			Amount:       amount,
			BalanceAfter: balance,
			RecordedAt:   recordedAt,
		})
	}
	return items, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		err = core.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func toCoreClient(c Client) core.Client {
	return core.Client{ID: c.ID, Name: c.Name}
}

func toCoreAccount(a Account) core.Account {
	return core.Account{ID: a.ID, Client: core.Client{ID: a.ClientID, Name: a.ClientName}}
}

func toCoreMovement(m Movement) (core.Movement, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.Movement{}, fmt.Errorf("movement %d amount %q: %w", m.ID, m.Amount, err)
	}
	createdAt, err := time.Parse(timeLayout, m.CreatedAt)
	if err != nil {
		return core.Movement{}, fmt.Errorf("movement %d created_at %q: %w", m.ID, m.CreatedAt, err)
	}
	return core.Movement{
		ID:        m.ID,
		AccountID: m.AccountID,
		Type:      core.MovementType(m.MovementType),
		Amount:    amount,
		CreatedAt: createdAt,
	}, nil
}
