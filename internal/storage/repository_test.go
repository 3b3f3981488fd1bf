package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewSQLiteRepository_AppliesMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	version, dirty, err := MigrationVersion(dbPath)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(3), version)

	// Running again is a no-op
	require.NoError(t, RunMigrations(dbPath))
}

func TestCreateClientWithAccount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, account, err := repo.CreateClientWithAccount(ctx, "Pedro Arroyo")
	require.NoError(t, err)
	assert.NotZero(t, client.ID)
	assert.Equal(t, "Pedro Arroyo", client.Name)
	assert.Equal(t, client, account.Client)

	accounts, err := repo.ListAccountsByClient(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, account.ID, accounts[0].ID)
}

func TestClientLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, _, err := repo.CreateClientWithAccount(ctx, "Ana")
	require.NoError(t, err)

	renamed, err := repo.UpdateClientName(ctx, client.ID, "Ana Maria")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", renamed.Name)

	got, err := repo.GetClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, renamed, got)

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	require.NoError(t, repo.DeleteClient(ctx, client.ID))

	_, err = repo.GetClient(ctx, client.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(repo.DeleteClient(ctx, client.ID), core.ErrNotFound))

	_, err = repo.UpdateClientName(ctx, 999, "ghost")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestMovements(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, account, err := repo.CreateClientWithAccount(ctx, "Luis")
	require.NoError(t, err)

	in, err := repo.CreateMovement(ctx, account.ID, core.CashInflow, decimal.RequireFromString("2000.50"))
	require.NoError(t, err)
	out, err := repo.CreateMovement(ctx, account.ID, core.CashOutflow, decimal.RequireFromString("0.50"))
	require.NoError(t, err)

	movements, err := repo.ListMovementsByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, in.ID, movements[0].ID)
	assert.True(t, movements[0].Amount.Equal(decimal.RequireFromString("2000.5")))
	assert.Equal(t, core.CashOutflow, movements[1].Type)
	assert.False(t, movements[1].CreatedAt.IsZero())

	got, err := repo.GetMovement(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.ID, got.ID)

	deleted, err := repo.DeleteMovement(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.ID, deleted.ID)

	_, err = repo.DeleteMovement(ctx, out.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	unknown, err := repo.ListMovementsByAccount(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestAccountExists(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, account, err := repo.CreateClientWithAccount(ctx, "Eva")
	require.NoError(t, err)

	ok, err := repo.AccountExists(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AccountExists(ctx, account.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteClient_Cascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, account, err := repo.CreateClientWithAccount(ctx, "Cascade")
	require.NoError(t, err)
	second, err := repo.CreateAccount(ctx, client.ID)
	require.NoError(t, err)

	m, err := repo.CreateMovement(ctx, account.ID, core.CashInflow, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = repo.CreateMovement(ctx, second.ID, core.CashInflow, decimal.NewFromInt(5))
	require.NoError(t, err)

	category, err := repo.CreateCategory(ctx, "VIP")
	require.NoError(t, err)
	_, err = repo.AssignCategory(ctx, client.ID, category.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteClient(ctx, client.ID))

	_, err = repo.GetAccount(ctx, account.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = repo.GetMovement(ctx, m.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	assigned, err := repo.ListClientCategories(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	// Categories have their own lifecycle
	_, err = repo.GetCategory(ctx, category.ID)
	assert.NoError(t, err)
}

func TestDeleteAccount_CascadesMovements(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, account, err := repo.CreateClientWithAccount(ctx, "Acc")
	require.NoError(t, err)
	m, err := repo.CreateMovement(ctx, account.ID, core.CashInflow, decimal.NewFromInt(1))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteAccount(ctx, account.ID))

	_, err = repo.GetMovement(ctx, m.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(repo.DeleteAccount(ctx, account.ID), core.ErrNotFound))
}

func TestCategories(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, _, err := repo.CreateClientWithAccount(ctx, "Tagged")
	require.NoError(t, err)
	category, err := repo.CreateCategory(ctx, "Retail")
	require.NoError(t, err)

	// Duplicate assignments are allowed
	first, err := repo.AssignCategory(ctx, client.ID, category.ID)
	require.NoError(t, err)
	second, err := repo.AssignCategory(ctx, client.ID, category.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Retail", first.Category.Name)

	assigned, err := repo.ListClientCategories(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	_, err = repo.AssignCategory(ctx, client.ID, 999)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, repo.DeleteCategory(ctx, category.ID))

	assigned, err = repo.ListClientCategories(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)

	assert.True(t, errors.Is(repo.DeleteCategory(ctx, category.ID), core.ErrNotFound))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, account, err := repo.CreateClientWithAccount(ctx, "Tx")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.WithinTx(ctx, func(s core.MovementStore) error {
		if _, err := s.CreateMovement(ctx, account.ID, core.CashInflow, decimal.NewFromInt(3)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	movements, err := repo.ListMovementsByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)

	err = repo.WithinTx(ctx, func(s core.MovementStore) error {
		_, err := s.CreateMovement(ctx, account.ID, core.CashInflow, decimal.NewFromInt(3))
		return err
	})
	require.NoError(t, err)

	movements, err = repo.ListMovementsByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestMovementAudit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	recorded, err := repo.RecordMovementAudit(ctx, core.MovementAudit{
		Event:        "movement.created",
		MovementID:   7,
		AccountID:    3,
		MovementType: core.CashInflow,
		Amount:       decimal.RequireFromString("12.34"),
		BalanceAfter: decimal.RequireFromString("12.34"),
	})
	require.NoError(t, err)
	assert.NotZero(t, recorded.ID)
	assert.False(t, recorded.RecordedAt.IsZero())

	items, err := repo.ListMovementAudit(ctx, 3)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "movement.created", items[0].Event)
	assert.True(t, items[0].BalanceAfter.Equal(decimal.RequireFromString("12.34")))
}

func TestMovementAudit_DuplicateMessage(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entry := core.MovementAudit{
		MessageID:    "0d7b5a56-1c1f-4c64-9b7e-5a2f3c1e9d10",
		Event:        "movement.created",
		MovementID:   7,
		AccountID:    3,
		MovementType: core.CashInflow,
		Amount:       decimal.NewFromInt(5),
		BalanceAfter: decimal.NewFromInt(5),
	}
	_, err := repo.RecordMovementAudit(ctx, entry)
	require.NoError(t, err)

	_, err = repo.RecordMovementAudit(ctx, entry)
	assert.ErrorIs(t, err, core.ErrDuplicateEvent)

	// Rows without a message id are never treated as duplicates
	entry.MessageID = ""
	for i := 0; i < 2; i++ {
		_, err = repo.RecordMovementAudit(ctx, entry)
		require.NoError(t, err)
	}

	items, err := repo.ListMovementAudit(ctx, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "0d7b5a56-1c1f-4c64-9b7e-5a2f3c1e9d10", items[0].MessageID)
	assert.Empty(t, items[1].MessageID)
}
