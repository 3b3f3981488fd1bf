package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

func runLedgerctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seed creates a client with one account holding an inflow of 100 and an
// outflow of 30, and returns the database path with the ids involved.
func seed(t *testing.T) (dbPath string, client core.Client, account core.Account) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "ledger.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	client, account, err = repo.CreateClientWithAccount(ctx, "Pedro Arroyo")
	require.NoError(t, err)

	audit := worker.NewAuditWorker(repo)
	for _, mv := range []struct {
		t      core.MovementType
		amount int64
	}{{core.CashInflow, 100}, {core.CashOutflow, 30}} {
		m, err := repo.CreateMovement(ctx, account.ID, mv.t, decimal.NewFromInt(mv.amount))
		require.NoError(t, err)
		require.NoError(t, audit.HandleMovementEvent(ctx, amqp.NewMovementEvent(amqp.EventMovementCreated, m)))
	}
	return dbPath, client, account
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")

	out, err := runLedgerctl(t, "--db", dbPath, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema version 3 (dirty: false)\n", out)

	out, err = runLedgerctl(t, "--db", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")
}

func TestClients(t *testing.T) {
	dbPath, client, _ := seed(t)

	out, err := runLedgerctl(t, "--db", dbPath, "clients")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, strconv.FormatInt(client.ID, 10))
	assert.Contains(t, out, "Pedro Arroyo")
}

func TestBalance(t *testing.T) {
	dbPath, _, account := seed(t)

	out, err := runLedgerctl(t, "--db", dbPath, "balance", strconv.FormatInt(account.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, "70.00\n", out)

	_, err = runLedgerctl(t, "--db", dbPath, "balance", "999")
	var refErr *core.ReferenceError
	assert.ErrorAs(t, err, &refErr)

	_, err = runLedgerctl(t, "--db", dbPath, "balance", "abc")
	assert.ErrorContains(t, err, "invalid id")
}

func TestClientBalance(t *testing.T) {
	dbPath, client, account := seed(t)

	out, err := runLedgerctl(t, "--db", dbPath, "client-balance", strconv.FormatInt(client.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "Pedro Arroyo")
	assert.Contains(t, out, strconv.FormatInt(account.ID, 10))
	assert.Contains(t, out, "70.00")
}

func TestAudit(t *testing.T) {
	dbPath, _, account := seed(t)

	out, err := runLedgerctl(t, "--db", dbPath, "audit", strconv.FormatInt(account.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "BALANCE AFTER")
	assert.Contains(t, out, "cash_inflow")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "70.00")
}

func TestArgumentValidation(t *testing.T) {
	_, err := runLedgerctl(t, "--db", filepath.Join(t.TempDir(), "x.db"), "balance")
	assert.Error(t, err)
}
