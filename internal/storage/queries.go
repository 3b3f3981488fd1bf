package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements of the ledger schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Client struct {
	ID   int64
	Name string
}

type Account struct {
	ID         int64
	ClientID   int64
	ClientName string
}

type Movement struct {
	ID           int64
	AccountID    int64
	MovementType string
	Amount       string
	CreatedAt    string
}

type Category struct {
	ID   int64
	Name string
}

type CategoryClient struct {
	ID           int64
	ClientID     int64
	CategoryID   int64
	CategoryName string
}

type MovementAudit struct {
	ID           int64
	MessageID    sql.NullString
	Event        string
	MovementID   int64
	AccountID    int64
	MovementType string
	Amount       string
	BalanceAfter string
	RecordedAt   string
}

const createClient = `INSERT INTO clients (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateClient(ctx context.Context, name string) (Client, error) {
	var c Client
	err := q.db.QueryRowContext(ctx, createClient, name).Scan(&c.ID, &c.Name)
	return c, err
}

const getClient = `SELECT id, name FROM clients WHERE id = ?`

func (q *Queries) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := q.db.QueryRowContext(ctx, getClient, id).Scan(&c.ID, &c.Name)
	return c, err
}

const listClients = `SELECT id, name FROM clients ORDER BY id`

func (q *Queries) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := q.db.QueryContext(ctx, listClients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateClientName = `UPDATE clients SET name = ? WHERE id = ? RETURNING id, name`

func (q *Queries) UpdateClientName(ctx context.Context, id int64, name string) (Client, error) {
	var c Client
	err := q.db.QueryRowContext(ctx, updateClientName, name, id).Scan(&c.ID, &c.Name)
	return c, err
}

const deleteClient = `DELETE FROM clients WHERE id = ?`

func (q *Queries) DeleteClient(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteClient, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createAccount = `INSERT INTO accounts (client_id) VALUES (?) RETURNING id`

func (q *Queries) CreateAccount(ctx context.Context, clientID int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createAccount, clientID).Scan(&id)
	return id, err
}

const getAccount = `
SELECT a.id, a.client_id, c.name
FROM accounts a
JOIN clients c ON c.id = a.client_id
WHERE a.id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := q.db.QueryRowContext(ctx, getAccount, id).Scan(&a.ID, &a.ClientID, &a.ClientName)
	return a, err
}

const accountExists = `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`

func (q *Queries) AccountExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, accountExists, id).Scan(&exists)
	return exists, err
}

const listAccountsByClient = `
SELECT a.id, a.client_id, c.name
FROM accounts a
JOIN clients c ON c.id = a.client_id
WHERE a.client_id = ?
ORDER BY a.id`

func (q *Queries) ListAccountsByClient(ctx context.Context, clientID int64) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccountsByClient, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ClientName); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type CreateMovementParams struct {
	AccountID    int64
	MovementType string
	Amount       string
	CreatedAt    string
}

const createMovement = `
INSERT INTO movements (account_id, movement_type, amount, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, account_id, movement_type, amount, created_at`

func (q *Queries) CreateMovement(ctx context.Context, arg CreateMovementParams) (Movement, error) {
	var m Movement
	err := q.db.QueryRowContext(ctx, createMovement, arg.AccountID, arg.MovementType, arg.Amount, arg.CreatedAt).
		Scan(&m.ID, &m.AccountID, &m.MovementType, &m.Amount, &m.CreatedAt)
	return m, err
}

const getMovement = `SELECT id, account_id, movement_type, amount, created_at FROM movements WHERE id = ?`

func (q *Queries) GetMovement(ctx context.Context, id int64) (Movement, error) {
	var m Movement
	err := q.db.QueryRowContext(ctx, getMovement, id).
		Scan(&m.ID, &m.AccountID, &m.MovementType, &m.Amount, &m.CreatedAt)
	return m, err
}

const listMovementsByAccount = `
SELECT id, account_id, movement_type, amount, created_at
FROM movements
WHERE account_id = ?
ORDER BY id`

func (q *Queries) ListMovementsByAccount(ctx context.Context, accountID int64) ([]Movement, error) {
	rows, err := q.db.QueryContext(ctx, listMovementsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.AccountID, &m.MovementType, &m.Amount, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const deleteMovement = `DELETE FROM movements WHERE id = ?`

func (q *Queries) DeleteMovement(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMovement, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createCategory = `INSERT INTO categories (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, createCategory, name).Scan(&c.ID, &c.Name)
	return c, err
}

const getCategory = `SELECT id, name FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&c.ID, &c.Name)
	return c, err
}

const listCategories = `SELECT id, name FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createCategoryClient = `INSERT INTO category_clients (category_id, client_id) VALUES (?, ?) RETURNING id`

func (q *Queries) CreateCategoryClient(ctx context.Context, categoryID, clientID int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategoryClient, categoryID, clientID).Scan(&id)
	return id, err
}

const listCategoryClientsByClient = `
SELECT cc.id, cc.client_id, cc.category_id, c.name
FROM category_clients cc
JOIN categories c ON c.id = cc.category_id
WHERE cc.client_id = ?
ORDER BY cc.id`

func (q *Queries) ListCategoryClientsByClient(ctx context.Context, clientID int64) ([]CategoryClient, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryClientsByClient, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryClient
	for rows.Next() {
		var cc CategoryClient
		if err := rows.Scan(&cc.ID, &cc.ClientID, &cc.CategoryID, &cc.CategoryName); err != nil {
			return nil, err
		}
		items = append(items, cc)
	}
	return items, rows.Err()
}

type CreateMovementAuditParams struct {
	MessageID    sql.NullString
	Event        string
	MovementID   int64
	AccountID    int64
	MovementType string
	Amount       string
	BalanceAfter string
	RecordedAt   string
}

const createMovementAudit = `
INSERT INTO movement_audit (message_id, event, movement_id, account_id, movement_type, amount, balance_after, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (message_id) DO NOTHING
RETURNING id`

func (q *Queries) CreateMovementAudit(ctx context.Context, arg CreateMovementAuditParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createMovementAudit,
		arg.MessageID, arg.Event, arg.MovementID, arg.AccountID, arg.MovementType, arg.Amount, arg.BalanceAfter, arg.RecordedAt).
		Scan(&id)
	return id, err
}

const listMovementAuditByAccount = `
SELECT id, message_id, event, movement_id, account_id, movement_type, amount, balance_after, recorded_at
FROM movement_audit
WHERE account_id = ?
ORDER BY id`

func (q *Queries) ListMovementAuditByAccount(ctx context.Context, accountID int64) ([]MovementAudit, error) {
	rows, err := q.db.QueryContext(ctx, listMovementAuditByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MovementAudit
	for rows.Next() {
		var a MovementAudit
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Event, &a.MovementID, &a.AccountID, &a.MovementType, &a.Amount, &a.BalanceAfter, &a.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
