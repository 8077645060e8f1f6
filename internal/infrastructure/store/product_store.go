package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// PostgresProductStore implements ProductStore on PostgreSQL.
type PostgresProductStore struct {
	db *sql.DB
}

func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) Create(ctx context.Context, p *model.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, title, description, price, stock, owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Title, p.Description, p.Price, p.Stock, nullString(p.OwnerID), p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *PostgresProductStore) Get(ctx context.Context, id string) (*model.Product, error) {
	return s.scanProduct(s.db.QueryRowContext(ctx, `
		SELECT id, title, description, price, stock, owner_id, status, created_at, updated_at
		FROM products WHERE id = $1
	`, id))
}

func (s *PostgresProductStore) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, price, stock, owner_id, status, created_at, updated_at
		FROM products WHERE status = 'active' ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p, err := s.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) Update(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET title = $2, description = $3, price = $4, stock = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Title, p.Description, p.Price, p.Stock, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res, ErrProductNotFound)
}

func (s *PostgresProductStore) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res, ErrProductNotFound)
}

// HasStock reads current stock and reports whether it covers the requested
// quantity. Only a pre-filter; DecrementStock is authoritative.
func (s *PostgresProductStore) HasStock(ctx context.Context, id string, quantity int) (bool, error) {
	var stock int
	err := s.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if err == sql.ErrNoRows {
		return false, ErrProductNotFound
	}
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

// DecrementStock reduces stock by quantity in a single conditional UPDATE,
// so concurrent purchases of the same product serialize at the storage
// layer. Returns the post-decrement product, whose price is the one to
// snapshot onto the ticket.
func (s *PostgresProductStore) DecrementStock(ctx context.Context, id string, quantity int) (*model.Product, error) {
	p, err := s.scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING id, title, description, price, stock, owner_id, status, created_at, updated_at
	`, id, quantity))
	if err == nil {
		return p, nil
	}
	if err != ErrProductNotFound {
		return nil, err
	}

	// The conditional update matched no row: distinguish a missing product
	// from insufficient stock, capturing the observed availability.
	var available int
	err = s.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&available)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, &InsufficientStockError{ProductID: id, Requested: quantity, Available: available}
}

// IncrementStock restores stock, used by the checkout compensation path.
func (s *PostgresProductStore) IncrementStock(ctx context.Context, id string, quantity int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
	`, id, quantity)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProductNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresProductStore) scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var ownerID sql.NullString
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &ownerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p.OwnerID = ownerID.String
	return &p, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
