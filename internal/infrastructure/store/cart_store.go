package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresCartStore implements CartStore on PostgreSQL. Line items live in a
// JSONB column, so every mutation is one atomic write of the whole cart and
// a concurrent reader never observes a half-updated item list.
type PostgresCartStore struct {
	db *sql.DB
}

func NewPostgresCartStore(db *sql.DB) *PostgresCartStore {
	return &PostgresCartStore{db: db}
}

func (s *PostgresCartStore) FindActiveByUser(ctx context.Context, userID string) (*model.Cart, error) {
	return s.scanCart(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, items, status, created_at, updated_at
		FROM carts WHERE user_id = $1 AND status = 'active'
	`, userID))
}

// Create makes an empty active cart for the user. Creation is idempotent: if
// an active cart already exists the existing one is returned.
func (s *PostgresCartStore) Create(ctx context.Context, userID string) (*model.Cart, error) {
	now := time.Now()
	cart := &model.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []model.CartItem{},
		Status:    model.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, items, status, created_at, updated_at)
		VALUES ($1, $2, '[]', $3, $4, $5)
	`, cart.ID, cart.UserID, cart.Status, cart.CreatedAt, cart.UpdatedAt)
	if err == nil {
		return cart, nil
	}

	// Unique partial index on (user_id) WHERE status = 'active': another
	// request created the cart first, return that one.
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return s.FindActiveByUser(ctx, userID)
	}
	return nil, err
}

// AddItem appends a line item, or raises the quantity if the product is
// already in the cart.
func (s *PostgresCartStore) AddItem(ctx context.Context, cartID string, item model.CartItem) error {
	return s.mutateItems(ctx, cartID, func(items []model.CartItem) []model.CartItem {
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity += item.Quantity
				items[i].Price = item.Price
				items[i].Title = item.Title
				return items
			}
		}
		return append(items, item)
	})
}

// SetItemQuantity sets the quantity for a line; quantity <= 0 removes it.
func (s *PostgresCartStore) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, productID)
	}
	return s.mutateItems(ctx, cartID, func(items []model.CartItem) []model.CartItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

func (s *PostgresCartStore) RemoveItem(ctx context.Context, cartID, productID string) error {
	return s.mutateItems(ctx, cartID, func(items []model.CartItem) []model.CartItem {
		kept := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

func (s *PostgresCartStore) Clear(ctx context.Context, cartID string) error {
	return s.ReplaceItems(ctx, cartID, []model.CartItem{})
}

// ReplaceItems swaps the whole line-item list in a single UPDATE. The
// checkout flow uses this to retain only unresolved items after a purchase.
func (s *PostgresCartStore) ReplaceItems(ctx context.Context, cartID string, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE carts SET items = $2, updated_at = now() WHERE id = $1
	`, cartID, itemsJSON)
	if err != nil {
		return err
	}
	return requireRow(res, ErrCartNotFound)
}

// mutateItems applies fn to the current item list and writes the result
// back. The read and write are separate statements; per-cart mutations are
// scoped to one user, so no cross-request locking is needed here.
func (s *PostgresCartStore) mutateItems(ctx context.Context, cartID string, fn func([]model.CartItem) []model.CartItem) error {
	var itemsJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT items FROM carts WHERE id = $1`, cartID).Scan(&itemsJSON)
	if err == sql.ErrNoRows {
		return ErrCartNotFound
	}
	if err != nil {
		return err
	}

	var items []model.CartItem
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return err
	}
	return s.ReplaceItems(ctx, cartID, fn(items))
}

func (s *PostgresCartStore) scanCart(row rowScanner) (*model.Cart, error) {
	var c model.Cart
	var itemsJSON []byte
	err := row.Scan(&c.ID, &c.UserID, &itemsJSON, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}
