package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrDuplicateCode   = errors.New("ticket code already exists")
)

// InsufficientStockError is returned by DecrementStock when the conditional
// decrement fails. Available is the stock observed at that moment, carried
// through to the ticket's failed-item audit trail.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProductStore is the inventory ledger. DecrementStock must be a single
// atomic compare-and-decrement at the storage layer; HasStock is only a
// pre-filter and never authoritative.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	SetStatus(ctx context.Context, id, status string) error
	HasStock(ctx context.Context, id string, quantity int) (bool, error)
	DecrementStock(ctx context.Context, id string, quantity int) (*model.Product, error)
	IncrementStock(ctx context.Context, id string, quantity int) error
}

// CartStore owns the per-user active cart and its line items. Each mutation
// is a single atomic write of the cart document.
type CartStore interface {
	FindActiveByUser(ctx context.Context, userID string) (*model.Cart, error)
	Create(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, cartID string, item model.CartItem) error
	SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	Clear(ctx context.Context, cartID string) error
	ReplaceItems(ctx context.Context, cartID string, items []model.CartItem) error
}

// TicketStore is the append-only ticket ledger.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	FindByCode(ctx context.Context, code string) (*model.Ticket, error)
	FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Ticket, *model.Pagination, error)
	AggregateSales(ctx context.Context, from, to time.Time) (*model.SalesStats, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
