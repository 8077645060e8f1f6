package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// MockCartStore is an in-memory implementation of store.CartStore for testing.
type MockCartStore struct {
	mu    sync.Mutex
	carts map[string]*model.Cart // cartID -> cart

	// For tracking calls in tests
	ReplaceCalls []ReplaceCall

	// ReplaceCallback, when set, intercepts ReplaceItems calls.
	ReplaceCallback func(ctx context.Context, cartID string, items []model.CartItem) error
}

// ReplaceCall records parameters passed to ReplaceItems
type ReplaceCall struct {
	CartID string
	Items  []model.CartItem
}

// NewMockCartStore creates a new MockCartStore
func NewMockCartStore() *MockCartStore {
	return &MockCartStore{carts: make(map[string]*model.Cart)}
}

// SetCart seeds a cart directly for testing
func (m *MockCartStore) SetCart(c *model.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	m.carts[c.ID] = &cp
}

// GetCart returns a cart directly for testing
func (m *MockCartStore) GetCart(id string) (*model.Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, false
	}
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp, true
}

func (m *MockCartStore) FindActiveByUser(ctx context.Context, userID string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			cp := *c
			cp.Items = append([]model.CartItem(nil), c.Items...)
			return &cp, nil
		}
	}
	return nil, store.ErrCartNotFound
}

func (m *MockCartStore) Create(ctx context.Context, userID string) (*model.Cart, error) {
	if existing, err := m.FindActiveByUser(ctx, userID); err == nil {
		return existing, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c := &model.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []model.CartItem{},
		Status:    model.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.carts[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *MockCartStore) AddItem(ctx context.Context, cartID string, item model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return store.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].Price = item.Price
			c.Items[i].Title = item.Title
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (m *MockCartStore) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, cartID, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return store.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
		}
	}
	return nil
}

func (m *MockCartStore) RemoveItem(ctx context.Context, cartID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return store.ErrCartNotFound
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	return nil
}

func (m *MockCartStore) Clear(ctx context.Context, cartID string) error {
	return m.ReplaceItems(ctx, cartID, []model.CartItem{})
}

func (m *MockCartStore) ReplaceItems(ctx context.Context, cartID string, items []model.CartItem) error {
	if m.ReplaceCallback != nil {
		return m.ReplaceCallback(ctx, cartID, items)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReplaceCalls = append(m.ReplaceCalls, ReplaceCall{
		CartID: cartID,
		Items:  append([]model.CartItem(nil), items...),
	})

	c, ok := m.carts[cartID]
	if !ok {
		return store.ErrCartNotFound
	}
	c.Items = append([]model.CartItem(nil), items...)
	c.UpdatedAt = time.Now()
	return nil
}
