package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// MockProductStore is an in-memory implementation of store.ProductStore for
// testing. DecrementStock enforces the same conditional semantics as the
// real stores, under a mutex, so concurrency tests exercise real contention.
type MockProductStore struct {
	mu       sync.Mutex
	products map[string]*model.Product

	// For tracking calls in tests
	DecrementCalls []DecrementCall
	IncrementCalls []DecrementCall

	// DecrementCallback, when set, intercepts DecrementStock calls.
	DecrementCallback func(ctx context.Context, id string, quantity int) (*model.Product, error)
}

// DecrementCall records parameters passed to DecrementStock/IncrementStock
type DecrementCall struct {
	ProductID string
	Quantity  int
}

// NewMockProductStore creates a new MockProductStore
func NewMockProductStore() *MockProductStore {
	return &MockProductStore{
		products: make(map[string]*model.Product),
	}
}

// SetProduct seeds a product directly for testing
func (m *MockProductStore) SetProduct(p *model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

// GetStock returns the current stock directly for testing
func (m *MockProductStore) GetStock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Stock
	}
	return 0
}

func (m *MockProductStore) Create(ctx context.Context, p *model.Product) error {
	m.SetProduct(p)
	return nil
}

func (m *MockProductStore) Get(ctx context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductStore) List(ctx context.Context) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := make([]*model.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.Status == model.ProductStatusActive {
			cp := *p
			products = append(products, &cp)
		}
	}
	return products, nil
}

func (m *MockProductStore) Update(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return store.ErrProductNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MockProductStore) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return store.ErrProductNotFound
	}
	p.Status = status
	return nil
}

func (m *MockProductStore) HasStock(ctx context.Context, id string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return false, store.ErrProductNotFound
	}
	return p.Stock >= quantity, nil
}

func (m *MockProductStore) DecrementStock(ctx context.Context, id string, quantity int) (*model.Product, error) {
	if m.DecrementCallback != nil {
		return m.DecrementCallback(ctx, id, quantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecrementCalls = append(m.DecrementCalls, DecrementCall{ProductID: id, Quantity: quantity})

	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	if p.Stock < quantity {
		return nil, &store.InsufficientStockError{ProductID: id, Requested: quantity, Available: p.Stock}
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (m *MockProductStore) IncrementStock(ctx context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls = append(m.IncrementCalls, DecrementCall{ProductID: id, Quantity: quantity})

	p, ok := m.products[id]
	if !ok {
		return store.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}
