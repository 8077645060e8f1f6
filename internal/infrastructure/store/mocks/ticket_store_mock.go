package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// MockTicketStore is an in-memory implementation of store.TicketStore for testing.
type MockTicketStore struct {
	mu      sync.Mutex
	byCode  map[string]*model.Ticket
	tickets []*model.Ticket

	// For tracking calls in tests
	CreateCalls []*model.Ticket

	// CreateCallback, when set, intercepts Create calls.
	CreateCallback func(ctx context.Context, t *model.Ticket) error
}

// NewMockTicketStore creates a new MockTicketStore
func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{byCode: make(map[string]*model.Ticket)}
}

// Tickets returns all stored tickets directly for testing
func (m *MockTicketStore) Tickets() []*model.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Ticket(nil), m.tickets...)
}

// SeedCode marks a code as taken, to provoke collisions in tests
func (m *MockTicketStore) SeedCode(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCode[code] = &model.Ticket{Code: code}
}

func (m *MockTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, t)
	m.mu.Unlock()

	if m.CreateCallback != nil {
		return m.CreateCallback(ctx, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCode[t.Code]; exists {
		return store.ErrDuplicateCode
	}
	cp := *t
	m.byCode[t.Code] = &cp
	m.tickets = append(m.tickets, &cp)
	return nil
}

func (m *MockTicketStore) FindByCode(ctx context.Context, code string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byCode[code]
	if !ok {
		return nil, store.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTicketStore) FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Ticket, *model.Pagination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var owned []*model.Ticket
	for _, t := range m.tickets {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(owned) {
		start = len(owned)
	}
	if end > len(owned) {
		end = len(owned)
	}

	pagination := &model.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(owned),
		TotalPages: (len(owned) + pageSize - 1) / pageSize,
	}
	return owned[start:end], pagination, nil
}

func (m *MockTicketStore) AggregateSales(ctx context.Context, from, to time.Time) (*model.SalesStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.SalesStats{From: from, To: to}
	for _, t := range m.tickets {
		if t.Status != model.TicketStatusCompleted {
			continue
		}
		if t.PurchasedAt.Before(from) || t.PurchasedAt.After(to) {
			continue
		}
		stats.TotalSales += t.Totals.Total
		stats.TotalTickets++
		for _, item := range t.Items {
			stats.TotalProducts += item.Quantity
		}
	}
	if stats.TotalTickets > 0 {
		stats.AverageTicket = stats.TotalSales / stats.TotalTickets
	}
	return stats, nil
}
