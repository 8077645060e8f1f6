package ticket

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrCodeCollision is returned when a freshly generated code collides
	// twice in a row, which indicates something is badly wrong with the
	// code space or the ledger.
	ErrCodeCollision = errors.New("could not generate a unique ticket code")
)

// Service is the ticket ledger: it owns code generation and the append-only
// purchase records.
type Service struct {
	tickets    store.TicketStore
	codePrefix string
}

func NewService(tickets store.TicketStore, codePrefix string) *Service {
	return &Service{tickets: tickets, codePrefix: codePrefix}
}

// Create persists a ticket, filling in id, code, status and timestamp when
// absent. The store's unique-code constraint is the uniqueness authority;
// on a collision the code is regenerated and the insert retried once.
func (s *Service) Create(ctx context.Context, t *model.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.TicketStatusCompleted
	}
	if t.PurchasedAt.IsZero() {
		t.PurchasedAt = time.Now()
	}
	if t.Code == "" {
		t.Code = s.newCode()
	}
	t.Amount = t.Totals.Total

	err := s.tickets.Create(ctx, t)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrDuplicateCode) {
		return err
	}

	t.Code = s.newCode()
	err = s.tickets.Create(ctx, t)
	if errors.Is(err, store.ErrDuplicateCode) {
		return ErrCodeCollision
	}
	return err
}

func (s *Service) FindByCode(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := s.tickets.FindByCode(ctx, code)
	if errors.Is(err, store.ErrTicketNotFound) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

func (s *Service) FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Ticket, *model.Pagination, error) {
	return s.tickets.FindByUser(ctx, userID, page, pageSize)
}

// SalesStats aggregates completed tickets in [from, to]. Zero values
// default to the trailing 30 days.
func (s *Service) SalesStats(ctx context.Context, from, to time.Time) (*model.SalesStats, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.tickets.AggregateSales(ctx, from, to)
}

// newCode builds a human-readable code: prefix, millisecond timestamp and a
// short random suffix.
func (s *Service) newCode() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s-%d-%X", s.codePrefix, time.Now().UnixMilli(), suffix)
}
