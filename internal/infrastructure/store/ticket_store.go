package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
	"github.com/lib/pq"
)

// PostgresTicketStore implements TicketStore on PostgreSQL. Tickets are
// append-only; nothing here mutates an existing row.
type PostgresTicketStore struct {
	db *sql.DB
}

func NewPostgresTicketStore(db *sql.DB) *PostgresTicketStore {
	return &PostgresTicketStore{db: db}
}

var errInvalidTotals = errors.New("ticket totals must be present and non-negative")

// Create persists a ticket. The unique index on code is the uniqueness
// authority; a collision surfaces as ErrDuplicateCode so the caller can
// regenerate and retry.
func (s *PostgresTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	if t.Totals.Subtotal < 0 || t.Totals.Tax < 0 || t.Totals.Shipping < 0 ||
		t.Totals.Discount < 0 || t.Totals.Total < 0 {
		return errInvalidTotals
	}

	itemsJSON, err := json.Marshal(t.Items)
	if err != nil {
		return err
	}
	failedJSON, err := json.Marshal(t.FailedItems)
	if err != nil {
		return err
	}

	itemsCount := 0
	for _, item := range t.Items {
		itemsCount += item.Quantity
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, code, user_id, email, items, failed_items,
			subtotal, tax, shipping, discount, total, items_count, status, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.Code, t.UserID, t.Email, itemsJSON, failedJSON,
		t.Totals.Subtotal, t.Totals.Tax, t.Totals.Shipping, t.Totals.Discount,
		t.Totals.Total, itemsCount, t.Status, t.PurchasedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}

func (s *PostgresTicketStore) FindByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return s.scanTicket(s.db.QueryRowContext(ctx, `
		SELECT id, code, user_id, email, items, failed_items,
			subtotal, tax, shipping, discount, total, status, purchased_at
		FROM tickets WHERE code = $1
	`, code))
}

// FindByUser returns one page of the user's tickets, newest first.
func (s *PostgresTicketStore) FindByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Ticket, *model.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, user_id, email, items, failed_items,
			subtotal, tax, shipping, discount, total, status, purchased_at
		FROM tickets WHERE user_id = $1
		ORDER BY purchased_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0, pageSize)
	for rows.Next() {
		t, err := s.scanTicket(rows)
		if err != nil {
			return nil, nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return tickets, &model.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// AggregateSales computes totals over completed tickets in [from, to].
func (s *PostgresTicketStore) AggregateSales(ctx context.Context, from, to time.Time) (*model.SalesStats, error) {
	stats := &model.SalesStats{From: from, To: to}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0)::BIGINT,
		       COUNT(*),
		       COALESCE(ROUND(AVG(total)), 0)::BIGINT,
		       COALESCE(SUM(items_count), 0)::BIGINT
		FROM tickets
		WHERE status = 'completed' AND purchased_at >= $1 AND purchased_at <= $2
	`, from, to).Scan(&stats.TotalSales, &stats.TotalTickets, &stats.AverageTicket, &stats.TotalProducts)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *PostgresTicketStore) scanTicket(row rowScanner) (*model.Ticket, error) {
	var t model.Ticket
	var itemsJSON, failedJSON []byte
	err := row.Scan(&t.ID, &t.Code, &t.UserID, &t.Email, &itemsJSON, &failedJSON,
		&t.Totals.Subtotal, &t.Totals.Tax, &t.Totals.Shipping, &t.Totals.Discount,
		&t.Totals.Total, &t.Status, &t.PurchasedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &t.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(failedJSON, &t.FailedItems); err != nil {
		return nil, err
	}
	t.Amount = t.Totals.Total
	return &t, nil
}
