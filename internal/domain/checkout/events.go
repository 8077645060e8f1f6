package checkout

import (
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

const EventTicketCreated = "TicketCreated"

// TicketCreated is published after a reconciliation produced a durable
// ticket. Consumers (the notifier) use it to send the confirmation email.
type TicketCreated struct {
	TicketID    string             `json:"ticket_id"`
	Code        string             `json:"code"`
	UserID      string             `json:"user_id"`
	Email       string             `json:"email"`
	Items       []model.TicketItem `json:"items"`
	FailedItems []model.FailedItem `json:"failed_items,omitempty"`
	Total       int                `json:"total"`
	PurchasedAt time.Time          `json:"purchased_at"`
}
