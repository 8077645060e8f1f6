package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/checkout"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/kafka"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// Sender is satisfied by email.Service.
type Sender interface {
	SendPurchaseConfirmation(to string, t *model.Ticket) error
}

// Handler consumes ticket events and sends confirmation emails.
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes one event from Kafka. Unknown event types are
// skipped without error.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var envelope kafka.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		log.Printf("[Notifier] Failed to unmarshal envelope: %v", err)
		return err
	}

	if envelope.EventType != checkout.EventTicketCreated {
		return nil
	}

	var event checkout.TicketCreated
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal TicketCreated event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing TicketCreated for ticket %s, user %s", event.Code, event.UserID)

	if event.Email == "" {
		log.Printf("[Notifier] No email on ticket %s, skipping", event.Code)
		return nil
	}

	t := &model.Ticket{
		ID:          event.TicketID,
		Code:        event.Code,
		UserID:      event.UserID,
		Email:       event.Email,
		Items:       event.Items,
		FailedItems: event.FailedItems,
		Totals:      model.Totals{Total: event.Total},
		PurchasedAt: event.PurchasedAt,
	}
	if err := h.sender.SendPurchaseConfirmation(event.Email, t); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", event.Email, err)
		return err
	}

	log.Printf("[Notifier] Confirmation email sent to %s for ticket %s", event.Email, event.Code)
	return nil
}
