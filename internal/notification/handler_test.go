package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/checkout"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/kafka"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

type fakeSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	To     string
	Ticket *model.Ticket
}

func (f *fakeSender) SendPurchaseConfirmation(to string, t *model.Ticket) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Ticket: t})
	return nil
}

func envelopeBytes(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	value, err := json.Marshal(kafka.Envelope{
		EventType:  eventType,
		Payload:    data,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	return value
}

func TestHandleEvent_SendsConfirmation(t *testing.T) {
	sender := &fakeSender{}
	handler := NewHandler(sender)

	event := checkout.TicketCreated{
		TicketID: "t-1",
		Code:     "TCK-1-ABCDEF",
		UserID:   "user-1",
		Email:    "buyer@example.com",
		Items: []model.TicketItem{
			{ProductID: "p1", Title: "Mug", Quantity: 2, Price: 100, Subtotal: 200},
		},
		Total:       242,
		PurchasedAt: time.Now(),
	}

	err := handler.HandleEvent(context.Background(), nil, envelopeBytes(t, checkout.EventTicketCreated, event))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "buyer@example.com", sender.sent[0].To)
	assert.Equal(t, "TCK-1-ABCDEF", sender.sent[0].Ticket.Code)
	assert.Equal(t, 242, sender.sent[0].Ticket.Totals.Total)
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	sender := &fakeSender{}
	handler := NewHandler(sender)

	err := handler.HandleEvent(context.Background(), nil, envelopeBytes(t, "SomethingElse", map[string]string{"x": "y"}))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_SkipsMissingEmail(t *testing.T) {
	sender := &fakeSender{}
	handler := NewHandler(sender)

	event := checkout.TicketCreated{TicketID: "t-1", Code: "TCK-1-ABCDEF", UserID: "user-1"}

	err := handler.HandleEvent(context.Background(), nil, envelopeBytes(t, checkout.EventTicketCreated, event))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_BadPayload(t *testing.T) {
	sender := &fakeSender{}
	handler := NewHandler(sender)

	err := handler.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}

func TestHandleEvent_SenderError(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	handler := NewHandler(sender)

	event := checkout.TicketCreated{Code: "TCK-1-ABCDEF", Email: "buyer@example.com"}

	err := handler.HandleEvent(context.Background(), nil, envelopeBytes(t, checkout.EventTicketCreated, event))

	assert.Error(t, err)
}
