package checkout

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/ticket"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoPurchasableItems means every line failed; no ticket is created
	// and the cart is left untouched.
	ErrNoPurchasableItems = errors.New("no items could be purchased")
)

// Failure reasons recorded on ticket failed items.
const (
	ReasonInsufficientStock = "insufficient stock"
	ReasonProductNotFound   = "product not found"
	ReasonProcessingError   = "processing error"
)

// Publisher emits domain events. Publishing is best effort: the purchase
// outcome never depends on it.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// Request carries the checkout parameters for one user's active cart.
type Request struct {
	UserID   string
	Email    string
	Shipping int
	Discount int
}

// Result is the reconciliation outcome. Partial is true when at least one
// line failed but a ticket was still created for the rest.
type Result struct {
	Ticket  *model.Ticket
	Partial bool
}

// Service reconciles a cart against live inventory and turns the purchasable
// part into a ticket.
type Service struct {
	products   store.ProductStore
	carts      store.CartStore
	tickets    *ticket.Service
	publisher  Publisher
	taxRateBPS int
}

func NewService(products store.ProductStore, carts store.CartStore, tickets *ticket.Service, publisher Publisher, taxRateBPS int) *Service {
	return &Service{
		products:   products,
		carts:      carts,
		tickets:    tickets,
		publisher:  publisher,
		taxRateBPS: taxRateBPS,
	}
}

// lineResult is the outcome of reconciling one cart line against inventory.
type lineResult struct {
	item   model.TicketItem
	failed *model.FailedItem
	err    error
}

// Purchase reconciles the user's active cart. Each line attempts an atomic
// conditional stock decrement; lines that fail are recorded on the ticket as
// failed items and stay in the cart. A ticket is created only if at least
// one line succeeded.
func (s *Service) Purchase(ctx context.Context, req Request) (*Result, error) {
	cart, err := s.carts.FindActiveByUser(ctx, req.UserID)
	if err != nil {
		// A user with no active cart has nothing to purchase; same outcome
		// as an empty one.
		if errors.Is(err, store.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	results := s.reconcileLines(ctx, cart.Items)

	var (
		items       []model.TicketItem
		failed      []model.FailedItem
		remaining   []model.CartItem
		purchasedOK = make(map[string]bool)
	)
	for i, r := range results {
		switch {
		case r.err != nil:
			// Transient errors downgrade to a failed line so the rest
			// of the cart still goes through.
			log.Printf("[Checkout] Error processing product %s: %v", cart.Items[i].ProductID, r.err)
			failed = append(failed, model.FailedItem{
				ProductID: cart.Items[i].ProductID,
				Title:     cart.Items[i].Title,
				Requested: cart.Items[i].Quantity,
				Reason:    ReasonProcessingError,
			})
		case r.failed != nil:
			failed = append(failed, *r.failed)
		default:
			items = append(items, r.item)
			purchasedOK[r.item.ProductID] = true
		}
	}
	for _, ci := range cart.Items {
		if !purchasedOK[ci.ProductID] {
			remaining = append(remaining, ci)
		}
	}

	if len(items) == 0 {
		return nil, ErrNoPurchasableItems
	}

	totals := s.computeTotals(items, req.Shipping, req.Discount)
	t := &model.Ticket{
		UserID:      req.UserID,
		Email:       req.Email,
		Items:       items,
		FailedItems: failed,
		Totals:      totals,
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		s.compensate(ctx, items)
		return nil, err
	}

	s.drainCart(ctx, cart.ID, t.Code, remaining)

	if s.publisher != nil {
		event := TicketCreated{
			TicketID:    t.ID,
			Code:        t.Code,
			UserID:      t.UserID,
			Email:       t.Email,
			Items:       t.Items,
			FailedItems: t.FailedItems,
			Total:       t.Totals.Total,
			PurchasedAt: t.PurchasedAt,
		}
		if err := s.publisher.Publish(ctx, EventTicketCreated, t.ID, event); err != nil {
			log.Printf("[Checkout] Failed to publish TicketCreated for ticket %s: %v", t.Code, err)
		}
	}

	return &Result{Ticket: t, Partial: len(failed) > 0}, nil
}

// reconcileLines fans out one goroutine per cart line. Results come back in
// cart order via the indexed slice.
func (s *Service) reconcileLines(ctx context.Context, lines []model.CartItem) []lineResult {
	results := make([]lineResult, len(lines))
	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func(i int, line model.CartItem) {
			defer wg.Done()
			results[i] = s.reconcileLine(ctx, line)
		}(i, line)
	}
	wg.Wait()
	return results
}

func (s *Service) reconcileLine(ctx context.Context, line model.CartItem) lineResult {
	p, err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity)
	if err != nil {
		var insufficient *store.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			return lineResult{failed: &model.FailedItem{
				ProductID: line.ProductID,
				Title:     line.Title,
				Requested: line.Quantity,
				Available: insufficient.Available,
				Reason:    ReasonInsufficientStock,
			}}
		case errors.Is(err, store.ErrProductNotFound):
			return lineResult{failed: &model.FailedItem{
				ProductID: line.ProductID,
				Title:     line.Title,
				Requested: line.Quantity,
				Reason:    ReasonProductNotFound,
			}}
		default:
			return lineResult{err: err}
		}
	}

	// Price and title are read from the live product, not the cart snapshot.
	return lineResult{item: model.TicketItem{
		ProductID: p.ID,
		Title:     p.Title,
		Quantity:  line.Quantity,
		Price:     p.Price,
		Subtotal:  p.Price * line.Quantity,
	}}
}

// computeTotals derives the monetary breakdown. Tax is applied in basis
// points and rounded half up; the total never goes below zero.
func (s *Service) computeTotals(items []model.TicketItem, shipping, discount int) model.Totals {
	subtotal := 0
	for _, it := range items {
		subtotal += it.Subtotal
	}
	tax := (subtotal*s.taxRateBPS + 5000) / 10000
	total := subtotal + tax + shipping - discount
	if total < 0 {
		total = 0
	}
	return model.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

// compensate restores stock decremented for lines whose ticket could not be
// persisted. Failures here only log; stock drift is surfaced for operators.
func (s *Service) compensate(ctx context.Context, items []model.TicketItem) {
	for _, it := range items {
		if err := s.products.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Printf("[Checkout] CRITICAL: failed to restore stock for product %s (qty %d): %v",
				it.ProductID, it.Quantity, err)
		}
	}
}

// drainCart rewrites the cart to hold only the failed lines. The ticket is
// already durable at this point, so a replace failure is retried once and
// then escalated by log; it never fails the purchase.
func (s *Service) drainCart(ctx context.Context, cartID, code string, remaining []model.CartItem) {
	err := s.carts.ReplaceItems(ctx, cartID, remaining)
	if err == nil {
		return
	}
	log.Printf("[Checkout] Failed to update cart %s after ticket %s, retrying: %v", cartID, code, err)
	if err := s.carts.ReplaceItems(ctx, cartID, remaining); err != nil {
		log.Printf("[Checkout] CRITICAL: cart %s inconsistent with ticket %s, manual review needed: %v",
			cartID, code, err)
	}
}
