package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/ticket"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store/mocks"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	EventType string
	Key       string
	Payload   any
}

func (f *fakePublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{EventType: eventType, Key: key, Payload: payload})
	return nil
}

type fixture struct {
	products  *mocks.MockProductStore
	carts     *mocks.MockCartStore
	tickets   *mocks.MockTicketStore
	publisher *fakePublisher
	svc       *Service
}

func newFixture() *fixture {
	products := mocks.NewMockProductStore()
	carts := mocks.NewMockCartStore()
	tickets := mocks.NewMockTicketStore()
	publisher := &fakePublisher{}
	ticketSvc := ticket.NewService(tickets, "TCK")
	return &fixture{
		products:  products,
		carts:     carts,
		tickets:   tickets,
		publisher: publisher,
		svc:       NewService(products, carts, ticketSvc, publisher, 2100),
	}
}

func (f *fixture) seedProduct(id string, price, stock int) {
	f.products.SetProduct(&model.Product{
		ID:     id,
		Title:  "Product " + id,
		Price:  price,
		Stock:  stock,
		Status: model.ProductStatusActive,
	})
}

func (f *fixture) seedCart(userID string, items ...model.CartItem) *model.Cart {
	c := &model.Cart{
		ID:     "cart-" + userID,
		UserID: userID,
		Items:  items,
		Status: model.CartStatusActive,
	}
	f.carts.SetCart(c)
	return c
}

// ============================================
// Full and Partial Success
// ============================================

func TestPurchase_AllItemsSucceed(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedProduct("p2", 250, 5)
	f.seedCart("user-1",
		model.CartItem{ProductID: "p1", Title: "Product p1", Quantity: 2},
		model.CartItem{ProductID: "p2", Title: "Product p2", Quantity: 1},
	)

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1", Email: "u@example.com"})

	require.NoError(t, err)
	assert.False(t, result.Partial)
	require.NotNil(t, result.Ticket)
	assert.NotEmpty(t, result.Ticket.Code)
	assert.Len(t, result.Ticket.Items, 2)
	assert.Empty(t, result.Ticket.FailedItems)
	assert.Equal(t, "user-1", result.Ticket.UserID)
	assert.Equal(t, "u@example.com", result.Ticket.Email)

	// Stock was decremented
	assert.Equal(t, 8, f.products.GetStock("p1"))
	assert.Equal(t, 4, f.products.GetStock("p2"))

	// Cart was fully drained
	cart, ok := f.carts.GetCart("cart-user-1")
	require.True(t, ok)
	assert.Empty(t, cart.Items)
}

func TestPurchase_PartialSuccess(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedProduct("p2", 250, 1)
	f.seedCart("user-1",
		model.CartItem{ProductID: "p1", Title: "Product p1", Quantity: 2},
		model.CartItem{ProductID: "p2", Title: "Product p2", Quantity: 5},
	)

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1", Email: "u@example.com"})

	require.NoError(t, err)
	assert.True(t, result.Partial)
	require.Len(t, result.Ticket.Items, 1)
	assert.Equal(t, "p1", result.Ticket.Items[0].ProductID)

	require.Len(t, result.Ticket.FailedItems, 1)
	failed := result.Ticket.FailedItems[0]
	assert.Equal(t, "p2", failed.ProductID)
	assert.Equal(t, 5, failed.Requested)
	assert.Equal(t, 1, failed.Available)
	assert.Equal(t, ReasonInsufficientStock, failed.Reason)

	// Failed line stays in the cart, purchased line is gone
	cart, ok := f.carts.GetCart("cart-user-1")
	require.True(t, ok)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)

	// Insufficient line did not touch stock
	assert.Equal(t, 1, f.products.GetStock("p2"))
}

func TestPurchase_ProductNotFound(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1",
		model.CartItem{ProductID: "p1", Title: "Product p1", Quantity: 1},
		model.CartItem{ProductID: "ghost", Title: "Gone", Quantity: 1},
	)

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	assert.True(t, result.Partial)
	require.Len(t, result.Ticket.FailedItems, 1)
	assert.Equal(t, "ghost", result.Ticket.FailedItems[0].ProductID)
	assert.Equal(t, ReasonProductNotFound, result.Ticket.FailedItems[0].Reason)
}

// ============================================
// Total Failure
// ============================================

func TestPurchase_AllItemsFail(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 0)
	f.seedCart("user-1",
		model.CartItem{ProductID: "p1", Title: "Product p1", Quantity: 2},
		model.CartItem{ProductID: "ghost", Title: "Gone", Quantity: 1},
	)

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	assert.ErrorIs(t, err, ErrNoPurchasableItems)
	assert.Nil(t, result)

	// No ticket was created and the cart is untouched
	assert.Empty(t, f.tickets.Tickets())
	cart, ok := f.carts.GetCart("cart-user-1")
	require.True(t, ok)
	assert.Len(t, cart.Items, 2)
}

func TestPurchase_EmptyCart(t *testing.T) {
	f := newFixture()
	f.seedCart("user-1")

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, result)
}

func TestPurchase_NoActiveCart(t *testing.T) {
	f := newFixture()

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "nobody"})

	// A never-created cart is reported the same way as an empty one, so the
	// caller gets a client error rather than a storage error.
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.NotErrorIs(t, err, store.ErrCartNotFound)
	assert.Nil(t, result)
}

// ============================================
// Totals
// ============================================

func TestPurchase_Totals(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	totals := result.Ticket.Totals
	assert.Equal(t, 100, totals.Subtotal)
	assert.Equal(t, 21, totals.Tax)
	assert.Equal(t, 121, totals.Total)
	assert.Equal(t, 121, result.Ticket.Amount)
}

func TestPurchase_TotalsWithShippingAndDiscount(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 1000, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 2})

	result, err := f.svc.Purchase(context.Background(), Request{
		UserID:   "user-1",
		Shipping: 500,
		Discount: 300,
	})

	require.NoError(t, err)
	totals := result.Ticket.Totals
	assert.Equal(t, 2000, totals.Subtotal)
	assert.Equal(t, 420, totals.Tax)
	assert.Equal(t, 500, totals.Shipping)
	assert.Equal(t, 300, totals.Discount)
	assert.Equal(t, 2620, totals.Total)
}

func TestPurchase_TaxRoundsHalfUp(t *testing.T) {
	f := newFixture()
	// 33 * 21% = 6.93, rounds to 7
	f.seedProduct("p1", 33, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 7, result.Ticket.Totals.Tax)
}

func TestPurchase_DiscountNeverGoesNegative(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})

	result, err := f.svc.Purchase(context.Background(), Request{
		UserID:   "user-1",
		Discount: 100000,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Ticket.Totals.Total)
}

func TestPurchase_UsesLivePriceNotCartSnapshot(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 200, 10)
	// Cart snapshot has a stale price
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1, Price: 100})

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, 200, result.Ticket.Items[0].Price)
	assert.Equal(t, 200, result.Ticket.Totals.Subtotal)
}

// ============================================
// Failure Handling
// ============================================

func TestPurchase_TransientErrorBecomesFailedItem(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedProduct("p2", 100, 10)
	f.seedCart("user-1",
		model.CartItem{ProductID: "p1", Quantity: 1},
		model.CartItem{ProductID: "p2", Quantity: 1},
	)

	f.products.DecrementCallback = func(ctx context.Context, id string, quantity int) (*model.Product, error) {
		if id == "p2" {
			return nil, errors.New("connection reset")
		}
		return &model.Product{ID: id, Title: "Product " + id, Price: 100, Stock: 9}, nil
	}

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	assert.True(t, result.Partial)
	require.Len(t, result.Ticket.Items, 1)
	assert.Equal(t, "p1", result.Ticket.Items[0].ProductID)
	require.Len(t, result.Ticket.FailedItems, 1)
	assert.Equal(t, "p2", result.Ticket.FailedItems[0].ProductID)
	assert.Equal(t, ReasonProcessingError, result.Ticket.FailedItems[0].Reason)
}

func TestPurchase_TicketPersistFailureRestoresStock(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 3})

	f.tickets.CreateCallback = func(ctx context.Context, tk *model.Ticket) error {
		return errors.New("database down")
	}

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.Error(t, err)
	assert.Nil(t, result)

	// Compensating increment restored the decremented stock
	assert.Equal(t, 10, f.products.GetStock("p1"))
	require.Len(t, f.products.IncrementCalls, 1)
	assert.Equal(t, "p1", f.products.IncrementCalls[0].ProductID)
	assert.Equal(t, 3, f.products.IncrementCalls[0].Quantity)

	// Cart was not drained
	cart, ok := f.carts.GetCart("cart-user-1")
	require.True(t, ok)
	assert.Len(t, cart.Items, 1)
}

func TestPurchase_CartReplaceFailureDoesNotFailPurchase(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})

	replaceAttempts := 0
	f.carts.ReplaceCallback = func(ctx context.Context, cartID string, items []model.CartItem) error {
		replaceAttempts++
		return errors.New("write conflict")
	}

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	// The ticket is durable, so the purchase still succeeds
	require.NoError(t, err)
	require.NotNil(t, result.Ticket)
	assert.Equal(t, 2, replaceAttempts)
}

func TestPurchase_PublishFailureDoesNotFailPurchase(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})
	f.publisher.err = errors.New("kafka unreachable")

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	require.NotNil(t, result.Ticket)
}

func TestPurchase_PublishesTicketCreated(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 10)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 1})

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1", Email: "u@example.com"})

	require.NoError(t, err)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventTicketCreated, f.publisher.events[0].EventType)
	assert.Equal(t, result.Ticket.ID, f.publisher.events[0].Key)

	event, ok := f.publisher.events[0].Payload.(TicketCreated)
	require.True(t, ok)
	assert.Equal(t, result.Ticket.Code, event.Code)
	assert.Equal(t, "u@example.com", event.Email)
	assert.Equal(t, result.Ticket.Totals.Total, event.Total)
}

// ============================================
// Exact Drain and Concurrency
// ============================================

func TestPurchase_ExactStockDrain(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 5)
	f.seedCart("user-1", model.CartItem{ProductID: "p1", Quantity: 5})

	result, err := f.svc.Purchase(context.Background(), Request{UserID: "user-1"})

	require.NoError(t, err)
	assert.False(t, result.Partial)
	assert.Equal(t, 0, f.products.GetStock("p1"))
}

func TestPurchase_NoOverselling(t *testing.T) {
	f := newFixture()
	f.seedProduct("p1", 100, 7)

	// 10 users each want 2 units of a product with only 7 in stock.
	const users = 10
	for i := 0; i < users; i++ {
		userID := string(rune('a' + i))
		f.seedCart(userID, model.CartItem{ProductID: "p1", Quantity: 2})
	}

	var wg sync.WaitGroup
	succeeded := make([]bool, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := string(rune('a' + i))
			result, err := f.svc.Purchase(context.Background(), Request{UserID: userID})
			succeeded[i] = err == nil && result != nil && !result.Partial
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range succeeded {
		if ok {
			wins++
		}
	}

	// At most 3 purchases of 2 units fit in 7; stock never goes negative.
	assert.Equal(t, 3, wins)
	assert.Equal(t, 1, f.products.GetStock("p1"))
}
