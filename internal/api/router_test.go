package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/auth"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/cart"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/checkout"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/product"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/ticket"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/user"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store/mocks"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return nil
}

type testEnv struct {
	router   http.Handler
	jwt      *auth.JWTService
	products *mocks.MockProductStore
	carts    *mocks.MockCartStore
	tickets  *mocks.MockTicketStore
}

func newTestEnv() *testEnv {
	products := mocks.NewMockProductStore()
	carts := mocks.NewMockCartStore()
	tickets := mocks.NewMockTicketStore()
	users := mocks.NewMockUserStore()

	productSvc := product.NewService(products)
	cartSvc := cart.NewService(carts, products)
	ticketSvc := ticket.NewService(tickets, "TCK")
	checkoutSvc := checkout.NewService(products, carts, ticketSvc, noopPublisher{}, 2100)
	userSvc := user.NewService(users)

	jwtService := auth.NewJWTService("test-secret-key-with-enough-length", time.Hour)

	router := NewRouter(RouterConfig{
		Handlers:     NewHandlers(productSvc, cartSvc, checkoutSvc, ticketSvc),
		AuthHandlers: NewAuthHandlers(userSvc, jwtService),
		JWTService:   jwtService,
	})

	return &testEnv{
		router:   router,
		jwt:      jwtService,
		products: products,
		carts:    carts,
		tickets:  tickets,
	}
}

func (e *testEnv) tokenFor(userID, email, role string) string {
	token, _, _ := e.jwt.GenerateToken(userID, email, role)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// ============================================
// Auth Flow
// ============================================

func TestRouter_RegisterAndLogin(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "New User",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "user", registered.User.Role)

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var loggedIn AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loggedIn))

	// Token works against a protected route
	rec = env.do(http.MethodGet, "/api/auth/me", loggedIn.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	env := newTestEnv()

	env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "u@example.com", "password": "password123", "name": "U",
	})

	rec := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "u@example.com", "password": "wrongwrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Product Routes
// ============================================

func TestRouter_ProductPermissions(t *testing.T) {
	env := newTestEnv()
	body := map[string]any{"title": "Mug", "price": 1000, "stock": 5}

	// Anonymous cannot create
	rec := env.do(http.MethodPost, "/api/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Plain user cannot create
	rec = env.do(http.MethodPost, "/api/products", env.tokenFor("u1", "u@example.com", "user"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Premium can
	rec = env.do(http.MethodPost, "/api/products", env.tokenFor("s1", "s@example.com", "premium"), body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Listing is public
	rec = env.do(http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================
// Cart and Checkout Flow
// ============================================

func TestRouter_CheckoutFlow(t *testing.T) {
	env := newTestEnv()
	env.products.SetProduct(&model.Product{
		ID: "p1", Title: "Mug", Price: 100, Stock: 10, Status: model.ProductStatusActive,
	})
	token := env.tokenFor("buyer-1", "buyer@example.com", "user")

	rec := env.do(http.MethodPost, "/api/cart/items", token, map[string]any{
		"product_id": "p1", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/cart/purchase", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Ticket)
	assert.False(t, resp.Partial)
	assert.Equal(t, "Purchase completed successfully", resp.Message)
	assert.Equal(t, 200, resp.Ticket.Totals.Subtotal)
	assert.Equal(t, 242, resp.Ticket.Totals.Total)
	assert.Equal(t, "buyer@example.com", resp.Ticket.Email)

	// Ticket is retrievable by its code
	rec = env.do(http.MethodGet, "/api/tickets/"+resp.Ticket.Code, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// But not by another user
	rec = env.do(http.MethodGet, "/api/tickets/"+resp.Ticket.Code, env.tokenFor("other", "o@example.com", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Cart is drained
	rec = env.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c model.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Empty(t, c.Items)
}

func TestRouter_CheckoutEmptyCart(t *testing.T) {
	env := newTestEnv()
	token := env.tokenFor("buyer-1", "buyer@example.com", "user")

	// Create an empty cart first
	rec := env.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/cart/purchase", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cart is empty")
}

func TestRouter_CheckoutWithoutCart(t *testing.T) {
	env := newTestEnv()
	token := env.tokenFor("buyer-1", "buyer@example.com", "user")

	// The user never touched their cart; purchasing is still a client
	// error, not a server one.
	rec := env.do(http.MethodPost, "/api/cart/purchase", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cart is empty")
}

func TestRouter_CheckoutPartialMessage(t *testing.T) {
	env := newTestEnv()
	env.products.SetProduct(&model.Product{
		ID: "p1", Title: "Mug", Price: 100, Stock: 10, Status: model.ProductStatusActive,
	})
	env.products.SetProduct(&model.Product{
		ID: "p2", Title: "Plate", Price: 300, Stock: 1, Status: model.ProductStatusActive,
	})
	token := env.tokenFor("buyer-1", "buyer@example.com", "user")

	rec := env.do(http.MethodPost, "/api/cart/items", token, map[string]any{
		"product_id": "p1", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/cart/items", token, map[string]any{
		"product_id": "p2", "quantity": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/cart/purchase", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Partial)
	assert.Equal(t, "1 of 2 items purchased; 1 could not be purchased and remain in your cart", resp.Message)
}

// ============================================
// Ticket Routes
// ============================================

func TestRouter_TicketListPagination(t *testing.T) {
	env := newTestEnv()
	env.products.SetProduct(&model.Product{
		ID: "p1", Title: "Mug", Price: 100, Stock: 100, Status: model.ProductStatusActive,
	})
	token := env.tokenFor("buyer-1", "buyer@example.com", "user")

	for i := 0; i < 3; i++ {
		rec := env.do(http.MethodPost, "/api/cart/items", token, map[string]any{
			"product_id": "p1", "quantity": 1,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(http.MethodPost, "/api/cart/purchase", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/tickets?page=1&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tickets    []*model.Ticket   `json:"tickets"`
		Pagination *model.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tickets, 2)
	assert.Equal(t, 3, resp.Pagination.TotalItems)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
}

func TestRouter_SalesStatsAdminOnly(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/tickets/stats", env.tokenFor("u1", "u@example.com", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	from := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	path := fmt.Sprintf("/api/tickets/stats?from=%s", from)
	rec = env.do(http.MethodGet, path, env.tokenFor("a1", "a@example.com", "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
