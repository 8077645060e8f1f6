package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/api/middleware"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/cart"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/checkout"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/product"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/domain/ticket"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

type Handlers struct {
	products *product.Service
	carts    *cart.Service
	checkout *checkout.Service
	tickets  *ticket.Service
}

func NewHandlers(products *product.Service, carts *cart.Service, checkoutSvc *checkout.Service, tickets *ticket.Service) *Handlers {
	return &Handlers{
		products: products,
		carts:    carts,
		checkout: checkoutSvc,
		tickets:  tickets,
	}
}

// Product Handlers

type productRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Stock       int    `json:"stock"`
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.products.Create(r.Context(), actor, product.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondProductError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/products/")
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		respondProductError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := extractPathParam(r.URL.Path, "/api/products/")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.products.Update(r.Context(), actor, id, product.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondProductError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := extractPathParam(r.URL.Path, "/api/products/")

	if err := h.products.Deactivate(r.Context(), actor, id); err != nil {
		respondProductError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deactivated"})
}

func respondProductError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		respondJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, product.ErrForbidden):
		respondJSONError(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, product.ErrInvalidInput):
		respondJSONError(w, "Invalid product data", http.StatusBadRequest)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	c, err := h.carts.GetOrCreate(r.Context(), userID)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := extractPathParam(r.URL.Path, "/api/cart/items/")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.carts.SetItemQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := extractPathParam(r.URL.Path, "/api/cart/items/")

	c, err := h.carts.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		respondJSONError(w, "Cart not found", http.StatusNotFound)
	case errors.Is(err, cart.ErrProductNotFound):
		respondJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, cart.ErrProductInactive):
		respondJSONError(w, "Product is not available", http.StatusConflict)
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondJSONError(w, "Quantity must be positive", http.StatusBadRequest)
	case errors.Is(err, cart.ErrOwnProduct):
		respondJSONError(w, "Cannot add your own product to the cart", http.StatusForbidden)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Checkout Handler

type checkoutResponse struct {
	Ticket  *model.Ticket `json:"ticket"`
	Partial bool          `json:"partial"`
	Message string        `json:"message"`
}

func checkoutMessage(result *checkout.Result) string {
	if !result.Partial {
		return "Purchase completed successfully"
	}
	return fmt.Sprintf("%d of %d items purchased; %d could not be purchased and remain in your cart",
		len(result.Ticket.Items),
		len(result.Ticket.Items)+len(result.Ticket.FailedItems),
		len(result.Ticket.FailedItems))
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Shipping int `json:"shipping"`
		Discount int `json:"discount"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Shipping < 0 || req.Discount < 0 {
		respondJSONError(w, "Shipping and discount must not be negative", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.Purchase(r.Context(), checkout.Request{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Shipping: req.Shipping,
		Discount: req.Discount,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondJSONError(w, "Cart is empty", http.StatusBadRequest)
		case errors.Is(err, checkout.ErrNoPurchasableItems):
			respondJSONError(w, "No items could be purchased", http.StatusBadRequest)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := checkoutResponse{
		Ticket:  result.Ticket,
		Partial: result.Partial,
		Message: checkoutMessage(result),
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Ticket Handlers

func (h *Handlers) GetTickets(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	tickets, pagination, err := h.tickets.FindByUser(r.Context(), userID, page, pageSize)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tickets":    tickets,
		"pagination": pagination,
	})
}

func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	code := extractPathParam(r.URL.Path, "/api/tickets/")

	t, err := h.tickets.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			respondJSONError(w, "Ticket not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Tickets are private: owner or admin only.
	claims, _ := middleware.GetUserFromContext(r.Context())
	if claims == nil || (t.UserID != claims.UserID && claims.Role != model.RoleAdmin) {
		respondJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// GetSalesStats returns sales aggregates for a date range (admin only,
// enforced by the router). Dates are RFC 3339 or YYYY-MM-DD.
func (h *Handlers) GetSalesStats(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		respondJSONError(w, "Invalid from date", http.StatusBadRequest)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		respondJSONError(w, "Invalid to date", http.StatusBadRequest)
		return
	}

	stats, err := h.tickets.SalesStats(r.Context(), from, to)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Helper functions

func parseDateParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// actor rebuilds a minimal user from the JWT claims for authorization checks.
func (h *Handlers) actor(r *http.Request) (*model.User, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return &model.User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, true
}
