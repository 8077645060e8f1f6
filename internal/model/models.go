package model

import "time"

// Product statuses
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Cart statuses
const (
	CartStatusActive    = "active"
	CartStatusCompleted = "completed"
	CartStatusCancelled = "cancelled"
)

// Ticket statuses
const (
	TicketStatusCompleted = "completed"
	TicketStatusRefunded  = "refunded"
)

// User roles
const (
	RoleUser    = "user"
	RolePremium = "premium"
	RoleAdmin   = "admin"
)

// Product is a sellable item. Prices are integer minor units (cents).
// OwnerID is empty for system-owned products (created by an admin).
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	Stock       int       `json:"stock"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartItem is one line of a cart. Title and Price are snapshots taken when
// the item was added; the checkout flow re-reads the live price at decrement
// time and never trusts these for ticket totals.
type CartItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

// Cart holds one user's in-progress selection. At most one active cart
// exists per user.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TicketItem is an immutable snapshot of a successfully purchased line.
type TicketItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	Subtotal  int    `json:"subtotal"`
}

// FailedItem records a line that could not be purchased, kept on the ticket
// verbatim for audit and display.
type FailedItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// Totals is the monetary breakdown of a ticket.
// Total = Subtotal + Tax + Shipping - Discount.
type Totals struct {
	Subtotal int `json:"subtotal"`
	Tax      int `json:"tax"`
	Shipping int `json:"shipping"`
	Discount int `json:"discount"`
	Total    int `json:"total"`
}

// Ticket is the immutable record of a completed (possibly partial) purchase.
// Totals are computed once at creation and never recomputed.
type Ticket struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	Items       []TicketItem `json:"items"`
	FailedItems []FailedItem `json:"failed_items,omitempty"`
	Totals      Totals       `json:"totals"`
	Amount      int          `json:"amount"`
	Status      string       `json:"status"`
	PurchasedAt time.Time    `json:"purchased_at"`
}

// User is an account on the platform.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Pagination describes one page of a paginated listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// SalesStats are aggregates over completed tickets in a date range.
type SalesStats struct {
	TotalSales    int       `json:"total_sales"`
	TotalTickets  int       `json:"total_tickets"`
	AverageTicket int       `json:"average_ticket"`
	TotalProducts int       `json:"total_products"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}
