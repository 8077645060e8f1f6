package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/api/middleware"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/auth"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// RouterConfig bundles the handler groups and the JWT service the
// middleware needs.
type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	requireSeller := func(next http.Handler) http.Handler {
		return requireAuth(middleware.RequireRole(model.RolePremium, model.RoleAdmin)(next))
	}
	requireAdmin := func(next http.Handler) http.Handler {
		return requireAuth(middleware.RequireRole(model.RoleAdmin)(next))
	}

	// Auth
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		cfg.AuthHandlers.Register(w, r)
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		cfg.AuthHandlers.Login(w, r)
	})
	mux.Handle("/api/auth/me", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		cfg.AuthHandlers.Me(w, r)
	})))

	// Products: listing and detail are public, writes need premium or admin.
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetProducts(w, r)
		case http.MethodPost:
			requireSeller(http.HandlerFunc(cfg.Handlers.CreateProduct)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetProduct(w, r)
		case http.MethodPut:
			requireSeller(http.HandlerFunc(cfg.Handlers.UpdateProduct)).ServeHTTP(w, r)
		case http.MethodDelete:
			requireSeller(http.HandlerFunc(cfg.Handlers.DeleteProduct)).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Cart
	mux.Handle("/api/cart", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetCart(w, r)
		case http.MethodDelete:
			cfg.Handlers.ClearCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/cart/items", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		cfg.Handlers.AddToCart(w, r)
	})))
	mux.Handle("/api/cart/items/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			cfg.Handlers.UpdateCartItem(w, r)
		case http.MethodDelete:
			cfg.Handlers.RemoveFromCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/api/cart/purchase", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		cfg.Handlers.Checkout(w, r)
	})))

	// Tickets
	mux.Handle("/api/tickets", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		cfg.Handlers.GetTickets(w, r)
	})))
	mux.Handle("/api/tickets/stats", requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		cfg.Handlers.GetSalesStats(w, r)
	})))
	mux.Handle("/api/tickets/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/stats") {
			http.NotFound(w, r)
			return
		}
		cfg.Handlers.GetTicket(w, r)
	})))

	// Health
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return withLogging(mux)
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
