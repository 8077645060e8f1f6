package cart

import (
	"context"
	"errors"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not available")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNotCartOwner    = errors.New("cart belongs to another user")
	// ErrOwnProduct blocks premium sellers from buying their own listings.
	ErrOwnProduct = errors.New("cannot add your own product to the cart")
)

// Service manages each user's single active cart.
type Service struct {
	carts    store.CartStore
	products store.ProductStore
}

func NewService(carts store.CartStore, products store.ProductStore) *Service {
	return &Service{carts: carts, products: products}
}

// GetOrCreate returns the user's active cart, creating one if none exists.
// Creation is idempotent: a concurrent create resolves to the same cart.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.carts.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrCartNotFound) {
		return nil, err
	}
	return s.carts.Create(ctx, userID)
}

// AddItem adds quantity of a product to the user's active cart, merging with
// an existing line for the same product. Title and price are snapshotted
// from the live product.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.Status != model.ProductStatusActive {
		return nil, ErrProductInactive
	}
	if p.OwnerID != "" && p.OwnerID == userID {
		return nil, ErrOwnProduct
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.carts.AddItem(ctx, cart.ID, model.CartItem{
		ProductID: p.ID,
		Title:     p.Title,
		Quantity:  quantity,
		Price:     p.Price,
	}); err != nil {
		return nil, err
	}
	return s.carts.FindActiveByUser(ctx, userID)
}

// SetItemQuantity overwrites a line's quantity. Zero removes the line.
func (s *Service) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.findOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		err = s.carts.RemoveItem(ctx, cart.ID, productID)
	} else {
		err = s.carts.SetItemQuantity(ctx, cart.ID, productID, quantity)
	}
	if err != nil {
		return nil, err
	}
	return s.carts.FindActiveByUser(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error) {
	cart, err := s.findOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.carts.FindActiveByUser(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.findOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.carts.FindActiveByUser(ctx, userID)
}

func (s *Service) findOwned(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.carts.FindActiveByUser(ctx, userID)
	if errors.Is(err, store.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	return cart, err
}
