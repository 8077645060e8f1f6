package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/infrastructure/store"
	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrForbidden    = errors.New("not allowed to manage this product")
	ErrInvalidInput = errors.New("invalid product data")
)

// Service owns the product catalog and its write authorization rules:
// premium users manage only their own products, admins manage everything.
type Service struct {
	products store.ProductStore
}

func NewService(products store.ProductStore) *Service {
	return &Service{products: products}
}

// CreateInput carries the writable product fields.
type CreateInput struct {
	Title       string
	Description string
	Price       int
	Stock       int
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidInput
	}
	if in.Price < 0 || in.Stock < 0 {
		return ErrInvalidInput
	}
	return nil
}

// Create adds a product. Admin-created products are system-owned (no owner);
// premium-created products belong to their creator.
func (s *Service) Create(ctx context.Context, actor *model.User, in CreateInput) (*model.Product, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RolePremium {
		return nil, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	ownerID := ""
	if actor.Role == model.RolePremium {
		ownerID = actor.ID
	}

	now := time.Now()
	p := &model.Product{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		OwnerID:     ownerID,
		Status:      model.ProductStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.products.Get(ctx, id)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) List(ctx context.Context) ([]*model.Product, error) {
	return s.products.List(ctx)
}

// Update rewrites a product's writable fields after an ownership check.
func (s *Service) Update(ctx context.Context, actor *model.User, id string, in CreateInput) (*model.Product, error) {
	p, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate soft-deletes a product. Inactive products stay readable so
// existing tickets and carts keep resolving, but cannot be added to carts.
func (s *Service) Deactivate(ctx context.Context, actor *model.User, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	return s.products.SetStatus(ctx, id, model.ProductStatusInactive)
}

func (s *Service) authorize(ctx context.Context, actor *model.User, id string) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case model.RoleAdmin:
		return p, nil
	case model.RolePremium:
		if p.OwnerID == actor.ID {
			return p, nil
		}
	}
	return nil, ErrForbidden
}
