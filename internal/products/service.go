// Package products implements catalog CRUD.
package products

import (
	"context"
	"fmt"
	"strings"

	"storefront.dev/internal/auth"
	"storefront.dev/internal/ids"
)

// Input carries the writable product fields.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int64  `json:"stock"`
}

func (in *Input) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", auth.ErrInvalidInput)
	}
	if in.PriceCents < 0 {
		return fmt.Errorf("%w: price cannot be negative", auth.ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", auth.ErrInvalidInput)
	}
	return nil
}

// Service validates catalog operations.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Product{
		ID:          ids.New(),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int, afterID string) ([]Product, error) {
	return s.store.List(ctx, limit, afterID)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, &Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
