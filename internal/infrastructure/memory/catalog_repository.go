// Package memory holds in-process implementations of the server's storage
// and event ports, used when Redis or MySQL are not configured.
package memory

import (
	"context"
	"sync"

	"bidding-app/internal/domain"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	order    []int
	products map[int]domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{products: make(map[int]domain.Product)}
}

func (r *CatalogRepository) Seed(_ context.Context, products []domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) > 0 {
		return nil
	}
	for _, p := range products {
		if _, exists := r.products[p.ID]; exists {
			continue
		}
		r.order = append(r.order, p.ID)
		r.products[p.ID] = p
	}
	return nil
}

func (r *CatalogRepository) ListProducts(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.products[id])
	}
	return products, nil
}

func (r *CatalogRepository) GetProduct(_ context.Context, productID int) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *CatalogRepository) CompareAndSetBid(_ context.Context, productID int, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return false, domain.ErrProductNotFound
	}
	if p.CurrentBid != expected {
		return false, nil
	}
	p.CurrentBid = next
	r.products[productID] = p
	return true, nil
}
