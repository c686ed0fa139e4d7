package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]models.Product
}

// NewInMemoryProductRepository creates an empty in-memory product repository
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// NewSeededProductRepository creates an in-memory repository holding the
// demo catalog.
func NewSeededProductRepository() *InMemoryProductRepository {
	r := NewInMemoryProductRepository()
	for _, p := range SeedProducts(time.Now().UTC()) {
		r.products[p.ID] = p
	}
	return r
}

func (r *InMemoryProductRepository) snapshot() []models.Product {
	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}
	return products
}

// GetAll returns the matching page of products and the total match count
func (r *InMemoryProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, total := Page(r.snapshot(), filter)
	return page, total, nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *InMemoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = *product
	return nil
}

func (r *InMemoryProductRepository) Update(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; !exists {
		return ErrProductNotFound
	}
	r.products[product.ID] = *product
	return nil
}

func (r *InMemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *InMemoryProductRepository) Categories(ctx context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Categorize(r.snapshot()), nil
}

func (r *InMemoryProductRepository) CountByRating(ctx context.Context) (map[nutriscore.Grade]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return CountRatings(r.snapshot()), nil
}

func (r *InMemoryProductRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	page, _, err := r.GetAll(ctx, models.ProductFilter{Category: category})
	return page, err
}
