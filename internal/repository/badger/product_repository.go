package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

// ProductRepository implements repository.ProductRepository on Badger.
type ProductRepository struct {
	db *Store
}

func NewProductRepository(db *Store) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetAll narrows by category and rating in the store, then applies keyword
// matching, ordering and paging in memory.
func (r *ProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	query := badgerhold.Where("ID").Ne("")
	if filter.Category != "" {
		query = query.And("Category").Eq(filter.Category)
	}
	if filter.Rating != "" {
		query = query.And("Rating").Eq(filter.Rating)
	}

	var products []models.Product
	if err := r.db.store.Find(&products, query); err != nil {
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}

	page, total := repository.Page(products, filter)
	return page, total, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.store.Get(id, &p); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.store.Upsert(product.ID, product); err != nil {
		return fmt.Errorf("failed to store product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.db.store.Update(product.ID, product); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return repository.ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.store.Delete(id, &models.Product{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return repository.ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var products []models.Product
	if err := r.db.store.Find(&products, nil); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return repository.Categorize(products), nil
}

func (r *ProductRepository) CountByRating(ctx context.Context) (map[nutriscore.Grade]int, error) {
	counts := make(map[nutriscore.Grade]int, 5)
	for _, g := range nutriscore.Grades() {
		n, err := r.db.store.Count(&models.Product{}, badgerhold.Where("Rating").Eq(g))
		if err != nil {
			return nil, fmt.Errorf("failed to count %s products: %w", g, err)
		}
		counts[g] = int(n)
	}
	return counts, nil
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products, _, err := r.GetAll(ctx, models.ProductFilter{Category: category})
	return products, err
}
