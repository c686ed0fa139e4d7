package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/validation"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidFilter  = errors.New("invalid filter")
)

// maxSuggestions caps each suggestion list.
const maxSuggestions = 6

// ProductService handles business logic for products
type ProductService struct {
	repo     repository.ProductRepository
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		validate: validation.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListProducts returns one page of matching products and the total number
// of matches. A zero limit means the default page size.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	if filter.Limit == 0 {
		filter.Limit = models.DefaultProductLimit
	}
	if filter.Limit < 0 || filter.Limit > models.MaxProductLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidFilter, models.MaxProductLimit)
	}
	if filter.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must not be negative", ErrInvalidFilter)
	}
	if filter.Rating != "" && !filter.Rating.Valid() {
		return nil, 0, fmt.Errorf("%w: rating must be one of A, B, C, D, E", ErrInvalidFilter)
	}

	return s.repo.GetAll(ctx, filter)
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) checkInput(in *models.ProductInput) error {
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, err.Error())
	}
	return nil
}

// CreateProduct validates input, grades it and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := s.checkInput(&in); err != nil {
		return nil, err
	}

	p := models.NewProduct(uuid.NewString(), in, s.now())
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", p.ID, "rating", p.Rating, "score", p.NutriScore)
	return &p, nil
}

// UpdateProduct replaces the editable fields of a product and regrades it.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	if err := s.checkInput(&in); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := p.Rating
	p.Apply(in, s.now())
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product updated", "product_id", p.ID, "rating", p.Rating, "previous_rating", previous)
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s *ProductService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.repo.Categories(ctx)
}

// Ratings returns every grade, best first, with its display attributes and
// product count.
func (s *ProductService) Ratings(ctx context.Context) ([]models.Rating, error) {
	counts, err := s.repo.CountByRating(ctx)
	if err != nil {
		return nil, err
	}

	grades := nutriscore.Grades()
	ratings := make([]models.Rating, len(grades))
	for i, g := range grades {
		ratings[i] = models.Rating{Info: g.Info(), Count: counts[g]}
	}
	return ratings, nil
}

// Suggestions returns healthier products from the same category: those
// with a strictly better grade, and the A-rated ones.
func (s *ProductService) Suggestions(ctx context.Context, id string) (*models.Suggestions, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	peers, err := s.repo.ListByCategory(ctx, p.Category)
	if err != nil {
		return nil, err
	}

	out := &models.Suggestions{Better: []models.Product{}, Best: []models.Product{}}
	for _, peer := range peers {
		if peer.ID == p.ID {
			continue
		}
		if len(out.Better) < maxSuggestions && peer.Rating.Better(p.Rating) {
			out.Better = append(out.Better, peer)
		}
		if len(out.Best) < maxSuggestions && peer.Rating == nutriscore.GradeA {
			out.Best = append(out.Best, peer)
		}
	}
	return out, nil
}

// Preview grades facts without storing anything.
func (s *ProductService) Preview(facts nutriscore.NutritionFacts) nutriscore.Result {
	return nutriscore.Evaluate(facts)
}

// ImportFailure describes one input that could not be imported.
type ImportFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created  int                      `json:"created"`
	Failed   []ImportFailure          `json:"failed,omitempty"`
	ByRating map[nutriscore.Grade]int `json:"byRating"`
}

// Import creates a product for each valid input. Invalid inputs are
// reported and skipped; a storage error aborts the import.
func (s *ProductService) Import(ctx context.Context, inputs []models.ProductInput) (ImportResult, error) {
	result := ImportResult{ByRating: make(map[nutriscore.Grade]int)}

	for i, in := range inputs {
		p, err := s.CreateProduct(ctx, in)
		if errors.Is(err, ErrInvalidProduct) {
			result.Failed = append(result.Failed, ImportFailure{Index: i, Name: in.Name, Error: err.Error()})
			continue
		}
		if err != nil {
			return result, fmt.Errorf("import product %d: %w", i, err)
		}
		result.Created++
		result.ByRating[p.Rating]++
	}

	s.logger.Info("products imported", "created", result.Created, "failed", len(result.Failed))
	return result, nil
}
