package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProductService() *ProductService {
	return NewProductService(repository.NewInMemoryProductRepository(), discardLogger())
}

func mustCreate(t *testing.T, s *ProductService, name, category string, facts nutriscore.NutritionFacts) *models.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), models.ProductInput{
		Name:           name,
		Category:       category,
		NutritionFacts: facts,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s) error = %v", name, err)
	}
	return p
}

func TestProductService_CreateProduct(t *testing.T) {
	s := newProductService()

	tests := []struct {
		name       string
		in         models.ProductInput
		wantErr    error
		wantRating nutriscore.Grade
	}{
		{
			name: "graded from nutrition facts",
			in: models.ProductInput{
				Name:           "  Salty Snack ",
				Category:       "Chips",
				NutritionFacts: nutriscore.NutritionFacts{Calories: 160, Sugar: 1, Fat: 10, Fiber: 1.2, Protein: 2},
			},
			wantRating: nutriscore.GradeC,
		},
		{
			name:       "no nutrition facts grades B",
			in:         models.ProductInput{Name: "Water", Category: "drinks"},
			wantRating: nutriscore.GradeB,
		},
		{
			name:    "missing name",
			in:      models.ProductInput{Category: "chips"},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "invalid category",
			in:      models.ProductInput{Name: "X", Category: "bad category!"},
			wantErr: ErrInvalidProduct,
		},
		{
			name: "negative nutrient",
			in: models.ProductInput{
				Name:           "X",
				Category:       "chips",
				NutritionFacts: nutriscore.NutritionFacts{Fat: -1},
			},
			wantErr: ErrInvalidProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.CreateProduct(context.Background(), tt.in)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateProduct() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateProduct() unexpected error = %v", err)
			}

			if p.ID == "" {
				t.Error("CreateProduct() product ID is empty")
			}
			if p.Rating != tt.wantRating {
				t.Errorf("Rating = %s, want %s", p.Rating, tt.wantRating)
			}
			if p.NutriScore != nutriscore.Evaluate(p.NutritionFacts).Score {
				t.Errorf("NutriScore = %d, not the engine score", p.NutriScore)
			}

			stored, err := s.GetProduct(context.Background(), p.ID)
			if err != nil {
				t.Fatalf("GetProduct() error = %v", err)
			}
			if stored.Rating != p.Rating {
				t.Errorf("stored rating = %s, want %s", stored.Rating, p.Rating)
			}
		})
	}

	t.Run("input is normalised", func(t *testing.T) {
		p := mustCreate(t, s, "  Spaced  ", "Chips", nutriscore.NutritionFacts{})
		if p.Name != "Spaced" || p.Category != "chips" {
			t.Errorf("name %q category %q, want trimmed and lowercased", p.Name, p.Category)
		}
	})
}

func TestProductService_UpdateProduct_Regrades(t *testing.T) {
	s := newProductService()
	ctx := context.Background()

	p := mustCreate(t, s, "Bar", "energy_bars", nutriscore.NutritionFacts{Calories: 880, Sugar: 40.5})
	if p.Rating != nutriscore.GradeE {
		t.Fatalf("initial rating = %s, want E", p.Rating)
	}

	updated, err := s.UpdateProduct(ctx, p.ID, models.ProductInput{
		Name:           "Bar",
		Category:       "energy_bars",
		NutritionFacts: nutriscore.NutritionFacts{Fiber: 9},
	})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if updated.Rating != nutriscore.GradeA {
		t.Errorf("rating after update = %s, want A", updated.Rating)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt changed on update")
	}

	_, err = s.UpdateProduct(ctx, "missing", models.ProductInput{Name: "X", Category: "chips"})
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("UpdateProduct(missing) error = %v, want ErrProductNotFound", err)
	}

	_, err = s.UpdateProduct(ctx, p.ID, models.ProductInput{Category: "chips"})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("UpdateProduct(invalid) error = %v, want ErrInvalidProduct", err)
	}
}

func TestProductService_DeleteProduct(t *testing.T) {
	s := newProductService()
	ctx := context.Background()

	p := mustCreate(t, s, "Gone", "chips", nutriscore.NutritionFacts{})
	if err := s.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if _, err := s.GetProduct(ctx, p.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("GetProduct() after delete error = %v", err)
	}
	if err := s.DeleteProduct(ctx, p.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("second DeleteProduct() error = %v", err)
	}
}

func TestProductService_ListProducts(t *testing.T) {
	s := NewProductService(repository.NewSeededProductRepository(), discardLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  models.ProductFilter
		wantErr error
		maxLen  int
	}{
		{"default limit", models.ProductFilter{}, nil, models.DefaultProductLimit},
		{"explicit limit", models.ProductFilter{Limit: 3}, nil, 3},
		{"limit too large", models.ProductFilter{Limit: 101}, ErrInvalidFilter, 0},
		{"negative limit", models.ProductFilter{Limit: -1}, ErrInvalidFilter, 0},
		{"negative offset", models.ProductFilter{Offset: -1}, ErrInvalidFilter, 0},
		{"invalid rating", models.ProductFilter{Rating: "F"}, ErrInvalidFilter, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := s.ListProducts(ctx, tt.filter)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ListProducts() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListProducts() error = %v", err)
			}
			if len(products) > tt.maxLen {
				t.Errorf("len(products) = %d, want <= %d", len(products), tt.maxLen)
			}
			if total < len(products) {
				t.Errorf("total = %d, less than page size %d", total, len(products))
			}
			for i := 1; i < len(products); i++ {
				if models.Less(products[i], products[i-1]) {
					t.Errorf("products out of order at %d: %s before %s", i, products[i-1].Name, products[i].Name)
				}
			}
		})
	}
}

func TestProductService_Ratings(t *testing.T) {
	s := newProductService()
	mustCreate(t, s, "A1", "chips", nutriscore.NutritionFacts{Fiber: 9})
	mustCreate(t, s, "A2", "chips", nutriscore.NutritionFacts{Protein: 8})
	mustCreate(t, s, "C1", "chips", nutriscore.NutritionFacts{Fat: 3})

	ratings, err := s.Ratings(context.Background())
	if err != nil {
		t.Fatalf("Ratings() error = %v", err)
	}
	if len(ratings) != 5 {
		t.Fatalf("len(ratings) = %d, want 5", len(ratings))
	}

	want := map[nutriscore.Grade]int{"A": 2, "B": 0, "C": 1, "D": 0, "E": 0}
	for i, r := range ratings {
		if r.Code != nutriscore.Grades()[i] {
			t.Errorf("ratings[%d] = %s, want %s", i, r.Code, nutriscore.Grades()[i])
		}
		if r.Count != want[r.Code] {
			t.Errorf("%s count = %d, want %d", r.Code, r.Count, want[r.Code])
		}
		if r.Color == "" || r.Name == "" {
			t.Errorf("%s missing display info: %+v", r.Code, r)
		}
	}
}

func TestProductService_Suggestions(t *testing.T) {
	s := newProductService()
	ctx := context.Background()

	target := mustCreate(t, s, "Target", "cereals", nutriscore.NutritionFacts{Fat: 3})       // C
	a := mustCreate(t, s, "Alpha", "cereals", nutriscore.NutritionFacts{Fiber: 9})           // A
	b := mustCreate(t, s, "Bravo", "cereals", nutriscore.NutritionFacts{})                   // B
	mustCreate(t, s, "Charlie", "cereals", nutriscore.NutritionFacts{Fat: 4})                // C
	mustCreate(t, s, "Delta", "cereals", nutriscore.NutritionFacts{Calories: 880, Fat: 1.5}) // D
	mustCreate(t, s, "Other Category", "chips", nutriscore.NutritionFacts{Fiber: 9})         // A, other category

	got, err := s.Suggestions(ctx, target.ID)
	if err != nil {
		t.Fatalf("Suggestions() error = %v", err)
	}

	if len(got.Better) != 2 || got.Better[0].ID != a.ID || got.Better[1].ID != b.ID {
		t.Errorf("Better = %v, want [Alpha Bravo]", productNames(got.Better))
	}
	if len(got.Best) != 1 || got.Best[0].ID != a.ID {
		t.Errorf("Best = %v, want [Alpha]", productNames(got.Best))
	}

	best, err := s.Suggestions(ctx, a.ID)
	if err != nil {
		t.Fatalf("Suggestions(A) error = %v", err)
	}
	if len(best.Better) != 0 || len(best.Best) != 0 {
		t.Errorf("A-rated product got suggestions: %+v", best)
	}

	if _, err := s.Suggestions(ctx, "missing"); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Suggestions(missing) error = %v", err)
	}
}

func TestProductService_SuggestionsCapped(t *testing.T) {
	s := newProductService()
	target := mustCreate(t, s, "Target", "nuts", nutriscore.NutritionFacts{Calories: 880, Sugar: 40.5})
	for i := 0; i < 10; i++ {
		mustCreate(t, s, string(rune('a'+i)), "nuts", nutriscore.NutritionFacts{Fiber: 9})
	}

	got, err := s.Suggestions(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("Suggestions() error = %v", err)
	}
	if len(got.Better) != maxSuggestions || len(got.Best) != maxSuggestions {
		t.Errorf("len(Better) = %d len(Best) = %d, want %d", len(got.Better), len(got.Best), maxSuggestions)
	}
}

func TestProductService_PreviewMatchesPersisted(t *testing.T) {
	s := newProductService()
	facts := nutriscore.NutritionFacts{Calories: 250, Sugar: 12, Fat: 8, Fiber: 3, Protein: 6}

	preview := s.Preview(facts)
	p := mustCreate(t, s, "Same", "chips", facts)

	if preview.Grade != p.Rating || preview.Score != p.NutriScore {
		t.Errorf("preview %s/%d, persisted %s/%d", preview.Grade, preview.Score, p.Rating, p.NutriScore)
	}
}

func TestProductService_Import(t *testing.T) {
	s := newProductService()

	result, err := s.Import(context.Background(), []models.ProductInput{
		{Name: "Good", Category: "cereals", NutritionFacts: nutriscore.NutritionFacts{Fiber: 9}},
		{Name: "", Category: "cereals"},
		{Name: "Okay", Category: "cereals"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
	if len(result.Failed) != 1 || result.Failed[0].Index != 1 {
		t.Errorf("Failed = %+v, want index 1", result.Failed)
	}
	if result.ByRating[nutriscore.GradeA] != 1 || result.ByRating[nutriscore.GradeB] != 1 {
		t.Errorf("ByRating = %v", result.ByRating)
	}
}

func productNames(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
