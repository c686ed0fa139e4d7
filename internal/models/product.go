package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

// Product is a catalog entry with its persisted Nutri-Score.
// Rating and NutriScore are always derived from NutritionFacts on write.
type Product struct {
	ID             string                    `json:"_id"`
	Name           string                    `json:"name"`
	Brand          string                    `json:"brand,omitempty"`
	Category       string                    `json:"category"`
	Description    string                    `json:"description,omitempty"`
	Price          float64                   `json:"price,omitempty"`
	Ingredients    []string                  `json:"ingredients,omitempty"`
	NutritionFacts nutriscore.NutritionFacts `json:"nutritionFacts"`
	Rating         nutriscore.Grade          `json:"rating"`
	NutriScore     int                       `json:"nutriScore"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// ProductInput is the create/update payload. Any rating sent by a client is
// ignored; the server grades the product itself.
type ProductInput struct {
	Name           string                    `json:"name" validate:"required,max=200"`
	Brand          string                    `json:"brand" validate:"max=100"`
	Category       string                    `json:"category" validate:"required,category"`
	Description    string                    `json:"description" validate:"max=2000"`
	Price          float64                   `json:"price" validate:"gte=0"`
	Ingredients    []string                  `json:"ingredients" validate:"max=100,dive,max=200"`
	NutritionFacts nutriscore.NutritionFacts `json:"nutritionFacts"`
}

// Normalize trims text fields, lowercases the category and drops empty
// ingredients.
func (in *ProductInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Description = strings.TrimSpace(in.Description)

	ingredients := in.Ingredients[:0]
	for _, ing := range in.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	in.Ingredients = ingredients
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Keyword  string
	Category string
	Rating   nutriscore.Grade
	Limit    int
	Offset   int
}

const (
	DefaultProductLimit = 20
	MaxProductLimit     = 100
)

// Matches reports whether p satisfies the keyword, category and rating
// criteria. Limit and offset are applied by the caller.
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Rating != "" && p.Rating != f.Rating {
		return false
	}
	if f.Keyword == "" {
		return true
	}

	kw := strings.ToLower(f.Keyword)
	if strings.Contains(strings.ToLower(p.Name), kw) ||
		strings.Contains(strings.ToLower(p.Brand), kw) ||
		strings.Contains(strings.ToLower(p.Description), kw) {
		return true
	}
	for _, ing := range p.Ingredients {
		if strings.Contains(strings.ToLower(ing), kw) {
			return true
		}
	}
	return false
}

// Less orders products by rating (A first) and then by name.
func Less(a, b Product) bool {
	if ra, rb := a.Rating.Rank(), b.Rating.Rank(); ra != rb {
		return ra < rb
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// Category is a product category with its display name and size.
type Category struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Count       int    `json:"count"`
}

var categoryDisplayNames = map[string]string{
	"protein_powder": "Protein Powder",
	"chips":          "Chips",
	"chocolates":     "Chocolates",
	"popcorn":        "Popcorn",
	"biscuits":       "Biscuits",
	"cereals":        "Cereals",
	"nuts":           "Nuts",
	"energy_bars":    "Energy Bars",
	"drinks":         "Drinks",
}

// CategoryDisplayName returns the human name of a category slug.
func CategoryDisplayName(slug string) string {
	if name, ok := categoryDisplayNames[slug]; ok {
		return name
	}

	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Rating is a grade together with its display attributes and how many
// products currently carry it.
type Rating struct {
	nutriscore.Info
	Count int `json:"count"`
}

// Suggestions are healthier alternatives within a product's category.
type Suggestions struct {
	Better []Product `json:"better"`
	Best   []Product `json:"best"`
}

// ApplyScore recomputes Rating and NutriScore from NutritionFacts and
// returns the full evaluation.
func (p *Product) ApplyScore() nutriscore.Result {
	res := nutriscore.Evaluate(p.NutritionFacts)
	p.Rating = res.Grade
	p.NutriScore = res.Score
	return res
}

// NewProduct builds an unsaved, scored product from input.
func NewProduct(id string, in ProductInput, now time.Time) Product {
	p := Product{
		ID:        id,
		CreatedAt: now,
	}
	p.Apply(in, now)
	return p
}

// Apply copies the editable fields of in onto p and rescores it.
func (p *Product) Apply(in ProductInput, now time.Time) {
	p.Name = in.Name
	p.Brand = in.Brand
	p.Category = in.Category
	p.Description = in.Description
	p.Price = in.Price
	p.Ingredients = in.Ingredients
	p.NutritionFacts = in.NutritionFacts
	p.UpdatedAt = now
	p.ApplyScore()
}
