package repository

import (
	"sort"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

// Page filters, sorts and pages products in memory. Drivers without native
// text search use it after narrowing the candidate set.
func Page(products []models.Product, filter models.ProductFilter) ([]models.Product, int) {
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	SortProducts(matched)

	total := len(matched)
	if filter.Offset >= total {
		return []models.Product{}, total
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total
}

// SortProducts orders products by rating, then name.
func SortProducts(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return models.Less(products[i], products[j])
	})
}

// Categorize groups products by category, sorted by name.
func Categorize(products []models.Product) []models.Category {
	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}

	out := make([]models.Category, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.Category{
			Name:        name,
			DisplayName: models.CategoryDisplayName(name),
			Count:       n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CountRatings returns how many products carry each grade. Every grade is
// present in the result.
func CountRatings(products []models.Product) map[nutriscore.Grade]int {
	counts := make(map[nutriscore.Grade]int, 5)
	for _, g := range nutriscore.Grades() {
		counts[g] = 0
	}
	for _, p := range products {
		if p.Rating.Valid() {
			counts[p.Rating]++
		}
	}
	return counts
}
