package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

// seedNamespace keeps seed product ids stable across restarts.
var seedNamespace = uuid.MustParse("6f1c1f0e-7c2a-4d4e-9a53-2b8f0d9e4c11")

type nf = nutriscore.NutritionFacts

var seedInputs = []models.ProductInput{
	{Name: "Whey Protein Vanilla", Brand: "PureLift", Category: "protein_powder", Price: 39.99,
		Description: "Fast absorbing whey isolate",
		Ingredients: []string{"Whey protein isolate", "Natural vanilla flavor", "Sunflower lecithin"},
		NutritionFacts: nf{Calories: 120, Sugar: 1, Fat: 1, Fiber: 0, Protein: 25, Carbs: 3, Sodium: 50, Calcium: 120}},
	{Name: "Plant Protein Chocolate", Brand: "GreenFuel", Category: "protein_powder", Price: 34.5,
		Ingredients: []string{"Pea protein", "Brown rice protein", "Cocoa powder", "Stevia"},
		NutritionFacts: nf{Calories: 140, Sugar: 2, Fat: 3, Fiber: 4, Protein: 22, Carbs: 6, Sodium: 290, Iron: 6}},
	{Name: "Sea Salt Kettle Chips", Brand: "Crunch Co", Category: "chips", Price: 3.49,
		Description: "Kettle cooked potato chips",
		Ingredients: []string{"Potatoes", "Sunflower oil", "Sea salt"},
		NutritionFacts: nf{Calories: 160, Sugar: 1, Fat: 10, Fiber: 1.2, Protein: 2, Carbs: 15, Sodium: 170, SaturatedFat: 1}},
	{Name: "Baked Lentil Chips", Brand: "Crunch Co", Category: "chips", Price: 3.99,
		Ingredients: []string{"Lentil flour", "Rice flour", "Canola oil", "Salt"},
		NutritionFacts: nf{Calories: 110, Sugar: 0.5, Fat: 1.5, Fiber: 3, Protein: 4, Carbs: 18, Sodium: 220}},
	{Name: "Dark Chocolate 85%", Brand: "Cacao Lab", Category: "chocolates", Price: 4.25,
		Ingredients: []string{"Cocoa mass", "Cocoa butter", "Sugar"},
		NutritionFacts: nf{Calories: 170, Sugar: 4, Fat: 14, Fiber: 3.5, Protein: 3, Carbs: 10, SaturatedFat: 8, Iron: 3.4}},
	{Name: "Milk Chocolate Bar", Brand: "Cacao Lab", Category: "chocolates", Price: 1.99,
		Ingredients: []string{"Sugar", "Cocoa butter", "Whole milk powder", "Cocoa mass"},
		NutritionFacts: nf{Calories: 235, Sugar: 24, Fat: 13, Fiber: 1, Protein: 3, Carbs: 26, SaturatedFat: 8, Calcium: 90}},
	{Name: "Hazelnut Cocoa Spread", Brand: "Cacao Lab", Category: "chocolates", Price: 5.99,
		Description: "Sweet spread, values per 100 g",
		Ingredients: []string{"Sugar", "Palm oil", "Hazelnuts", "Skim milk powder", "Cocoa"},
		NutritionFacts: nf{Calories: 540, Sugar: 56, Fat: 31, Fiber: 3.4, Protein: 6.3, Carbs: 58, SaturatedFat: 10}},
	{Name: "Air Popped Popcorn", Brand: "Pop Farm", Category: "popcorn", Price: 2.79,
		Ingredients: []string{"Popcorn kernels", "Sea salt"},
		NutritionFacts: nf{Calories: 90, Sugar: 0, Fat: 1, Fiber: 3.5, Protein: 3, Carbs: 19, Sodium: 95}},
	{Name: "Caramel Popcorn", Brand: "Pop Farm", Category: "popcorn", Price: 3.29,
		Ingredients: []string{"Popcorn", "Brown sugar", "Butter", "Corn syrup"},
		NutritionFacts: nf{Calories: 180, Sugar: 16, Fat: 7, Fiber: 1.5, Protein: 1, Carbs: 29, SaturatedFat: 3}},
	{Name: "Oat Digestive Biscuits", Brand: "Morning Mill", Category: "biscuits", Price: 2.49,
		Ingredients: []string{"Oat flour", "Whole wheat flour", "Palm oil", "Sugar"},
		NutritionFacts: nf{Calories: 140, Sugar: 5, Fat: 6, Fiber: 2, Protein: 2, Carbs: 19, Sodium: 110}},
	{Name: "Chocolate Cream Sandwich", Brand: "Morning Mill", Category: "biscuits", Price: 1.89,
		Ingredients: []string{"Wheat flour", "Sugar", "Palm oil", "Cocoa powder"},
		NutritionFacts: nf{Calories: 260, Sugar: 22, Fat: 11, Fiber: 1, Protein: 2, Carbs: 37, SaturatedFat: 5}},
	{Name: "Steel Cut Oats", Brand: "Morning Mill", Category: "cereals", Price: 5.49,
		Ingredients: []string{"Whole grain oats"},
		NutritionFacts: nf{Calories: 150, Sugar: 1, Fat: 2.5, Fiber: 4, Protein: 5, Carbs: 27, Iron: 1.7}},
	{Name: "Frosted Corn Flakes", Brand: "Sunrise", Category: "cereals", Price: 3.99,
		Ingredients: []string{"Milled corn", "Sugar", "Malt flavoring", "Salt"},
		NutritionFacts: nf{Calories: 150, Sugar: 12, Fat: 0, Fiber: 1, Protein: 1, Carbs: 36, Sodium: 190, Iron: 8}},
	{Name: "Raw Almonds", Brand: "Nut House", Category: "nuts", Price: 8.99,
		Ingredients: []string{"Almonds"},
		NutritionFacts: nf{Calories: 160, Sugar: 1, Fat: 14, Fiber: 3.5, Protein: 6, Carbs: 6, Calcium: 75, Potassium: 200}},
	{Name: "Honey Roasted Peanuts", Brand: "Nut House", Category: "nuts", Price: 4.49,
		Ingredients: []string{"Peanuts", "Sugar", "Honey", "Peanut oil", "Salt"},
		NutritionFacts: nf{Calories: 170, Sugar: 5, Fat: 13, Fiber: 2, Protein: 6, Carbs: 8, Sodium: 105}},
	{Name: "Peanut Protein Bar", Brand: "GreenFuel", Category: "energy_bars", Price: 2.99,
		Ingredients: []string{"Peanuts", "Whey protein", "Dates", "Sea salt"},
		NutritionFacts: nf{Calories: 200, Sugar: 6, Fat: 8, Fiber: 5, Protein: 15, Carbs: 20, Sodium: 150}},
	{Name: "Chocolate Chip Granola Bar", Brand: "Sunrise", Category: "energy_bars", Price: 1.49,
		Ingredients: []string{"Rolled oats", "Chocolate chips", "Brown sugar", "Corn syrup"},
		NutritionFacts: nf{Calories: 190, Sugar: 12, Fat: 7, Fiber: 2, Protein: 3, Carbs: 29}},
	{Name: "Sparkling Water Lemon", Brand: "Fizz", Category: "drinks", Price: 0.99,
		Ingredients: []string{"Carbonated water", "Natural lemon flavor"},
		NutritionFacts: nf{Calories: 0, Sugar: 0, Fat: 0, Fiber: 0, Protein: 0}},
	{Name: "Cola Classic", Brand: "Fizz", Category: "drinks", Price: 1.29,
		Ingredients: []string{"Carbonated water", "Sugar", "Caramel color", "Phosphoric acid"},
		NutritionFacts: nf{Calories: 140, Sugar: 39, Fat: 0, Fiber: 0, Protein: 0, Sodium: 45}},
}

// SeedProducts returns the built-in demo catalog, scored by the grading
// engine.
func SeedProducts(now time.Time) []models.Product {
	out := make([]models.Product, 0, len(seedInputs))
	for _, in := range seedInputs {
		id := uuid.NewSHA1(seedNamespace, []byte(in.Name)).String()
		out = append(out, models.NewProduct(id, in, now))
	}
	return out
}

// SeedIfEmpty stores the demo catalog when repo holds no products and
// returns how many products were added.
func SeedIfEmpty(ctx context.Context, repo ProductRepository, now time.Time) (int, error) {
	_, total, err := repo.GetAll(ctx, models.ProductFilter{Limit: 1})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	products := SeedProducts(now)
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("seed %q: %w", products[i].Name, err)
		}
	}
	return len(products), nil
}
