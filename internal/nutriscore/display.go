package nutriscore

import "math"

// Info is how a grade is presented to users.
type Info struct {
	Code        Grade  `json:"code"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var gradeInfo = map[Grade]Info{
	GradeA: {Code: GradeA, Name: "Excellent", Color: "#4CAF50", Description: "Highest quality, excellent nutrition"},
	GradeB: {Code: GradeB, Name: "Good", Color: "#8BC34A", Description: "Good quality with minor concerns"},
	GradeC: {Code: GradeC, Name: "Fair", Color: "#FFC107", Description: "Average quality, acceptable choice"},
	GradeD: {Code: GradeD, Name: "Poor", Color: "#FF9800", Description: "Below average, better alternatives exist"},
	GradeE: {Code: GradeE, Name: "Very Poor", Color: "#F44336", Description: "Poor quality, not recommended"},
}

// Info returns the display attributes of g. Unknown grades get a neutral
// entry named after the raw value.
func (g Grade) Info() Info {
	if info, ok := gradeInfo[g]; ok {
		return info
	}
	return Info{Code: g, Name: string(g), Color: "#9E9E9E", Description: "Unknown rating"}
}

// Reference daily intakes for a 2000 kcal diet. Sodium, cholesterol,
// vitamin C, calcium, iron and potassium are in mg, calories in kcal,
// everything else in g.
var dailyIntake = map[string]float64{
	"calories":     2000,
	"protein":      50,
	"carbs":        300,
	"fat":          65,
	"fiber":        25,
	"sugar":        50,
	"sodium":       2300,
	"saturatedFat": 20,
	"cholesterol":  300,
	"vitaminC":     90,
	"calcium":      1000,
	"iron":         18,
	"potassium":    4700,
}

// DailyValues returns each non-zero nutrient as a rounded percentage of its
// reference daily intake.
func DailyValues(facts NutritionFacts) map[string]int {
	amounts := map[string]Amount{
		"calories":     facts.Calories,
		"protein":      facts.Protein,
		"carbs":        facts.Carbs,
		"fat":          facts.Fat,
		"fiber":        facts.Fiber,
		"sugar":        facts.Sugar,
		"sodium":       facts.Sodium,
		"saturatedFat": facts.SaturatedFat,
		"cholesterol":  facts.Cholesterol,
		"vitaminC":     facts.VitaminC,
		"calcium":      facts.Calcium,
		"iron":         facts.Iron,
		"potassium":    facts.Potassium,
	}

	out := make(map[string]int, len(amounts))
	for name, amount := range amounts {
		if amount <= 0 {
			continue
		}
		out[name] = int(math.Round(amount.Float() / dailyIntake[name] * 100))
	}
	return out
}
