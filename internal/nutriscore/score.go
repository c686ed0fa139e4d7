package nutriscore

import "math"

// Thresholds and caps. These values are part of the public contract: a
// client-side preview must reproduce them exactly.
const (
	caloriesThreshold = 80.0
	caloriesStep      = 80.0
	sugarThreshold    = 4.5
	sugarStep         = 4.5
	fatThreshold      = 1.0

	fiberStep   = 0.9
	proteinStep = 1.6

	maxNegativePoints = 10
	maxPositivePoints = 5
)

// Points is the per-component breakdown of a score.
type Points struct {
	Calories int `json:"calories"`
	Sugar    int `json:"sugar"`
	Fat      int `json:"fat"`
	Fiber    int `json:"fiber"`
	Protein  int `json:"protein"`
}

// Result is the full outcome of grading one set of nutrition facts.
type Result struct {
	Points   Points `json:"breakdown"`
	Negative int    `json:"negativePoints"`
	Positive int    `json:"positivePoints"`
	Score    int    `json:"score"`
	Grade    Grade  `json:"grade"`
}

// ComputeGrade returns the Nutri-Score grade for facts.
func ComputeGrade(facts NutritionFacts) Grade {
	return Evaluate(facts).Grade
}

// Evaluate scores facts and returns the breakdown, score and grade.
func Evaluate(facts NutritionFacts) Result {
	p := Points{
		Calories: steppedPoints(facts.Calories.Float(), caloriesThreshold, caloriesStep),
		Sugar:    steppedPoints(facts.Sugar.Float(), sugarThreshold, sugarStep),
		Fat:      fatPoints(facts.Fat.Float()),
		Fiber:    creditPoints(facts.Fiber.Float(), fiberStep),
		Protein:  creditPoints(facts.Protein.Float(), proteinStep),
	}

	negative := p.Calories + p.Sugar + p.Fat
	positive := p.Fiber + p.Protein
	score := negative - positive

	return Result{
		Points:   p,
		Negative: negative,
		Positive: positive,
		Score:    score,
		Grade:    GradeForScore(score),
	}
}

// steppedPoints awards one point for crossing threshold and one more per
// full step beyond it.
func steppedPoints(v, threshold, step float64) int {
	if !(v > threshold) {
		return 0
	}
	return capped(math.Floor((v-threshold)/step)+1, maxNegativePoints)
}

func fatPoints(v float64) int {
	if !(v > fatThreshold) {
		return 0
	}
	return capped(math.Floor(v), maxNegativePoints)
}

func creditPoints(v, step float64) int {
	return capped(math.Floor(v/step), maxPositivePoints)
}

// capped converts f to int, saturating at limit. NaN counts as 0 and
// out-of-domain negatives saturate at math.MinInt32.
func capped(f float64, limit int) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= float64(limit):
		return limit
	case f < math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}
