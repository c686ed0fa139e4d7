package nutriscore

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a per-serving nutrient quantity.
// Decoding never fails: null, empty, non-numeric and negative values
// become 0.
type Amount float64

// NutritionFacts holds the nutrient quantities of one serving.
// Only calories, sugar, fat, fiber and protein take part in grading;
// the remaining fields are informational.
type NutritionFacts struct {
	Calories Amount `json:"calories" validate:"gte=0"`
	Sugar    Amount `json:"sugar" validate:"gte=0"`
	Fat      Amount `json:"fat" validate:"gte=0"`
	Fiber    Amount `json:"fiber" validate:"gte=0"`
	Protein  Amount `json:"protein" validate:"gte=0"`

	Carbs        Amount `json:"carbs,omitempty" validate:"gte=0"`
	Sodium       Amount `json:"sodium,omitempty" validate:"gte=0"`
	SaturatedFat Amount `json:"saturatedFat,omitempty" validate:"gte=0"`
	Cholesterol  Amount `json:"cholesterol,omitempty" validate:"gte=0"`
	VitaminC     Amount `json:"vitaminC,omitempty" validate:"gte=0"`
	Calcium      Amount `json:"calcium,omitempty" validate:"gte=0"`
	Iron         Amount `json:"iron,omitempty" validate:"gte=0"`
	Potassium    Amount `json:"potassium,omitempty" validate:"gte=0"`
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}
	*a = ParseAmount(string(data))
	return nil
}

// Float returns the amount as a float64.
func (a Amount) Float() float64 {
	return float64(a)
}

// ParseAmount converts free-form input the way a lenient form field would:
// the longest leading decimal number is used ("12.5g" is 12.5) and anything
// without one, including NaN and infinities, is 0. Quantities cannot be
// negative, so negative numbers are 0 as well.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return Amount(v)
}

// numericPrefix returns the length of the leading [+-]digits[.digits][e[+-]digits] run.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
