package domain

import (
	"math"
	"regexp"
	"strconv"
)

var quantityNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// Macros is the numeric macronutrient summary of a record.
type Macros struct {
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Calories float64 `json:"calories"`
}

// Summarize derives numeric macros from a record. A numeric field wins when
// it is set and non-zero; otherwise the first number in the matching
// quantity string is used. Calories default to 4 kcal/g for protein and
// carbs and 9 kcal/g for fat.
func Summarize(r NutritionRecord) Macros {
	m := Macros{
		Protein: pick(r.Protein, r.ProteinContent),
		Fat:     pick(r.Fat, r.FatContent),
		Carbs:   pick(r.Carbs, r.CarbohydrateContent),
	}
	if r.Calories != nil && *r.Calories != 0 {
		m.Calories = *r.Calories
	} else {
		m.Calories = m.Protein*4 + m.Carbs*4 + m.Fat*9
	}
	m.Protein = finite(m.Protein)
	m.Fat = finite(m.Fat)
	m.Carbs = finite(m.Carbs)
	m.Calories = finite(m.Calories)
	return m
}

// finite clamps overflowed totals to the largest float64 and zeroes NaN.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// QuantityValue returns the first number in a quantity string such as
// "12.5g", or 0 when there is none.
func QuantityValue(s string) float64 {
	match := quantityNumber.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

func pick(n *float64, quantity string) float64 {
	if n != nil && *n != 0 {
		return *n
	}
	return QuantityValue(quantity)
}
