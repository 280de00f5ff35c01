// Package domain contains the core business entities and interfaces.
package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultQuantity is substituted for any missing macro quantity string.
const DefaultQuantity = "0g"

// NutritionRecord is the normalized result of a food analysis.
type NutritionRecord struct {
	FoodName            string   `json:"food_name"`
	ProteinContent      string   `json:"protein_content"`
	FatContent          string   `json:"fat_content"`
	CarbohydrateContent string   `json:"carbohydrate_content"`
	Calories            *float64 `json:"calories,omitempty"`
	Protein             *float64 `json:"protein,omitempty"`
	Carbs               *float64 `json:"carbs,omitempty"`
	Fat                 *float64 `json:"fat,omitempty"`
	Vitamins            []string `json:"vitamins"`
	Minerals            []string `json:"minerals"`
	HealthBenefits      []string `json:"health_benefits"`
	CommonUses          []string `json:"common_uses"`
	Recommendations     *string  `json:"recommendations,omitempty"`
}

// DefaultRecord returns a record named foodName with every other field at
// its default.
func DefaultRecord(foodName string) NutritionRecord {
	return NutritionRecord{
		FoodName:            foodName,
		ProteinContent:      DefaultQuantity,
		FatContent:          DefaultQuantity,
		CarbohydrateContent: DefaultQuantity,
		Vitamins:            []string{},
		Minerals:            []string{},
		HealthBenefits:      []string{},
		CommonUses:          []string{},
	}
}

// Outcome tells whether Normalize parsed the upstream reply or fell back to
// the default record.
type Outcome int

const (
	// OutcomeParsed means a JSON object was found and used.
	OutcomeParsed Outcome = iota
	// OutcomeFellBack means no JSON object could be parsed.
	OutcomeFellBack
)

func (o Outcome) String() string {
	if o == OutcomeFellBack {
		return "fell_back"
	}
	return "parsed"
}

// Normalized is the tagged result of Normalize.
type Normalized struct {
	Record  NutritionRecord
	Outcome Outcome
}

// FellBack reports whether the record is the default-filled fallback.
func (n Normalized) FellBack() bool {
	return n.Outcome == OutcomeFellBack
}

// Normalize turns a free-text model reply into a complete NutritionRecord.
//
// The span from the first '{' to the last '}' is parsed as a JSON object;
// when no such span exists the whole trimmed text is tried instead. Missing,
// null, empty-string or wrongly typed fields get their defaults. Normalize
// never fails: when nothing parses it returns DefaultRecord(fallbackName)
// tagged OutcomeFellBack.
func Normalize(raw, fallbackName string) Normalized {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		text = text[start : end+1]
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil || fields == nil {
		return Normalized{Record: DefaultRecord(fallbackName), Outcome: OutcomeFellBack}
	}

	rec := NutritionRecord{
		FoodName:            stringField(fields, "food_name", fallbackName),
		ProteinContent:      stringField(fields, "protein_content", DefaultQuantity),
		FatContent:          stringField(fields, "fat_content", DefaultQuantity),
		CarbohydrateContent: stringField(fields, "carbohydrate_content", DefaultQuantity),
		Calories:            numberField(fields, "calories"),
		Protein:             numberField(fields, "protein"),
		Carbs:               numberField(fields, "carbs"),
		Fat:                 numberField(fields, "fat"),
		Vitamins:            listField(fields, "vitamins"),
		Minerals:            listField(fields, "minerals"),
		HealthBenefits:      listField(fields, "health_benefits"),
		CommonUses:          listField(fields, "common_uses"),
	}
	if s := stringField(fields, "recommendations", ""); s != "" {
		rec.Recommendations = &s
	}
	return Normalized{Record: rec, Outcome: OutcomeParsed}
}

func stringField(fields map[string]json.RawMessage, key, fallback string) string {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return fallback
	}
	return s
}

// numberField accepts a JSON number or a numeric string. NaN and infinities
// cannot be encoded back to JSON and count as absent.
func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// listField accepts an array of strings (other items are dropped) or a
// single string.
func listField(fields map[string]json.RawMessage, key string) []string {
	out := []string{}
	raw, ok := fields[key]
	if !ok {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}
