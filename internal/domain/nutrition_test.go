package domain_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"nutriscan/internal/domain"
)

func TestNormalize_ProseAroundObject(t *testing.T) {
	raw := `Sure! Here is the data: {"food_name":"Apple","protein_content":"0.3g"}  Hope that helps.`
	got := domain.Normalize(raw, "apple")

	want := domain.DefaultRecord("Apple")
	want.ProteinContent = "0.3g"

	if got.Outcome != domain.OutcomeParsed {
		t.Fatalf("expected parsed outcome, got %v", got.Outcome)
	}
	if !reflect.DeepEqual(got.Record, want) {
		t.Fatalf("got %+v\nwant %+v", got.Record, want)
	}
}

func TestNormalize_NotJSON(t *testing.T) {
	got := domain.Normalize("not json at all", "Banana")

	if !got.FellBack() {
		t.Fatal("expected fallback outcome")
	}
	if !reflect.DeepEqual(got.Record, domain.DefaultRecord("Banana")) {
		t.Fatalf("got %+v", got.Record)
	}
}

func TestNormalize_NeverFails(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		"}",
		"} backwards {",
		"{{{",
		`{"food_name": "x"`,
		`{"a":1} and then {"b":2}`,
		"null",
		"[1,2,3]",
		`"just a string"`,
		"42",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got := domain.Normalize(in, "Fallback")
			if !got.FellBack() {
				t.Fatalf("expected fallback for %q, got %+v", in, got.Record)
			}
			if !reflect.DeepEqual(got.Record, domain.DefaultRecord("Fallback")) {
				t.Fatalf("unexpected record for %q: %+v", in, got.Record)
			}
		})
	}
}

func TestNormalize_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"food_name\":\"Rice\",\"carbohydrate_content\":\"28g\",\"vitamins\":[\"B1\",\"B3\"]}\n```"
	got := domain.Normalize(raw, "rice")

	if got.FellBack() {
		t.Fatal("expected parsed outcome")
	}
	if got.Record.FoodName != "Rice" {
		t.Errorf("food name = %q", got.Record.FoodName)
	}
	if got.Record.CarbohydrateContent != "28g" {
		t.Errorf("carbs = %q", got.Record.CarbohydrateContent)
	}
	if !reflect.DeepEqual(got.Record.Vitamins, []string{"B1", "B3"}) {
		t.Errorf("vitamins = %v", got.Record.Vitamins)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, r domain.NutritionRecord)
	}{
		{
			name: "missing fields",
			raw:  `{}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if !reflect.DeepEqual(r, domain.DefaultRecord("Soup")) {
					t.Fatalf("got %+v", r)
				}
			},
		},
		{
			name: "empty string is replaced",
			raw:  `{"food_name":"","fat_content":""}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.FoodName != "Soup" || r.FatContent != "0g" {
					t.Fatalf("got name=%q fat=%q", r.FoodName, r.FatContent)
				}
			},
		},
		{
			name: "null values",
			raw:  `{"protein_content":null,"minerals":null,"calories":null}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.ProteinContent != "0g" {
					t.Errorf("protein = %q", r.ProteinContent)
				}
				if r.Minerals == nil || len(r.Minerals) != 0 {
					t.Errorf("minerals = %#v", r.Minerals)
				}
				if r.Calories != nil {
					t.Errorf("calories = %v", *r.Calories)
				}
			},
		},
		{
			name: "wrong types fall back per field",
			raw:  `{"food_name":7,"vitamins":{"a":1},"common_uses":"soup base"}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.FoodName != "Soup" {
					t.Errorf("name = %q", r.FoodName)
				}
				if len(r.Vitamins) != 0 {
					t.Errorf("vitamins = %v", r.Vitamins)
				}
				if !reflect.DeepEqual(r.CommonUses, []string{"soup base"}) {
					t.Errorf("common uses = %v", r.CommonUses)
				}
			},
		},
		{
			name: "numeric fields",
			raw:  `{"calories":52,"protein":"0.3","carbs":0,"fat":"n/a"}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.Calories == nil || *r.Calories != 52 {
					t.Errorf("calories = %v", r.Calories)
				}
				if r.Protein == nil || *r.Protein != 0.3 {
					t.Errorf("protein = %v", r.Protein)
				}
				if r.Carbs == nil || *r.Carbs != 0 {
					t.Errorf("carbs = %v", r.Carbs)
				}
				if r.Fat != nil {
					t.Errorf("fat = %v", *r.Fat)
				}
			},
		},
		{
			name: "non-finite numbers are absent",
			raw:  `{"calories":"NaN","protein":"Infinity","carbs":"-Inf","fat":1e999}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.Calories != nil || r.Protein != nil || r.Carbs != nil || r.Fat != nil {
					t.Errorf("calories=%v protein=%v carbs=%v fat=%v", r.Calories, r.Protein, r.Carbs, r.Fat)
				}
				if _, err := json.Marshal(r); err != nil {
					t.Errorf("record does not encode: %v", err)
				}
			},
		},
		{
			name: "huge finite numbers are kept",
			raw:  `{"protein":1e308}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.Protein == nil || *r.Protein != 1e308 {
					t.Errorf("protein = %v", r.Protein)
				}
				if _, err := json.Marshal(domain.Summarize(r)); err != nil {
					t.Errorf("summary does not encode: %v", err)
				}
			},
		},
		{
			name: "recommendations",
			raw:  `{"recommendations":"Eat fresh."}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if r.Recommendations == nil || *r.Recommendations != "Eat fresh." {
					t.Errorf("recommendations = %v", r.Recommendations)
				}
			},
		},
		{
			name: "array items that are not strings are dropped",
			raw:  `{"health_benefits":["fiber",3,null,"vitamin C"]}`,
			check: func(t *testing.T, r domain.NutritionRecord) {
				if !reflect.DeepEqual(r.HealthBenefits, []string{"fiber", "vitamin C"}) {
					t.Errorf("benefits = %v", r.HealthBenefits)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.Normalize(tc.raw, "Soup")
			if got.FellBack() {
				t.Fatal("expected parsed outcome")
			}
			tc.check(t, got.Record)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	if domain.OutcomeParsed.String() != "parsed" || domain.OutcomeFellBack.String() != "fell_back" {
		t.Fatal("unexpected outcome strings")
	}
}
