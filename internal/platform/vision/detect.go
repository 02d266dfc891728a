package vision

import (
	"fmt"

	"platewise/internal/meal"
)

// nutrientProfile is the fixed per-serving profile of one known food.
type nutrientProfile struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    float64
}

// foodTable is the static nutrient lookup. Every name used by a combination
// below must resolve here.
var foodTable = map[string]nutrientProfile{
	"apple":    {Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3, Fiber: 4},
	"banana":   {Calories: 105, Protein: 1.3, Carbs: 27, Fat: 0.4, Fiber: 3},
	"orange":   {Calories: 62, Protein: 1.2, Carbs: 15, Fat: 0.2, Fiber: 3},
	"grapes":   {Calories: 104, Protein: 1.1, Carbs: 27, Fat: 0.2, Fiber: 1.4},
	"chicken":  {Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6, Fiber: 0},
	"salmon":   {Calories: 206, Protein: 22, Carbs: 0, Fat: 13, Fiber: 0},
	"rice":     {Calories: 205, Protein: 4.3, Carbs: 45, Fat: 0.4, Fiber: 0.6},
	"pasta":    {Calories: 220, Protein: 8, Carbs: 43, Fat: 1.3, Fiber: 2.5},
	"yogurt":   {Calories: 100, Protein: 10, Carbs: 12, Fat: 0, Fiber: 0},
	"almond":   {Calories: 164, Protein: 6, Carbs: 6, Fat: 14, Fiber: 3.5},
	"broccoli": {Calories: 55, Protein: 3.7, Carbs: 11, Fat: 0.6, Fiber: 5.1},
	"spinach":  {Calories: 23, Protein: 2.9, Carbs: 3.6, Fat: 0.4, Fiber: 2.2},
	"tomato":   {Calories: 22, Protein: 1.1, Carbs: 4.8, Fat: 0.2, Fiber: 1.5},
	"cheese":   {Calories: 113, Protein: 7, Carbs: 0.4, Fat: 9, Fiber: 0},
}

// mealCombinations maps each meal type to its ordered list of plausible
// food combinations.
var mealCombinations = map[string][][]string{
	meal.TypeBreakfast: {
		{"yogurt", "banana", "almond"},
		{"apple", "almond"},
		{"orange", "almond"},
	},
	meal.TypeLunch: {
		{"chicken", "rice", "broccoli"},
		{"salmon", "rice", "spinach"},
		{"pasta", "tomato", "cheese"},
	},
	meal.TypeDinner: {
		{"salmon", "rice", "broccoli"},
		{"chicken", "pasta", "spinach"},
		{"pasta", "tomato", "cheese"},
	},
	meal.TypeSnack: {
		{"apple", "almond"},
		{"banana", "yogurt"},
		{"grapes", "yogurt"},
	},
}

// DetectFoods maps a processed image buffer and meal type to an ordered list
// of detected foods. It is a deterministic stand-in for a trained model:
// identical inputs always yield identical output, with all variation derived
// from a byte-sum seed over the buffer, never a system RNG. Unrecognized
// meal types fall back to the lunch table.
func DetectFoods(data []byte, mealType string) ([]meal.FoodItem, error) {
	seed := 0
	for i := 0; i < len(data) && i < 10; i++ {
		seed += int(data[i])
	}

	combos, ok := mealCombinations[mealType]
	if !ok {
		combos = mealCombinations[meal.TypeLunch]
	}
	if len(combos) == 0 {
		return nil, fmt.Errorf("no food combinations configured for meal type %q", mealType)
	}
	combo := combos[seed%len(combos)]

	baseConfidence := 0.75 + float64(seed%20)/100

	items := make([]meal.FoodItem, 0, len(combo))
	for i, name := range combo {
		profile, ok := foodTable[name]
		if !ok {
			return nil, fmt.Errorf("food %q missing from nutrient table", name)
		}
		confidence := baseConfidence + float64(i)*0.02
		if confidence > 0.95 {
			confidence = 0.95
		}
		items = append(items, meal.FoodItem{
			Name:       name,
			Confidence: confidence,
			Calories:   profile.Calories,
			Protein:    profile.Protein,
			Carbs:      profile.Carbs,
			Fat:        profile.Fat,
			Fiber:      profile.Fiber,
		})
	}
	return items, nil
}
