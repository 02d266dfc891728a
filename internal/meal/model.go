package meal

import "time"

// Meal types accepted by the analyzer.
const (
	TypeBreakfast = "breakfast"
	TypeLunch     = "lunch"
	TypeDinner    = "dinner"
	TypeSnack     = "snack"
)

// ValidType reports whether mealType is one of the four accepted meal types.
func ValidType(mealType string) bool {
	switch mealType {
	case TypeBreakfast, TypeLunch, TypeDinner, TypeSnack:
		return true
	}
	return false
}

// Nutrition holds per-meal nutrient totals.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// FoodItem is a single detected food with its nutrient profile. Items are
// produced by the detector and never modified afterwards.
type FoodItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Fiber      float64 `json:"fiber"`
}

// Analysis is one persisted meal analysis. TotalNutrition is the elementwise
// sum over FoodItems, AIConfidenceScore the mean of their confidences, and
// DietaryScore is derived from TotalNutrition alone.
type Analysis struct {
	ID              string     `json:"id" db:"id"`
	OwnerID         string     `json:"owner_id" db:"owner_id"`
	ImageRef        string     `json:"image_ref" db:"image_ref"`
	FoodItems       []FoodItem `json:"food_items"`
	TotalNutrition  Nutrition  `json:"total_nutrition"`
	MealType        string     `json:"meal_type" db:"meal_type"`
	AnalysisDate    time.Time  `json:"analysis_date" db:"analysis_date"`
	AIConfidence    float64    `json:"ai_confidence_score" db:"ai_confidence"`
	DietaryScore    int        `json:"dietary_score" db:"dietary_score"`
	Recommendations []string   `json:"recommendations"`
}

// Summary is the history-listing view of an Analysis, without the image
// payload or per-item breakdown.
type Summary struct {
	ID             string    `json:"id"`
	MealType       string    `json:"meal_type"`
	AnalysisDate   time.Time `json:"analysis_date"`
	TotalNutrition Nutrition `json:"total_nutrition"`
	DietaryScore   int       `json:"dietary_score"`
	AIConfidence   float64   `json:"ai_confidence_score"`
}

// Summarize builds the listing view of a.
func (a *Analysis) Summarize() Summary {
	return Summary{
		ID:             a.ID,
		MealType:       a.MealType,
		AnalysisDate:   a.AnalysisDate,
		TotalNutrition: a.TotalNutrition,
		DietaryScore:   a.DietaryScore,
		AIConfidence:   a.AIConfidence,
	}
}
