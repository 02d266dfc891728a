package progress

import "time"

// Measurements holds optional body measurements in centimeters.
type Measurements struct {
	Chest *float64 `json:"chest,omitempty"`
	Waist *float64 `json:"waist,omitempty"`
	Hips  *float64 `json:"hips,omitempty"`
	Arms  *float64 `json:"arms,omitempty"`
	Legs  *float64 `json:"legs,omitempty"`
}

// WorkoutStats summarizes workout activity up to the record date.
type WorkoutStats struct {
	WorkoutsCompleted   int      `json:"workouts_completed"`
	TotalCaloriesBurned float64  `json:"total_calories_burned"`
	TotalDuration       float64  `json:"total_duration"`
	AverageRating       *float64 `json:"average_rating,omitempty"`
}

// NutritionStats summarizes logged nutrition up to the record date.
type NutritionStats struct {
	MealsLogged         int     `json:"meals_logged"`
	AverageCalories     float64 `json:"average_calories"`
	AverageProtein      float64 `json:"average_protein"`
	AverageCarbs        float64 `json:"average_carbs"`
	AverageFat          float64 `json:"average_fat"`
	AverageDietaryScore float64 `json:"average_dietary_score"`
}

// WeeklyGoal holds the user's optional targets for the week.
type WeeklyGoal struct {
	TargetWeight   *float64 `json:"target_weight,omitempty"`
	TargetCalories *float64 `json:"target_calories,omitempty"`
	TargetWorkouts *int     `json:"target_workouts,omitempty"`
}

// Record is one body-measurement entry. Weight is kept within plausible
// bounds at the API boundary; Date defines the ordering the predictor uses.
type Record struct {
	ID                string          `json:"id" db:"id"`
	OwnerID           string          `json:"owner_id" db:"owner_id"`
	Date              time.Time       `json:"date" db:"date"`
	Weight            float64         `json:"weight" db:"weight"`
	BodyFatPercentage *float64        `json:"body_fat_percentage,omitempty" db:"body_fat_percentage"`
	MuscleMass        *float64        `json:"muscle_mass,omitempty" db:"muscle_mass"`
	Measurements      *Measurements   `json:"measurements,omitempty"`
	WorkoutStats      *WorkoutStats   `json:"workout_stats,omitempty"`
	NutritionStats    *NutritionStats `json:"nutrition_stats,omitempty"`
	WeeklyGoal        *WeeklyGoal     `json:"weekly_goal,omitempty"`
}
