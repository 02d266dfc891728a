package vision

import "platewise/internal/meal"

// Pipeline bundles the image ingestor and food detector behind a single
// injectable value for the HTTP layer.
type Pipeline struct{}

// ProcessImage implements the ingestion step; see the package function.
func (Pipeline) ProcessImage(data []byte, mimeType string) ([]byte, error) {
	return ProcessImage(data, mimeType)
}

// DetectFoods implements the detection step; see the package function.
func (Pipeline) DetectFoods(data []byte, mealType string) ([]meal.FoodItem, error) {
	return DetectFoods(data, mealType)
}
