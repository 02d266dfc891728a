package meal

// Aggregate sums the nutrient fields of items elementwise. Callers guarantee
// a non-empty list; the detector always yields at least one item.
func Aggregate(items []FoodItem) Nutrition {
	var total Nutrition
	for _, it := range items {
		total.Calories += it.Calories
		total.Protein += it.Protein
		total.Carbs += it.Carbs
		total.Fat += it.Fat
		total.Fiber += it.Fiber
	}
	return total
}

// MeanConfidence returns the arithmetic mean of item confidences.
func MeanConfidence(items []FoodItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Confidence
	}
	return sum / float64(len(items))
}

// Score rates a meal's nutrient totals on a 0-100 scale. Starts at 50 and
// adds independent bonuses per threshold. The current rule set cannot drop
// below 50; the lower clamp is kept as stated policy for future rules.
func Score(total Nutrition) int {
	score := 50
	if total.Calories <= 600 {
		score += 10
	}
	if total.Protein >= 20 {
		score += 15
	}
	if total.Fiber >= 5 {
		score += 10
	}
	if total.Fat <= 20 {
		score += 10
	}
	if total.Carbs <= 60 {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Recommendations returns advisory messages for the given totals, in a fixed
// evaluation order. An empty list means no advice is needed.
func Recommendations(total Nutrition) []string {
	var recs []string
	if total.Protein < 20 {
		recs = append(recs, "Add more protein.")
	}
	if total.Fiber < 5 {
		recs = append(recs, "Add fiber-rich foods.")
	}
	if total.Calories > 600 {
		recs = append(recs, "Consider portion control.")
	}
	return recs
}
