package progress

import (
	"fmt"
	"math"
)

// MinHistory is the minimum number of records required for a forecast.
const MinHistory = 7

// WindowSize caps how many of the most recent records feed the regression.
const WindowSize = 30

// ErrInsufficientData is returned when too few records exist to forecast.
var ErrInsufficientData = fmt.Errorf("at least %d progress records are required for predictions", MinHistory)

// Prediction is a one-step weight forecast. PredictedWeight and
// WeeklyChange are rounded to one decimal; Confidence is the regression's
// R-squared as an integer percentage.
type Prediction struct {
	PredictedWeight float64 `json:"predicted_weight"`
	WeeklyChange    float64 `json:"weekly_change"`
	Confidence      int     `json:"confidence"`
}

// PredictWeight fits an ordinary least-squares line over the position index
// of the most recent WindowSize records (date ascending) and extrapolates
// one step past the last observation.
func PredictWeight(records []Record) (*Prediction, error) {
	if len(records) < MinHistory {
		return nil, ErrInsufficientData
	}
	if len(records) > WindowSize {
		records = records[len(records)-WindowSize:]
	}

	x := make([]float64, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		x[i] = float64(i)
		y[i] = r.Weight
	}

	slope, intercept, r2 := linearRegression(x, y)

	predicted := slope*float64(len(records)) + intercept
	current := y[len(y)-1]

	return &Prediction{
		PredictedWeight: round1(predicted),
		WeeklyChange:    round1(predicted - current),
		Confidence:      int(math.Round(r2 * 100)),
	}, nil
}

// linearRegression returns the least-squares slope, intercept, and
// R-squared for the given series. R-squared is clamped at zero; a fit worse
// than the mean reports no confidence rather than a negative value. A
// zero-variance series also reports zero, avoiding a 0/0 in the ratio.
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}

	slope = (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)
	intercept = (sumY - slope*sumX) / n

	yMean := sumY / n
	var tss, rss float64
	for i := range y {
		tss += (y[i] - yMean) * (y[i] - yMean)
		fitted := slope*x[i] + intercept
		rss += (y[i] - fitted) * (y[i] - fitted)
	}

	if tss == 0 {
		return slope, intercept, 0
	}
	r2 = 1 - rss/tss
	if r2 < 0 {
		r2 = 0
	}
	return slope, intercept, r2
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
