package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"platewise/internal/meal"
	"platewise/internal/platform/vision"
	"platewise/internal/progress"
	"platewise/internal/user"
)

// Vision defines the interface for the image pipeline: ingestion of the
// uploaded photo and deterministic food detection on the processed bytes.
type Vision interface {
	ProcessImage(data []byte, mimeType string) ([]byte, error)
	DetectFoods(data []byte, mealType string) ([]meal.FoodItem, error)
}

// MealStore defines the interface for meal analysis persistence.
type MealStore interface {
	InsertAnalysis(ctx context.Context, analysis *meal.Analysis) error
	GetAnalysis(ctx context.Context, ownerID, id string) (*meal.Analysis, error)
	ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]*meal.Analysis, int, error)
	CountAnalysesSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

// UserStore defines the interface for user lookups.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// ProgressStore defines the interface for progress record persistence.
type ProgressStore interface {
	InsertRecord(ctx context.Context, record *progress.Record) error
	ListRecordsSince(ctx context.Context, ownerID string, since time.Time) ([]progress.Record, error)
	ListRecentRecords(ctx context.Context, ownerID string, limit int) ([]progress.Record, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Vision        Vision
	MealStore     MealStore
	UserStore     UserStore
	ProgressStore ProgressStore
	Quota         *meal.QuotaGate
}

// NewHandler creates a new Handler. The quota gate counts through the same
// meal store the analyses are written to.
func NewHandler(v Vision, mealStore MealStore, userStore UserStore, progressStore ProgressStore) *Handler {
	return &Handler{
		Vision:        v,
		MealStore:     mealStore,
		UserStore:     userStore,
		ProgressStore: progressStore,
		Quota:         meal.NewQuotaGate(mealStore),
	}
}

// Stable machine-readable error kinds.
const (
	kindValidation       = "VALIDATION_ERROR"
	kindAuth             = "AUTH_ERROR"
	kindQuotaExceeded    = "QUOTA_EXCEEDED"
	kindInsufficientData = "INSUFFICIENT_DATA"
	kindNotFound         = "NOT_FOUND"
	kindUserNotFound     = "USER_NOT_FOUND"
	kindInternal         = "INTERNAL_ERROR"
)

func respondError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{"success": false, "error": kind, "message": message})
}

// AnalyzeMeal runs the full analysis pipeline for an uploaded meal photo:
// quota gate, image ingestion, food detection, nutrient aggregation,
// scoring, recommendations, persistence. Nothing is persisted when any
// stage fails.
func (h *Handler) AnalyzeMeal(c *gin.Context) {
	ownerID := c.GetString(userIDKey)

	mealType := c.PostForm("meal_type")
	if !meal.ValidType(mealType) {
		respondError(c, http.StatusBadRequest, kindValidation, "meal_type must be one of breakfast, lunch, dinner, snack")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, kindValidation, "no image file provided")
		return
	}
	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to open uploaded file")
		return
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to read uploaded file")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	u, err := h.UserStore.GetUser(ctx, ownerID)
	if err != nil {
		log.Printf("user lookup failed for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to look up user")
		return
	}
	if u == nil {
		respondError(c, http.StatusNotFound, kindUserNotFound, "user not found")
		return
	}

	// Quota runs before any image work so rejected requests cost nothing.
	if err := h.Quota.Check(ctx, ownerID, u.Subscription, time.Now()); err != nil {
		if errors.Is(err, meal.ErrQuotaExceeded) {
			respondError(c, http.StatusForbidden, kindQuotaExceeded,
				fmt.Sprintf("free tier limit of %d analyses per month reached", meal.FreeTierMonthlyLimit))
			return
		}
		log.Printf("quota check failed for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to check analysis quota")
		return
	}

	processed, err := h.Vision.ProcessImage(imageData, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, vision.ErrNotImage) || errors.Is(err, vision.ErrImageTooLarge) {
			respondError(c, http.StatusBadRequest, kindValidation, err.Error())
			return
		}
		log.Printf("image processing failed: %v", err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to process image")
		return
	}

	foodItems, err := h.Vision.DetectFoods(processed, mealType)
	if err != nil {
		log.Printf("food detection failed: %v", err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to detect foods")
		return
	}

	total := meal.Aggregate(foodItems)
	analysis := &meal.Analysis{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		ImageRef:        "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(processed),
		FoodItems:       foodItems,
		TotalNutrition:  total,
		MealType:        mealType,
		AnalysisDate:    time.Now().UTC(),
		AIConfidence:    meal.MeanConfidence(foodItems),
		DietaryScore:    meal.Score(total),
		Recommendations: meal.Recommendations(total),
	}

	if err := h.MealStore.InsertAnalysis(ctx, analysis); err != nil {
		log.Printf("failed to save analysis: %v", err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to save analysis")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

// GetMealHistory returns a page of the caller's analyses, newest first.
func (h *Handler) GetMealHistory(c *gin.Context) {
	ownerID := c.GetString(userIDKey)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		respondError(c, http.StatusBadRequest, kindValidation, "limit must be a positive integer")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		respondError(c, http.StatusBadRequest, kindValidation, "offset must be a non-negative integer")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	analyses, total, err := h.MealStore.ListAnalyses(ctx, ownerID, limit, offset)
	if err != nil {
		log.Printf("failed to list analyses for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to fetch meal history")
		return
	}

	summaries := make([]meal.Summary, 0, len(analyses))
	for _, a := range analyses {
		summaries = append(summaries, a.Summarize())
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analyses": summaries,
		"pagination": gin.H{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"has_more": offset+limit < total,
		},
	})
}

// GetMealAnalysis returns one analysis; only the owner can read it.
func (h *Handler) GetMealAnalysis(c *gin.Context) {
	ownerID := c.GetString(userIDKey)
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	analysis, err := h.MealStore.GetAnalysis(ctx, ownerID, id)
	if err != nil {
		log.Printf("failed to get analysis %s: %v", id, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to fetch analysis")
		return
	}
	if analysis == nil {
		respondError(c, http.StatusNotFound, kindNotFound, "analysis not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

// PredictWeightTrend forecasts the caller's weight one step ahead of their
// recent history.
func (h *Handler) PredictWeightTrend(c *gin.Context) {
	ownerID := c.GetString(userIDKey)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := h.ProgressStore.ListRecentRecords(ctx, ownerID, progress.WindowSize)
	if err != nil {
		log.Printf("failed to list progress records for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to fetch progress records")
		return
	}

	prediction, err := progress.PredictWeight(records)
	if err != nil {
		if errors.Is(err, progress.ErrInsufficientData) {
			respondError(c, http.StatusBadRequest, kindInsufficientData, err.Error())
			return
		}
		log.Printf("prediction failed for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to generate predictions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "predictions": prediction})
}

type progressRequest struct {
	Weight            float64                  `json:"weight" binding:"required,gte=30,lte=300"`
	BodyFatPercentage *float64                 `json:"body_fat_percentage" binding:"omitempty,gte=3,lte=50"`
	MuscleMass        *float64                 `json:"muscle_mass" binding:"omitempty,gte=20,lte=100"`
	Measurements      *progress.Measurements   `json:"measurements"`
	WorkoutStats      *progress.WorkoutStats   `json:"workout_stats"`
	NutritionStats    *progress.NutritionStats `json:"nutrition_stats"`
	WeeklyGoal        *progress.WeeklyGoal     `json:"weekly_goal"`
}

// AddProgress records a body-measurement entry dated now.
func (h *Handler) AddProgress(c *gin.Context) {
	ownerID := c.GetString(userIDKey)

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, kindValidation, fmt.Sprintf("invalid progress data: %s", err.Error()))
		return
	}

	record := &progress.Record{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Date:              time.Now().UTC(),
		Weight:            req.Weight,
		BodyFatPercentage: req.BodyFatPercentage,
		MuscleMass:        req.MuscleMass,
		Measurements:      req.Measurements,
		WorkoutStats:      req.WorkoutStats,
		NutritionStats:    req.NutritionStats,
		WeeklyGoal:        req.WeeklyGoal,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.ProgressStore.InsertRecord(ctx, record); err != nil {
		log.Printf("failed to save progress record for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to save progress data")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": record})
}

// GetProgress returns the caller's progress records for the last N days
// (default 30), date ascending.
func (h *Handler) GetProgress(c *gin.Context) {
	ownerID := c.GetString(userIDKey)

	days, err := strconv.Atoi(c.DefaultQuery("timeframe", "30"))
	if err != nil || days < 1 {
		respondError(c, http.StatusBadRequest, kindValidation, "timeframe must be a positive number of days")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	since := time.Now().UTC().AddDate(0, 0, -days)
	records, err := h.ProgressStore.ListRecordsSince(ctx, ownerID, since)
	if err != nil {
		log.Printf("failed to list progress records for %s: %v", ownerID, err)
		respondError(c, http.StatusInternalServerError, kindInternal, "failed to fetch progress data")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}
