package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"platewise/internal/api"
	"platewise/internal/meal"
	"platewise/internal/platform/vision"
	"platewise/internal/progress"
	"platewise/internal/user"
)

// mockMealStore is an in-memory MealStore.
type mockMealStore struct {
	analyses  []*meal.Analysis
	insertErr error
}

func (m *mockMealStore) InsertAnalysis(ctx context.Context, analysis *meal.Analysis) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.analyses = append(m.analyses, analysis)
	return nil
}

func (m *mockMealStore) GetAnalysis(ctx context.Context, ownerID, id string) (*meal.Analysis, error) {
	for _, a := range m.analyses {
		if a.ID == id && a.OwnerID == ownerID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockMealStore) ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]*meal.Analysis, int, error) {
	var owned []*meal.Analysis
	for _, a := range m.analyses {
		if a.OwnerID == ownerID {
			owned = append(owned, a)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].AnalysisDate.After(owned[j].AnalysisDate)
	})
	total := len(owned)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (m *mockMealStore) CountAnalysesSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	count := 0
	for _, a := range m.analyses {
		if a.OwnerID == ownerID && !a.AnalysisDate.Before(since) {
			count++
		}
	}
	return count, nil
}

// mockUserStore is an in-memory UserStore.
type mockUserStore struct {
	users map[string]*user.User
}

func (m *mockUserStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	return m.users[id], nil
}

// mockProgressStore is an in-memory ProgressStore.
type mockProgressStore struct {
	records []progress.Record
}

func (m *mockProgressStore) InsertRecord(ctx context.Context, record *progress.Record) error {
	m.records = append(m.records, *record)
	return nil
}

func (m *mockProgressStore) ListRecordsSince(ctx context.Context, ownerID string, since time.Time) ([]progress.Record, error) {
	var out []progress.Record
	for _, r := range m.records {
		if r.OwnerID == ownerID && !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *mockProgressStore) ListRecentRecords(ctx context.Context, ownerID string, limit int) ([]progress.Record, error) {
	out, _ := m.ListRecordsSince(ctx, ownerID, time.Time{})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestRouter(h *api.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/api", api.RequireUser())
	authed.POST("/meals/analyze", h.AnalyzeMeal)
	authed.GET("/meals", h.GetMealHistory)
	authed.GET("/meals/:id", h.GetMealAnalysis)
	authed.GET("/progress/predictions", h.PredictWeightTrend)
	authed.POST("/progress", h.AddProgress)
	authed.GET("/progress", h.GetProgress)
	return r
}

func newHandler() (*api.Handler, *mockMealStore, *mockUserStore, *mockProgressStore) {
	mealStore := &mockMealStore{}
	userStore := &mockUserStore{users: map[string]*user.User{
		"free-user":    {ID: "free-user", Subscription: user.SubscriptionFree},
		"premium-user": {ID: "premium-user", Subscription: user.SubscriptionPremium},
	}}
	progressStore := &mockProgressStore{}
	h := api.NewHandler(vision.Pipeline{}, mealStore, userStore, progressStore)
	return h, mealStore, userStore, progressStore
}

func newAnalyzeRequest(t *testing.T, imageData []byte, contentType, mealType, userID string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="meal.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write(imageData)
	assert.NoError(t, err)

	err = writer.WriteField("meal_type", mealType)
	assert.NoError(t, err)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/meals/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	return req
}

type analyzeResponse struct {
	Success  bool          `json:"success"`
	Analysis meal.Analysis `json:"analysis"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestAnalyzeMeal(t *testing.T) {
	h, mealStore, _, _ := newHandler()
	r := newTestRouter(h)

	// 50 zero bytes: detector seed 0 selects the first snack combination.
	imageData := bytes.Repeat([]byte{0}, 50)
	req := newAnalyzeRequest(t, imageData, "image/jpeg", "snack", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp analyzeResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)

	a := resp.Analysis
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "free-user", a.OwnerID)
	assert.Equal(t, "snack", a.MealType)
	assert.True(t, strings.HasPrefix(a.ImageRef, "data:image/jpeg;base64,"))

	assert.Len(t, a.FoodItems, 2)
	assert.Equal(t, "apple", a.FoodItems[0].Name)
	assert.Equal(t, "almond", a.FoodItems[1].Name)
	assert.InDelta(t, 0.75, a.FoodItems[0].Confidence, 1e-9)
	assert.InDelta(t, 0.77, a.FoodItems[1].Confidence, 1e-9)

	assert.InDelta(t, 259, a.TotalNutrition.Calories, 1e-9)
	assert.InDelta(t, 6.5, a.TotalNutrition.Protein, 1e-9)
	assert.InDelta(t, 31, a.TotalNutrition.Carbs, 1e-9)
	assert.InDelta(t, 14.3, a.TotalNutrition.Fat, 1e-9)
	assert.InDelta(t, 7.5, a.TotalNutrition.Fiber, 1e-9)

	assert.Equal(t, 85, a.DietaryScore)
	assert.InDelta(t, 0.76, a.AIConfidence, 1e-9)
	assert.Equal(t, []string{"Add more protein."}, a.Recommendations)

	// The analysis must have been persisted.
	stored, err := mealStore.GetAnalysis(context.Background(), "free-user", a.ID)
	assert.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestAnalyzeMeal_Deterministic(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	imageData := bytes.Repeat([]byte{0}, 50)

	var results [2]analyzeResponse
	for i := range results {
		req := newAnalyzeRequest(t, imageData, "image/jpeg", "snack", "free-user")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results[i]))
	}

	first, second := results[0].Analysis, results[1].Analysis
	assert.Equal(t, first.FoodItems, second.FoodItems)
	assert.Equal(t, first.DietaryScore, second.DietaryScore)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAnalyzeMeal_InvalidMealType(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	req := newAnalyzeRequest(t, []byte{1, 2, 3}, "image/jpeg", "brunch", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
}

func TestAnalyzeMeal_MissingImage(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	assert.NoError(t, writer.WriteField("meal_type", "lunch"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/meals/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalyzeMeal_NonImageMime(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	req := newAnalyzeRequest(t, []byte("not an image"), "text/plain", "lunch", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
}

func TestAnalyzeMeal_UnknownUser(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	req := newAnalyzeRequest(t, []byte{1, 2, 3}, "image/jpeg", "lunch", "nobody")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "USER_NOT_FOUND", resp.Error)
}

func TestAnalyzeMeal_FreeTierQuota(t *testing.T) {
	h, mealStore, _, _ := newHandler()
	r := newTestRouter(h)

	now := time.Now().UTC()
	for i := 0; i < meal.FreeTierMonthlyLimit; i++ {
		mealStore.analyses = append(mealStore.analyses, &meal.Analysis{
			ID:           string(rune('a' + i)),
			OwnerID:      "free-user",
			AnalysisDate: now,
		})
	}

	req := newAnalyzeRequest(t, bytes.Repeat([]byte{0}, 50), "image/jpeg", "snack", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error)
}

func TestAnalyzeMeal_PremiumUnlimited(t *testing.T) {
	h, mealStore, _, _ := newHandler()
	r := newTestRouter(h)

	now := time.Now().UTC()
	for i := 0; i < 20; i++ {
		mealStore.analyses = append(mealStore.analyses, &meal.Analysis{
			ID:           string(rune('a' + i)),
			OwnerID:      "premium-user",
			AnalysisDate: now,
		})
	}

	req := newAnalyzeRequest(t, bytes.Repeat([]byte{0}, 50), "image/jpeg", "snack", "premium-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetMealHistory(t *testing.T) {
	h, mealStore, _, _ := newHandler()
	r := newTestRouter(h)

	base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mealStore.analyses = append(mealStore.analyses, &meal.Analysis{
			ID:           string(rune('a' + i)),
			OwnerID:      "free-user",
			MealType:     "lunch",
			AnalysisDate: base.AddDate(0, 0, i),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/meals?limit=2&offset=0", nil)
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success    bool           `json:"success"`
		Analyses   []meal.Summary `json:"analyses"`
		Pagination struct {
			Total   int  `json:"total"`
			Limit   int  `json:"limit"`
			Offset  int  `json:"offset"`
			HasMore bool `json:"has_more"`
		} `json:"pagination"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Len(t, resp.Analyses, 2)
	// Newest first.
	assert.Equal(t, "e", resp.Analyses[0].ID)
	assert.Equal(t, "d", resp.Analyses[1].ID)
	assert.Equal(t, 5, resp.Pagination.Total)
	assert.True(t, resp.Pagination.HasMore)

	// Last page.
	req = httptest.NewRequest(http.MethodGet, "/api/meals?limit=2&offset=4", nil)
	req.Header.Set("X-User-ID", "free-user")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Analyses, 1)
	assert.False(t, resp.Pagination.HasMore)
}

func TestGetMealAnalysis_OwnerScoped(t *testing.T) {
	h, mealStore, _, _ := newHandler()
	r := newTestRouter(h)

	mealStore.analyses = append(mealStore.analyses, &meal.Analysis{
		ID:           "analysis-1",
		OwnerID:      "free-user",
		MealType:     "dinner",
		AnalysisDate: time.Now().UTC(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/meals/analysis-1", nil)
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Another user must not see it.
	req = httptest.NewRequest(http.MethodGet, "/api/meals/analysis-1", nil)
	req.Header.Set("X-User-ID", "premium-user")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error)
}

func TestPredictWeightTrend(t *testing.T) {
	h, _, _, progressStore := newHandler()
	r := newTestRouter(h)

	weights := []float64{70, 70.2, 70.1, 70.4, 70.3, 70.6, 70.5}
	base := time.Date(2026, time.August, 1, 8, 0, 0, 0, time.UTC)
	for i, w := range weights {
		progressStore.records = append(progressStore.records, progress.Record{
			ID:      string(rune('a' + i)),
			OwnerID: "free-user",
			Date:    base.AddDate(0, 0, i),
			Weight:  w,
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/progress/predictions", nil)
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success     bool                `json:"success"`
		Predictions progress.Prediction `json:"predictions"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 70.7, resp.Predictions.PredictedWeight)
	assert.Equal(t, 0.2, resp.Predictions.WeeklyChange)
	assert.Equal(t, 80, resp.Predictions.Confidence)
}

func TestPredictWeightTrend_InsufficientData(t *testing.T) {
	h, _, _, progressStore := newHandler()
	r := newTestRouter(h)

	base := time.Date(2026, time.August, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		progressStore.records = append(progressStore.records, progress.Record{
			ID:      string(rune('a' + i)),
			OwnerID: "free-user",
			Date:    base.AddDate(0, 0, i),
			Weight:  70,
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/progress/predictions", nil)
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "INSUFFICIENT_DATA", resp.Error)
}

func TestAddProgress(t *testing.T) {
	h, _, _, progressStore := newHandler()
	r := newTestRouter(h)

	payload := `{"weight": 72.5, "body_fat_percentage": 18.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, progressStore.records, 1)
	assert.Equal(t, 72.5, progressStore.records[0].Weight)
	assert.Equal(t, "free-user", progressStore.records[0].OwnerID)
}

func TestAddProgress_WeightOutOfRange(t *testing.T) {
	h, _, _, progressStore := newHandler()
	r := newTestRouter(h)

	payload := `{"weight": 25}`
	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "free-user")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, progressStore.records)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
}

func TestRequireUser_MissingIdentity(t *testing.T) {
	h, _, _, _ := newHandler()
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/meals", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_ERROR", resp.Error)
}
