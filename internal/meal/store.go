package meal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store defines the interface for meal analysis persistence.
type Store interface {
	InsertAnalysis(ctx context.Context, analysis *Analysis) error
	GetAnalysis(ctx context.Context, ownerID, id string) (*Analysis, error)
	ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]*Analysis, int, error)
	CountAnalysesSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

// PostgresStore implements Store for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and ensures the meal_analyses
// table exists.
func NewPostgresStore(db *sqlx.DB) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS meal_analyses (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		image_ref TEXT,
		food_items JSONB,
		total_nutrition JSONB,
		meal_type TEXT,
		analysis_date TIMESTAMPTZ NOT NULL,
		ai_confidence DOUBLE PRECISION,
		dietary_score INTEGER,
		recommendations JSONB
	);
	CREATE INDEX IF NOT EXISTS meal_analyses_owner_date_idx
		ON meal_analyses (owner_id, analysis_date DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create meal_analyses table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// InsertAnalysis persists one analysis record.
func (s *PostgresStore) InsertAnalysis(ctx context.Context, analysis *Analysis) error {
	foodItemsJSON, err := json.Marshal(analysis.FoodItems)
	if err != nil {
		return fmt.Errorf("failed to marshal food items: %w", err)
	}
	totalJSON, err := json.Marshal(analysis.TotalNutrition)
	if err != nil {
		return fmt.Errorf("failed to marshal total nutrition: %w", err)
	}
	recsJSON, err := json.Marshal(analysis.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meal_analyses
			(id, owner_id, image_ref, food_items, total_nutrition, meal_type, analysis_date, ai_confidence, dietary_score, recommendations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		analysis.ID,
		analysis.OwnerID,
		analysis.ImageRef,
		foodItemsJSON,
		totalJSON,
		analysis.MealType,
		analysis.AnalysisDate,
		analysis.AIConfidence,
		analysis.DietaryScore,
		recsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves one analysis scoped to its owner. Returns nil when
// the record does not exist or belongs to another user.
func (s *PostgresStore) GetAnalysis(ctx context.Context, ownerID, id string) (*Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, image_ref, food_items, total_nutrition, meal_type, analysis_date, ai_confidence, dietary_score, recommendations
		FROM meal_analyses WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	a, err := scanAnalysis(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Analysis not found
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns a page of the owner's analyses sorted by analysis
// date descending, plus the owner's total record count.
func (s *PostgresStore) ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]*Analysis, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM meal_analyses WHERE owner_id = $1", ownerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, owner_id, image_ref, food_items, total_nutrition, meal_type, analysis_date, ai_confidence, dietary_score, recommendations
		FROM meal_analyses WHERE owner_id = $1
		ORDER BY analysis_date DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return analyses, total, nil
}

// CountAnalysesSince counts the owner's analyses dated at or after since.
func (s *PostgresStore) CountAnalysesSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM meal_analyses WHERE owner_id = $1 AND analysis_date >= $2",
		ownerID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	var foodItemsJSON, totalJSON, recsJSON []byte

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.ImageRef,
		&foodItemsJSON,
		&totalJSON,
		&a.MealType,
		&a.AnalysisDate,
		&a.AIConfidence,
		&a.DietaryScore,
		&recsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(foodItemsJSON, &a.FoodItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal food items: %w", err)
	}
	if err := json.Unmarshal(totalJSON, &a.TotalNutrition); err != nil {
		return nil, fmt.Errorf("failed to unmarshal total nutrition: %w", err)
	}
	if err := json.Unmarshal(recsJSON, &a.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}

	return &a, nil
}
