package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store defines the interface for progress record persistence.
type Store interface {
	InsertRecord(ctx context.Context, record *Record) error
	ListRecordsSince(ctx context.Context, ownerID string, since time.Time) ([]Record, error)
	ListRecentRecords(ctx context.Context, ownerID string, limit int) ([]Record, error)
}

// PostgresStore implements Store for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore ensures the progress_records table exists.
func NewPostgresStore(db *sqlx.DB) (*PostgresStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS progress_records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		body_fat_percentage DOUBLE PRECISION,
		muscle_mass DOUBLE PRECISION,
		measurements JSONB,
		workout_stats JSONB,
		nutrition_stats JSONB,
		weekly_goal JSONB
	);
	CREATE INDEX IF NOT EXISTS progress_records_owner_date_idx
		ON progress_records (owner_id, date DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create progress_records table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// InsertRecord persists one progress record.
func (s *PostgresStore) InsertRecord(ctx context.Context, record *Record) error {
	measurementsJSON, err := json.Marshal(record.Measurements)
	if err != nil {
		return fmt.Errorf("failed to marshal measurements: %w", err)
	}
	workoutJSON, err := json.Marshal(record.WorkoutStats)
	if err != nil {
		return fmt.Errorf("failed to marshal workout stats: %w", err)
	}
	nutritionJSON, err := json.Marshal(record.NutritionStats)
	if err != nil {
		return fmt.Errorf("failed to marshal nutrition stats: %w", err)
	}
	goalJSON, err := json.Marshal(record.WeeklyGoal)
	if err != nil {
		return fmt.Errorf("failed to marshal weekly goal: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress_records
			(id, owner_id, date, weight, body_fat_percentage, muscle_mass, measurements, workout_stats, nutrition_stats, weekly_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID,
		record.OwnerID,
		record.Date,
		record.Weight,
		record.BodyFatPercentage,
		record.MuscleMass,
		measurementsJSON,
		workoutJSON,
		nutritionJSON,
		goalJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert progress record: %w", err)
	}
	return nil
}

// ListRecordsSince returns the owner's records dated at or after since,
// date ascending.
func (s *PostgresStore) ListRecordsSince(ctx context.Context, ownerID string, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryxContext(ctx,
		selectColumns+` FROM progress_records
		WHERE owner_id = $1 AND date >= $2 ORDER BY date ASC`,
		ownerID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecentRecords returns the owner's most recent limit records,
// reordered date ascending for the predictor.
func (s *PostgresStore) ListRecentRecords(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryxContext(ctx,
		selectColumns+` FROM progress_records
		WHERE owner_id = $1 ORDER BY date DESC LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

const selectColumns = `SELECT id, owner_id, date, weight, body_fat_percentage, muscle_mass, measurements, workout_stats, nutrition_stats, weekly_goal`

func scanRecords(rows *sqlx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var measurementsJSON, workoutJSON, nutritionJSON, goalJSON []byte
		err := rows.Scan(
			&r.ID,
			&r.OwnerID,
			&r.Date,
			&r.Weight,
			&r.BodyFatPercentage,
			&r.MuscleMass,
			&measurementsJSON,
			&workoutJSON,
			&nutritionJSON,
			&goalJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if err := json.Unmarshal(measurementsJSON, &r.Measurements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal measurements: %w", err)
		}
		if err := json.Unmarshal(workoutJSON, &r.WorkoutStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workout stats: %w", err)
		}
		if err := json.Unmarshal(nutritionJSON, &r.NutritionStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nutrition stats: %w", err)
		}
		if err := json.Unmarshal(goalJSON, &r.WeeklyGoal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weekly goal: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}
