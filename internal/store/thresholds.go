package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ThresholdRecord is a persisted threshold override for one exercise.
type ThresholdRecord struct {
	Exercise  string    `db:"exercise"`
	Upper     float64   `db:"upper_limit"`
	Lower     float64   `db:"lower_limit"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ThresholdRepository provides CRUD operations for threshold overrides.
type ThresholdRepository struct {
	db *sqlx.DB
}

// Thresholds returns the threshold repository for this store.
func (s *Store) Thresholds() *ThresholdRepository {
	return &ThresholdRepository{db: s.db}
}

// List retrieves all overrides ordered by exercise.
func (r *ThresholdRepository) List() ([]ThresholdRecord, error) {
	var records []ThresholdRecord
	err := r.db.Select(&records,
		`SELECT exercise, upper_limit, lower_limit, updated_at
		 FROM exercise_thresholds ORDER BY exercise`)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get retrieves the override for an exercise.
func (r *ThresholdRepository) Get(exercise string) (*ThresholdRecord, error) {
	rec := &ThresholdRecord{}
	err := r.db.Get(rec, r.db.Rebind(
		`SELECT exercise, upper_limit, lower_limit, updated_at
		 FROM exercise_thresholds WHERE exercise = ?`),
		exercise,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Upsert creates or replaces the override for rec.Exercise.
func (r *ThresholdRepository) Upsert(rec *ThresholdRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	_, err := r.db.NamedExec(
		`INSERT INTO exercise_thresholds (exercise, upper_limit, lower_limit, updated_at)
		 VALUES (:exercise, :upper_limit, :lower_limit, :updated_at)
		 ON CONFLICT (exercise) DO UPDATE SET
			upper_limit = excluded.upper_limit,
			lower_limit = excluded.lower_limit,
			updated_at = excluded.updated_at`,
		rec,
	)
	return err
}

// Delete removes the override for an exercise.
func (r *ThresholdRepository) Delete(exercise string) error {
	result, err := r.db.Exec(r.db.Rebind(`DELETE FROM exercise_thresholds WHERE exercise = ?`), exercise)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
