package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// TrainingRun records one completed training run and the quality of the
// model it produced.
type TrainingRun struct {
	ID        string
	Accuracy  float64
	Samples   int
	Features  int
	Classes   []string
	Duration  time.Duration
	CreatedAt time.Time
}

// TrainingRepository provides access to the training history.
type TrainingRepository struct {
	db *sql.DB
}

// Trainings returns the training repository for this store.
func (s *Store) Trainings() *TrainingRepository {
	return &TrainingRepository{db: s.db}
}

// Create inserts a new training run into the database.
func (r *TrainingRepository) Create(run *TrainingRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	classes, err := json.Marshal(run.Classes)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO trainings (id, accuracy, samples, features, classes, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Accuracy, run.Samples, run.Features, string(classes),
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	return err
}

// GetByID retrieves a training run by its ID.
func (r *TrainingRepository) GetByID(id string) (*TrainingRun, error) {
	row := r.db.QueryRow(
		`SELECT id, accuracy, samples, features, classes, duration_ms, created_at
		 FROM trainings WHERE id = ?`,
		id,
	)

	run, err := scanTrainingRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves all training runs, newest first.
func (r *TrainingRepository) List() ([]*TrainingRun, error) {
	rows, err := r.db.Query(
		`SELECT id, accuracy, samples, features, classes, duration_ms, created_at
		 FROM trainings ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*TrainingRun
	for rows.Next() {
		run, err := scanTrainingRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest retrieves the most recent training run.
func (r *TrainingRepository) Latest() (*TrainingRun, error) {
	row := r.db.QueryRow(
		`SELECT id, accuracy, samples, features, classes, duration_ms, created_at
		 FROM trainings ORDER BY created_at DESC, id LIMIT 1`,
	)

	run, err := scanTrainingRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrainingRun(row rowScanner) (*TrainingRun, error) {
	run := &TrainingRun{}
	var classes string
	var durationMS int64

	err := row.Scan(&run.ID, &run.Accuracy, &run.Samples, &run.Features,
		&classes, &durationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(classes), &run.Classes); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}
