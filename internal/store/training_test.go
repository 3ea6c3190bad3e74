package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a new Store backed by a temp file for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "fingerspell-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestTrainingRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Trainings()

	run := &TrainingRun{
		ID:       "run-1",
		Accuracy: 0.9625,
		Samples:  400,
		Features: 63,
		Classes:  []string{"A", "B", "C"},
		Duration: 42 * time.Second,
	}

	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.CreatedAt.IsZero() {
		t.Error("Create should stamp CreatedAt when unset")
	}

	got, err := repo.GetByID("run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Accuracy != 0.9625 {
		t.Errorf("accuracy = %f, want 0.9625", got.Accuracy)
	}
	if got.Samples != 400 || got.Features != 63 {
		t.Errorf("samples/features = %d/%d, want 400/63", got.Samples, got.Features)
	}
	if len(got.Classes) != 3 || got.Classes[0] != "A" || got.Classes[2] != "C" {
		t.Errorf("classes = %v, want [A B C]", got.Classes)
	}
	if got.Duration != 42*time.Second {
		t.Errorf("duration = %v, want 42s", got.Duration)
	}
}

func TestTrainingRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Trainings().GetByID("no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestTrainingRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Trainings()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := &TrainingRun{
			ID:        id,
			Accuracy:  0.8 + float64(i)*0.05,
			Samples:   100,
			Features:  63,
			Classes:   []string{"A", "B"},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create %s: %v", id, err)
		}
	}

	runs, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	// Newest first
	if runs[0].ID != "run-3" || runs[2].ID != "run-1" {
		t.Errorf("order = [%s %s %s], want newest first", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestTrainingRepository_Latest(t *testing.T) {
	s := newTestStore(t)
	repo := s.Trainings()

	if _, err := repo.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty table: error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		run := &TrainingRun{
			ID:        id,
			Accuracy:  0.9,
			Samples:   50,
			Features:  63,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(run); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := repo.Latest()
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if latest.ID != "new" {
		t.Errorf("latest = %s, want new", latest.ID)
	}
}

func TestTrainingRepository_EmptyClasses(t *testing.T) {
	s := newTestStore(t)
	repo := s.Trainings()

	if err := repo.Create(&TrainingRun{ID: "bare", Accuracy: 1, Samples: 2, Features: 63}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID("bare")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Classes) != 0 {
		t.Errorf("classes = %v, want empty", got.Classes)
	}
}
