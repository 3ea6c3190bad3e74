// Package samples persists labeled landmark captures as per-letter JSON
// files. The on-disk layout is one directory per letter under the store
// root, one file per sample, which is the layout the training pipeline
// reads back.
package samples

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// Store writes and enumerates labeled samples under a root directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on the first save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory samples are stored under.
func (s *Store) Root() string {
	return s.root
}

// LetterError reports a label that is not a single uppercase letter A-Z.
type LetterError struct {
	Letter string
}

func (e *LetterError) Error() string {
	return fmt.Sprintf("invalid letter %q: want a single uppercase letter A-Z", e.Letter)
}

func validLetter(letter string) bool {
	return len(letter) == 1 && letter[0] >= 'A' && letter[0] <= 'Z'
}

// Save validates and persists one labeled capture, returning the minted
// sample ID.
func (s *Store) Save(letter string, points []landmark.Point3D, capturedAt time.Time) (string, error) {
	if !validLetter(letter) {
		return "", &LetterError{Letter: letter}
	}
	if err := landmark.Validate(points); err != nil {
		return "", err
	}

	id := uuid.New().String()
	sample := landmark.Sample{
		Letter:    letter,
		Landmarks: points,
		Timestamp: capturedAt.UnixMilli(),
		SampleID:  id,
	}

	dir := filepath.Join(s.root, letter)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating sample dir: %w", err)
	}

	path := filepath.Join(dir, id+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating sample file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sample); err != nil {
		return "", fmt.Errorf("writing sample %s: %w", id, err)
	}
	return id, nil
}

// Stats summarizes the stored dataset.
type Stats struct {
	Total   int            `json:"total"`
	Letters map[string]int `json:"letters"`
}

// Stats counts samples per letter. Letters with no samples are omitted.
// A missing root directory counts as an empty dataset.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Letters: map[string]int{}}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading sample root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !validLetter(entry.Name()) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, entry.Name()))
		if err != nil {
			return stats, fmt.Errorf("reading samples for %s: %w", entry.Name(), err)
		}
		n := 0
		for _, f := range files {
			if !f.IsDir() && filepath.Ext(f.Name()) == ".json" {
				n++
			}
		}
		if n > 0 {
			stats.Letters[entry.Name()] = n
			stats.Total += n
		}
	}
	return stats, nil
}

// Letters returns the letters that have at least one sample, sorted.
func (s *Store) Letters() ([]string, error) {
	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	letters := make([]string, 0, len(stats.Letters))
	for letter := range stats.Letters {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters, nil
}
