package classifier

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/fingerspell/internal/landmark"
)

// Dataset holds the raw (non-normalized) feature matrix and labels assembled
// from a sample directory, plus the per-letter sample counts.
type Dataset struct {
	Features [][]float64
	Labels   []string
	Counts   map[string]int
}

// LoadDataset walks a directory whose immediate subdirectories are named by
// letter, each holding one JSON file per collected sample. Loading is
// best-effort: files that fail to parse or validate are skipped and logged,
// and one bad file never aborts the run. Returns a DataError only when no
// usable sample is found at all.
func LoadDataset(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DataError{Dir: dir, Reason: err.Error()}
	}

	ds := &Dataset{Counts: make(map[string]int)}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		letter := entry.Name()

		files, err := os.ReadDir(filepath.Join(dir, letter))
		if err != nil {
			log.Printf("skipping letter %s: %v", letter, err)
			continue
		}

		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}

			path := filepath.Join(dir, letter, f.Name())
			sample, err := readSample(path)
			if err != nil {
				log.Printf("skipping sample %s: %v", path, err)
				continue
			}

			ds.Features = append(ds.Features, landmark.Flatten(sample.Landmarks))
			ds.Labels = append(ds.Labels, letter)
			ds.Counts[letter]++
		}
	}

	if len(ds.Features) == 0 {
		return nil, &DataError{Dir: dir, Reason: "no valid samples found"}
	}

	return ds, nil
}

// readSample parses and validates one sample file.
func readSample(path string) (*landmark.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sample landmark.Sample
	if err := json.NewDecoder(f).Decode(&sample); err != nil {
		return nil, err
	}

	if err := landmark.Validate(sample.Landmarks); err != nil {
		return nil, err
	}

	return &sample, nil
}
