package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"healthform-validator/pkg"
)

// ErrNotFound is returned when no saved run matches the requested ID.
var ErrNotFound = errors.New("analysis run not found")

const filePrefix = "patient_form_"

// Store persists analysis runs as one JSON file each under a local data
// directory. Files are append-only: nothing here ever deletes or rewrites a
// saved run, so concurrent readers need no locking.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the run as patient_form_<timestamp>.json and returns the file
// path. A write failure leaves the already-computed analysis untouched; the
// caller surfaces it as a warning, not an error.
func (s *Store) Save(run pkg.AnalysisRun) (string, error) {
	name := fmt.Sprintf("%s%s.json", filePrefix, run.Timestamp.Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// List returns previews of saved runs, most recent first, up to limit. Files
// that fail to decode are skipped rather than failing the whole listing.
func (s *Store) List(limit int) ([]pkg.RunPreview, error) {
	names, err := s.runFiles()
	if err != nil {
		return nil, err
	}

	previews := []pkg.RunPreview{}
	for _, name := range names {
		if limit > 0 && len(previews) >= limit {
			break
		}
		run, err := s.readFile(name)
		if err != nil {
			continue
		}
		previews = append(previews, pkg.RunPreview{
			ID:          run.ID,
			Timestamp:   run.Timestamp,
			PatientName: run.PatientData.Name,
			AlertCount:  len(run.AIAnalysis.CriticalAlerts),
		})
	}
	return previews, nil
}

// Get loads one saved run by its ID.
func (s *Store) Get(id string) (*pkg.AnalysisRun, error) {
	names, err := s.runFiles()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		run, err := s.readFile(name)
		if err != nil {
			continue
		}
		if run.ID == id {
			return run, nil
		}
	}
	return nil, ErrNotFound
}

// runFiles lists run filenames sorted newest first. The timestamped naming
// scheme makes lexicographic order chronological.
func (s *Store) runFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", s.dir, err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *Store) readFile(name string) (*pkg.AnalysisRun, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var run pkg.AnalysisRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
