package hazard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store holds hazard reports in the order they were added.
type Store interface {
	// Add appends a report.
	Add(r Report) error

	// Get retrieves a report by ID.
	Get(id string) (Report, error)

	// List returns all reports, oldest first.
	List() []Report

	// Delete removes a report by ID.
	Delete(id string) error

	// Count returns the number of reports.
	Count() int
}

// JSONStore implements Store with a JSON file that is rewritten on
// every change.
type JSONStore struct {
	path    string
	reports []Report
	mu      sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Hazards   []Report `json:"hazards"`
}

const currentVersion = 1

// NewJSONStore opens the store at path, loading existing reports. The
// file is created on the first change.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("hazard: create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("hazard: load store: %w", err)
		}
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	s.reports = stored.Hazards
	return nil
}

// save writes the store to disk. Must be called with mu held.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Hazards:   s.reports,
	}
	if stored.Hazards == nil {
		stored.Hazards = []Report{}
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("hazard: marshal JSON: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("hazard: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("hazard: rename temp file: %w", err)
	}
	return nil
}

// Add appends r and persists the list. On a write failure the list is
// left unchanged.
func (s *JSONStore) Add(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.reports
	s.reports = append(append([]Report(nil), prev...), r)
	if err := s.save(); err != nil {
		s.reports = prev
		return err
	}
	return nil
}

// Get retrieves a report by ID.
func (s *JSONStore) Get(id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return Report{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all reports, oldest first.
func (s *JSONStore) List() []Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Report(nil), s.reports...)
}

// Delete removes a report and persists the list.
func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reports {
		if r.ID != id {
			continue
		}
		prev := s.reports
		next := make([]Report, 0, len(prev)-1)
		next = append(next, prev[:i]...)
		next = append(next, prev[i+1:]...)
		s.reports = next
		if err := s.save(); err != nil {
			s.reports = prev
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Count returns the number of reports.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

var _ Store = (*JSONStore)(nil)
