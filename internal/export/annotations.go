package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Annotation is one operator observation tied to a metric reading.
type Annotation struct {
	Timestamp    time.Time `json:"timestamp"`
	MetricType   string    `json:"metric_type"`
	Value        float64   `json:"value"`
	Units        string    `json:"units"`
	Observation  string    `json:"observation"`
	Significance string    `json:"significance,omitempty"`
	Conditions   string    `json:"experimental_conditions,omitempty"`
	Operator     string    `json:"operator"`
}

// AnnotationLog persists annotations as a JSON file in the export
// directory. Safe for concurrent use.
type AnnotationLog struct {
	path string

	mu          sync.Mutex
	annotations []Annotation
}

// OpenAnnotationLog loads (or initializes) the annotation log under dir.
func OpenAnnotationLog(dir string) (*AnnotationLog, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}
	l := &AnnotationLog{path: filepath.Join(dir, "annotations.json")}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export: read annotations: %w", err)
	}
	if err := json.Unmarshal(data, &l.annotations); err != nil {
		return nil, fmt.Errorf("export: decode annotations: %w", err)
	}
	return l, nil
}

// Add validates, appends and persists one annotation.
func (l *AnnotationLog) Add(a Annotation) error {
	if a.MetricType == "" || a.Observation == "" || a.Operator == "" {
		return fmt.Errorf("export: annotation needs metric_type, observation and operator")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.Units == "" {
		a.Units = Units(a.MetricType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.annotations = append(l.annotations, a)
	return l.persist()
}

// List returns all annotations, oldest first.
func (l *AnnotationLog) List() []Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Annotation, len(l.annotations))
	copy(out, l.annotations)
	return out
}

// persist writes the log atomically; callers hold l.mu.
func (l *AnnotationLog) persist() error {
	data, err := json.MarshalIndent(l.annotations, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode annotations: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("export: write annotations: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("export: replace annotations: %w", err)
	}
	return nil
}
