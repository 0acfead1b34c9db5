package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names inside the engine data directory.
const (
	DataFile  = "training_data.json"
	ModelFile = "safety_model.json"
)

// Sample is one training example. Label 1 means safe.
type Sample struct {
	Features []float64   `json:"features"`
	Label    int         `json:"label"`
	Meta     *SampleMeta `json:"meta,omitempty"`
}

// SampleMeta records where a submitted sample came from.
type SampleMeta struct {
	Origin json.RawMessage `json:"origin"`
	Dest   json.RawMessage `json:"dest"`
}

// InitialSamples seeds a fresh dataset.
func InitialSamples() []Sample {
	return []Sample{
		{Features: []float64{1.0, 1.0, 1.0}, Label: 1}, // well lit, busy, day
		{Features: []float64{0.0, 0.0, 0.0}, Label: 0}, // dark, isolated, night
		{Features: []float64{0.5, 0.5, 0.5}, Label: 1},
		{Features: []float64{0.0, 1.0, 0.0}, Label: 1}, // busy but dark
		{Features: []float64{1.0, 0.0, 0.0}, Label: 0}, // lit but isolated
	}
}

// Store persists samples and the fitted model as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) dataPath() string  { return filepath.Join(s.dir, DataFile) }
func (s *Store) modelPath() string { return filepath.Join(s.dir, ModelFile) }

// LoadSamples reads the dataset, creating it from InitialSamples on first use.
func (s *Store) LoadSamples() ([]Sample, error) {
	b, err := os.ReadFile(s.dataPath())
	if errors.Is(err, fs.ErrNotExist) {
		samples := InitialSamples()
		if err := s.SaveSamples(samples); err != nil {
			return nil, err
		}
		return samples, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading training data: %w", err)
	}

	var samples []Sample
	if err := json.Unmarshal(b, &samples); err != nil {
		return nil, fmt.Errorf("decoding training data: %w", err)
	}
	return samples, nil
}

// SaveSamples replaces the dataset.
func (s *Store) SaveSamples(samples []Sample) error {
	return writeJSON(s.dataPath(), samples)
}

// LoadModel reads the fitted model. A missing or unreadable model is
// refitted from the current dataset.
func (s *Store) LoadModel() (*Model, error) {
	b, err := os.ReadFile(s.modelPath())
	if err == nil {
		var m Model
		if json.Unmarshal(b, &m) == nil && len(m.Weights) > 0 {
			return &m, nil
		}
	}
	return s.Refit()
}

// Refit trains a new model on the stored samples and saves it.
func (s *Store) Refit() (*Model, error) {
	samples, err := s.LoadSamples()
	if err != nil {
		return nil, err
	}

	x, y := trainingSet(samples)
	m := NewModel()
	m.Fit(x, y)

	if err := writeJSON(s.modelPath(), m); err != nil {
		return nil, err
	}
	return m, nil
}

// trainingSet splits samples into features and labels. A dataset with a
// single class gets one neutral sample of the other class so the fit stays
// stable.
func trainingSet(samples []Sample) ([][]float64, []float64) {
	x := make([][]float64, 0, len(samples)+1)
	y := make([]float64, 0, len(samples)+1)
	classes := map[int]bool{}
	for _, s := range samples {
		x = append(x, s.Features)
		y = append(y, float64(s.Label))
		classes[s.Label] = true
	}

	if len(samples) > 0 && len(classes) < 2 {
		opposite := 1.0
		if samples[0].Label == 1 {
			opposite = 0
		}
		x = append(x, []float64{neutral, neutral, neutral})
		y = append(y, opposite)
	}
	return x, y
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}
