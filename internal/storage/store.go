package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	System      string             `json:"system"`
	Timestamp   time.Time          `json:"timestamp"`
	Stepper     string             `json:"stepper"`
	Log         string             `json:"log"`
	TimeStep    float64            `json:"time_step"`
	RelTol      float64            `json:"rel_tol"`
	AbsTol      float64            `json:"abs_tol"`
	Start       float64            `json:"start"`
	Duration    float64            `json:"duration"`
	Status      string             `json:"status"`
	Steps       int                `json:"steps"`
	Rejected    int                `json:"rejected"`
	Evaluations int                `json:"evaluations"`
	Params      map[string]float64 `json:"params,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// NewRunID returns "<system>_<first 8 hex digits of a random UUID>".
func NewRunID(system string) string {
	return fmt.Sprintf("%s_%s", system, uuid.NewString()[:8])
}

// Save writes metadata.json and states.csv under a new run directory and
// returns the run id. meta.ID and meta.Timestamp are filled in when empty.
func (s *Store) Save(meta RunMetadata, solutions []solver.Solution) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.System)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, solutions); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metaPath, err)
	}

	return &meta, nil
}

// LoadStates reads the recorded trajectory of a run.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}

		state := make(dynamo.State, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			state = append(state, val)
		}
		times = append(times, t)
		states = append(states, state)
	}

	return states, times, nil
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
