package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/psmwave/internal/metrics"
	"github.com/san-kum/psmwave/internal/record"
)

const (
	metadataFile = "metadata.json"
	summaryFile  = "frames.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type GridInfo struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	DX   float64 `json:"dx"`
	NX   int     `json:"nx"`
	ZMin float64 `json:"zmin"`
	ZMax float64 `json:"zmax"`
	DZ   float64 `json:"dz"`
	NZ   int     `json:"nz"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Medium    string             `json:"medium"`
	Mode      string             `json:"mode"`
	Boundary  string             `json:"boundary"`
	Grid      GridInfo           `json:"grid"`
	SourceX   int                `json:"source_x"`
	SourceZ   int                `json:"source_z"`
	Dt        float64            `json:"dt"`
	EndT      float64            `json:"endt"`
	Steps     int                `json:"steps"`
	Frames    int                `json:"frames"`
	Courant   float64            `json:"courant"`
	VpMax     float64            `json:"vpmax"`
	VsMax     float64            `json:"vsmax"`
	Format    string             `json:"format"`
	Metrics   map[string]float64 `json:"metrics"`
}

// FrameSummary is one row of a run's frames.csv.
type FrameSummary struct {
	Time   float64
	MaxUX  float64
	MaxUZ  float64
	Energy float64
}

// Save creates a run directory holding the metadata, the two displacement
// records in the given format and a per-frame summary, and returns the run
// ID.
func (s *Store) Save(meta RunMetadata, ux, uz *record.Record, format record.Format) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	name := meta.Name
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%d", name, meta.Timestamp.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Format = format.String()
	meta.Frames = ux.NT()

	if err := record.Save(filepath.Join(runDir, "ux"+format.Ext()), ux); err != nil {
		return "", err
	}
	if err := record.Save(filepath.Join(runDir, "uz"+format.Ext()), uz); err != nil {
		return "", err
	}
	if err := writeSummary(filepath.Join(runDir, summaryFile), Summarize(ux, uz)); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	return runID, nil
}

// Summarize computes the per-frame peak amplitudes and energy of a pair of
// records with matching frames.
func Summarize(ux, uz *record.Record) []FrameSummary {
	n := min(ux.NT(), uz.NT())
	out := make([]FrameSummary, n)
	for i := 0; i < n; i++ {
		out[i] = FrameSummary{
			Time:   ux.Times[i],
			MaxUX:  metrics.MaxAbs(ux.Frames[i]),
			MaxUZ:  metrics.MaxAbs(uz.Frames[i]),
			Energy: metrics.FieldEnergy(ux.Frames[i], uz.Frames[i]),
		}
	}
	return out
}

func writeSummary(path string, rows []FrameSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "max_ux", "max_uz", "energy"}); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			strconv.FormatFloat(r.MaxUX, 'g', -1, 64),
			strconv.FormatFloat(r.MaxUZ, 'g', -1, 64),
			strconv.FormatFloat(r.Energy, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, oldest first. Directories without
// readable metadata are skipped.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadRecords reads the ux and uz records of a run.
func (s *Store) LoadRecords(runID string) (ux, uz *record.Record, err error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	format, err := record.ParseFormat(meta.Format)
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Join(s.baseDir, runID)
	if ux, err = record.Load(filepath.Join(dir, "ux"+format.Ext())); err != nil {
		return nil, nil, err
	}
	if uz, err = record.Load(filepath.Join(dir, "uz"+format.Ext())); err != nil {
		return nil, nil, err
	}
	return ux, uz, nil
}

func (s *Store) LoadSummary(runID string) ([]FrameSummary, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, summaryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []FrameSummary{}, nil
	}

	rows := make([]FrameSummary, 0, len(records)-1)
	for _, rec := range records[1:] {
		var v [4]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[j], 64); err != nil {
				return nil, fmt.Errorf("storage: %s: %w", summaryFile, err)
			}
		}
		rows = append(rows, FrameSummary{Time: v[0], MaxUX: v[1], MaxUZ: v[2], Energy: v[3]})
	}

	return rows, nil
}

// Dir is the directory holding a run's files.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}
