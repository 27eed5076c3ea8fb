package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run     RunMetadata        `json:"run"`
	Frames  []ExportFrame      `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}

type ExportFrame struct {
	Time   float64 `json:"time"`
	MaxUX  float64 `json:"max_ux"`
	MaxUZ  float64 `json:"max_uz"`
	Energy float64 `json:"energy"`
}

func newExportData(meta RunMetadata, rows []FrameSummary) ExportData {
	data := ExportData{
		Run:     meta,
		Frames:  make([]ExportFrame, len(rows)),
		Metrics: meta.Metrics,
	}
	for i, r := range rows {
		data.Frames[i] = ExportFrame(r)
	}
	return data
}

// ExportJSON writes a run's metadata and frame summary to path.
func ExportJSON(path string, meta RunMetadata, rows []FrameSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, meta, rows)
}

func WriteJSON(w io.Writer, meta RunMetadata, rows []FrameSummary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, rows))
}
