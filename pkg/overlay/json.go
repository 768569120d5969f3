package overlay

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/gouge/pkg/pipeline"
)

// Report is the JSON document written for a job run.
type Report struct {
	JobID     uuid.UUID               `json:"job_id"`
	Job       string                  `json:"job"`
	Params    pipeline.Params         `json:"params"`
	Generated time.Time               `json:"generated"`
	Summary   Summary                 `json:"summary"`
	Regions   []pipeline.RegionResult `json:"regions"`
}

// Summary aggregates the per-region outcomes.
type Summary struct {
	Regions   int            `json:"regions"`
	Failed    int            `json:"failed"`
	Moves     int            `json:"moves"`
	Fillets   int            `json:"fillets"`
	Overloads int            `json:"overloads"`
	CutLength float64        `json:"cut_length"`
	Status    map[string]int `json:"status"`
}

// NewReport builds the report for one run of job.
func NewReport(job *pipeline.Job, results []pipeline.RegionResult) Report {
	rep := Report{
		JobID:     job.ID,
		Job:       job.Name,
		Params:    job.Params,
		Generated: time.Now().UTC(),
		Regions:   results,
		Summary:   Summary{Regions: len(results), Status: map[string]int{}},
	}
	for i := range results {
		r := &results[i]
		rep.Summary.Status[r.Status()]++
		if !r.OK() {
			rep.Summary.Failed++
			continue
		}
		rep.Summary.Moves += len(r.Moves)
		rep.Summary.Fillets += len(r.Fillets)
		rep.Summary.Overloads += len(r.Overloads)
		rep.Summary.CutLength += r.Stats.CutLength
	}
	return rep
}

// WriteJSON encodes the report for job and results to w, indented.
func WriteJSON(w io.Writer, job *pipeline.Job, results []pipeline.RegionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReport(job, results)); err != nil {
		return fmt.Errorf("overlay: encode report: %w", err)
	}
	return nil
}
