package truncate

import (
	"time"

	"github.com/koustreak/tablewipe/internal/database"
)

// Deletion is one executed DELETE statement.
type Deletion struct {
	Table     database.Table `json:"-" yaml:"-"`
	Name      string         `json:"table" yaml:"table"`
	Statement string         `json:"statement" yaml:"statement"`
	Rows      int64          `json:"rows" yaml:"rows"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
}

// Report summarises one truncation run. Tables lists deletions in the
// order they were executed; on failure it holds the deletions that
// completed before the error.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Tables    []Deletion    `json:"tables" yaml:"tables"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RowsDeleted sums affected rows across all deletions.
func (r *Report) RowsDeleted() int64 {
	var n int64
	for _, d := range r.Tables {
		n += d.Rows
	}
	return n
}

// Observer is notified as a run progresses. Calls happen on the goroutine
// executing the run.
type Observer interface {
	TableDeleted(d Deletion)
	RunFinished(r *Report, err error)
}
