package builder

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Status is the outcome of one build unit.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Dropped counts links a join could not turn into records.
type Dropped struct {
	// Dangling links reference a page id missing from the page table.
	Dangling int
	// EmptyTarget links have no target title.
	EmptyTarget int
}

func (d Dropped) Total() int { return d.Dangling + d.EmptyTarget }

func (d *Dropped) add(o Dropped) {
	d.Dangling += o.Dangling
	d.EmptyTarget += o.EmptyTarget
}

// UnitResult describes one build unit.
type UnitResult struct {
	Pair     domain.Pair
	Status   Status
	Records  int
	Dropped  Dropped
	Reason   string
	Err      error
	Duration time.Duration
}

// Skip is a unit that had nothing to build.
type Skip struct {
	Pair   domain.Pair
	Reason string
}

// Report summarizes a build run. Units are in the order pairs were given.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Completed  int
	Skipped    []Skip
	Failed     []*domain.UnitError
	Records    int64
	Dropped    Dropped
	Units      []UnitResult
}

// HasFailures reports whether any unit failed.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

func (r *Report) summarize() {
	for _, u := range r.Units {
		r.Dropped.add(u.Dropped)
		switch u.Status {
		case StatusCompleted:
			r.Completed++
			r.Records += int64(u.Records)
		case StatusSkipped:
			r.Skipped = append(r.Skipped, Skip{Pair: u.Pair, Reason: u.Reason})
		case StatusFailed:
			r.Failed = append(r.Failed, &domain.UnitError{Pair: u.Pair, Err: u.Err})
		}
	}
}
