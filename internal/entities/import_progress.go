package entities

import (
	"time"
)

type ImportStatus string

const (
	ImportStatusIdle      ImportStatus = "idle"
	ImportStatusImporting ImportStatus = "importing"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusError     ImportStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusError
}

// ImportProgress is the state of one import job. It is written only by the
// orchestrator that owns the job.
type ImportProgress struct {
	ID          uint          `gorm:"primaryKey" json:"-"`
	JobID       string        `gorm:"size:36;uniqueIndex" json:"job_id"`
	Sources     []Source      `gorm:"serializer:json" json:"sources"`
	Options     ImportOptions `gorm:"serializer:json" json:"options"`
	Status      ImportStatus  `gorm:"size:20" json:"status"`
	Total       int           `json:"total"`
	Imported    int           `json:"imported"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	CurrentBook string        `gorm:"size:512" json:"current_book,omitempty"`
	Errors      []string      `gorm:"serializer:json" json:"errors"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

func (ImportProgress) TableName() string {
	return "import_progress"
}

// Processed is the number of items accounted for so far.
func (p ImportProgress) Processed() int {
	return p.Imported + p.Failed + p.Skipped
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p ImportProgress) Clone() ImportProgress {
	p.Sources = append([]Source(nil), p.Sources...)
	p.Errors = append(make([]string, 0, len(p.Errors)), p.Errors...)
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	return p
}
