package domain

import "time"

// Stage is the top level of the workflow template. Stages contain
// processes, which contain subprocesses. Each level is ordered by Sequence.
type Stage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sequence  int       `json:"sequence"`
	Processes []Process `json:"processes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Process is the middle level of the workflow template.
type Process struct {
	ID           string       `json:"id"`
	StageID      string       `json:"stage_id"`
	Name         string       `json:"name"`
	Sequence     int          `json:"sequence"`
	Subprocesses []Subprocess `json:"subprocesses,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Subprocess is the leaf level of the workflow template. Production
// tracking records reference subprocesses, so a subprocess with tracking
// history cannot be deleted.
type Subprocess struct {
	ID        string    `json:"id"`
	ProcessID string    `json:"process_id"`
	Name      string    `json:"name"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
