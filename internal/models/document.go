package models

import "time"

// SourceDocument is an uploaded example RFP held by the storage collaborator.
// It is read-only once stored.
type SourceDocument struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size,omitempty"`
}

// TaskStatus is the lifecycle state of a batch.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusError      TaskStatus = "error"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError
}

// TaskRecord tracks one submitted batch. Records are replaced whole on every
// update and never mutated in place by readers.
type TaskRecord struct {
	ID          string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	Message     string     `json:"message"`
	ResultFile  string     `json:"result_file,omitempty"`
	PDFFile     string     `json:"pdf_file,omitempty"`
	SourceCount int        `json:"source_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Artifacts carries the output references stamped on a record when it completes.
type Artifacts struct {
	ResultFile string
	PDFFile    string
}
