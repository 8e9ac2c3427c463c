// Package tasks holds the process-wide registry of batch task records.
package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Lllllllleong/rfpsynth/internal/models"
)

var (
	// ErrNotFound is returned for task identifiers that were never created.
	ErrNotFound = errors.New("task not found")
	// ErrIllegalTransition is returned when a status change would move a
	// record backwards or out of a terminal state.
	ErrIllegalTransition = errors.New("illegal task status transition")
)

// transitions lists, per current status, the statuses a record may move to.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusQueued:     {models.TaskStatusProcessing, models.TaskStatusError},
	models.TaskStatusProcessing: {models.TaskStatusProcessing, models.TaskStatusCompleted, models.TaskStatusError},
}

// CanTransition reports whether a record in status from may move to status to.
func CanTransition(from, to models.TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Registry maps task identifiers to their current record. Entries are never
// evicted.
type Registry struct {
	mu        sync.RWMutex
	records   map[string]models.TaskRecord
	observers []func(models.TaskRecord)
	now       func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: map[string]models.TaskRecord{},
		now:     time.Now,
	}
}

// Create allocates a fresh identifier and stores a queued record for it.
func (r *Registry) Create(sourceCount int, message string) models.TaskRecord {
	now := r.now()
	record := models.TaskRecord{
		ID:          uuid.NewString(),
		Status:      models.TaskStatusQueued,
		Message:     message,
		SourceCount: sourceCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.records[record.ID] = record
	r.mu.Unlock()
	return record
}

// Get returns a copy of the current record for id.
func (r *Registry) Get(id string) (models.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return models.TaskRecord{}, errors.Wrapf(ErrNotFound, "task %s", id)
	}
	return record, nil
}

// List returns all records, oldest first.
func (r *Registry) List() []models.TaskRecord {
	r.mu.RLock()
	records := make([]models.TaskRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

// Transition is the only way a record changes after creation. It replaces the
// whole record with one carrying the new status, message and artifacts.
func (r *Registry) Transition(id string, to models.TaskStatus, message string, artifacts models.Artifacts) (models.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[id]
	if !ok {
		return models.TaskRecord{}, errors.Wrapf(ErrNotFound, "task %s", id)
	}
	if !CanTransition(current.Status, to) {
		return current, errors.Wrapf(ErrIllegalTransition, "task %s: %s -> %s", id, current.Status, to)
	}

	next := models.TaskRecord{
		ID:          current.ID,
		Status:      to,
		Message:     message,
		ResultFile:  artifacts.ResultFile,
		PDFFile:     artifacts.PDFFile,
		SourceCount: current.SourceCount,
		CreatedAt:   current.CreatedAt,
		UpdatedAt:   r.now(),
	}
	r.records[id] = next
	for _, fn := range r.observers {
		fn(next)
	}
	return next, nil
}

// OnTransition registers fn to receive every record produced by Transition,
// in order. fn runs under the registry lock and must not call back into it.
func (r *Registry) OnTransition(fn func(models.TaskRecord)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}
