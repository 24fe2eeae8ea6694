package store

import (
	"context"
	"fmt"

	"github.com/noah-isme/music-school-api/internal/models"
)

// Snapshot is the full persisted state loaded at start-up.
type Snapshot struct {
	Terms    map[string]*models.Term
	Students map[string]*models.Student
	Requests map[string]*models.ChangeRequest
	Leaves   map[string]*models.Leave
	Teachers []models.Teacher
}

// NewSnapshot returns an empty snapshot with initialised maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Terms:    make(map[string]*models.Term),
		Students: make(map[string]*models.Student),
		Requests: make(map[string]*models.ChangeRequest),
		Leaves:   make(map[string]*models.Leave),
	}
}

// ChangeSet lists every entity written by one transaction.
type ChangeSet struct {
	Terms    []*models.Term
	Students []*models.Student
	Requests []*models.ChangeRequest
	Leaves   []*models.Leave
	Teachers []models.Teacher
}

// Empty reports whether nothing was written.
func (c ChangeSet) Empty() bool {
	return len(c.Terms) == 0 && len(c.Students) == 0 && len(c.Requests) == 0 && len(c.Leaves) == 0 && len(c.Teachers) == 0
}

// Backend persists committed change sets.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Commit(ctx context.Context, changes ChangeSet) error
}

// CommitError names the entity a backend failed to write.
type CommitError struct {
	Resource string
	ID       string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Resource, e.ID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// NopBackend keeps everything in memory.
type NopBackend struct{}

// Load returns an empty snapshot.
func (NopBackend) Load(context.Context) (*Snapshot, error) { return NewSnapshot(), nil }

// Commit accepts every change set.
func (NopBackend) Commit(context.Context, ChangeSet) error { return nil }
