package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// CommitHook runs after a change set has been persisted and installed.
type CommitHook func(ctx context.Context, changes ChangeSet)

// Store holds terms, the roster, change requests, leaves and the teacher directory.
// Entities handed out by read methods are shared and must not be modified;
// all writes go through Update.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *Snapshot

	backend Backend
	hooks   []CommitHook
	observe func(duration time.Duration, err error)
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCommitObserver reports the duration and result of every backend commit.
func WithCommitObserver(fn func(duration time.Duration, err error)) Option {
	return func(s *Store) {
		s.observe = fn
	}
}

// Open loads the persisted state from backend.
func Open(ctx context.Context, backend Backend, logger *zap.Logger, opts ...Option) (*Store, error) {
	if backend == nil {
		backend = NopBackend{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	snapshot, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = NewSnapshot()
	}
	s := &Store{state: snapshot, backend: backend, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// New returns an empty in-memory store.
func New(logger *zap.Logger) *Store {
	s, _ := Open(context.Background(), NopBackend{}, logger)
	return s
}

// OnCommit registers a hook invoked after every successful commit.
func (s *Store) OnCommit(hook CommitHook) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Update runs fn inside a serialized transaction. Nothing becomes visible
// unless fn returns nil and the backend accepts the change set.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx := newTx(s.state)
	if err := fn(tx); err != nil {
		return err
	}
	changes := tx.changeSet()
	if changes.Empty() {
		return nil
	}

	start := time.Now()
	err := s.backend.Commit(ctx, changes)
	if s.observe != nil {
		s.observe(time.Since(start), err)
	}
	if err != nil {
		persistErr := appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
		var commitErr *CommitError
		if errors.As(err, &commitErr) {
			persistErr.Resource = commitErr.Resource
			persistErr.ResourceID = commitErr.ID
		}
		s.logger.Error("commit failed",
			zap.String("resource", persistErr.Resource),
			zap.String("resource_id", persistErr.ResourceID),
			zap.Error(err),
		)
		return persistErr
	}

	s.install(changes)
	for _, hook := range s.hooks {
		hook(ctx, changes)
	}
	return nil
}

func (s *Store) install(changes ChangeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, term := range changes.Terms {
		s.state.Terms[term.ID] = term
	}
	for _, student := range changes.Students {
		s.state.Students[student.ID] = student
	}
	for _, request := range changes.Requests {
		s.state.Requests[request.ID] = request
	}
	for _, leave := range changes.Leaves {
		s.state.Leaves[leave.ID] = leave
	}
	if len(changes.Teachers) > 0 {
		s.state.Teachers = mergeTeachers(s.state.Teachers, changes.Teachers)
	}
}

// Snapshot returns a consistent view over the current state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := NewSnapshot()
	for id, term := range s.state.Terms {
		out.Terms[id] = term
	}
	for id, student := range s.state.Students {
		out.Students[id] = student
	}
	for id, request := range s.state.Requests {
		out.Requests[id] = request
	}
	for id, leave := range s.state.Leaves {
		out.Leaves[id] = leave
	}
	out.Teachers = append([]models.Teacher(nil), s.state.Teachers...)
	return out
}

// Term returns the term with id.
func (s *Store) Term(id string) (*models.Term, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term, ok := s.state.Terms[id]
	return term, ok
}

// Terms lists terms ordered by start date.
func (s *Store) Terms() []*models.Term {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedTerms(s.state.Terms)
}

// Student returns the roster entry with id.
func (s *Store) Student(id string) (*models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.state.Students[id]
	return student, ok
}

// Students lists the roster ordered by id.
func (s *Store) Students() []*models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedStudents(s.state.Students)
}

// Request returns the change request with id.
func (s *Store) Request(id string) (*models.ChangeRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.state.Requests[id]
	return request, ok
}

// Requests lists change requests matching filter, newest first.
func (s *Store) Requests(filter models.RequestFilter) []*models.ChangeRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ChangeRequest, 0, len(s.state.Requests))
	for _, request := range s.state.Requests {
		if filter.Matches(request) {
			out = append(out, request)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Leave returns the leave with id.
func (s *Store) Leave(id string) (*models.Leave, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leave, ok := s.state.Leaves[id]
	return leave, ok
}

// Leaves lists leaves matching filter ordered by start date.
func (s *Store) Leaves(filter models.LeaveFilter) []*models.Leave {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterLeaves(s.state.Leaves, filter)
}

// Teachers returns the teacher directory.
func (s *Store) Teachers() []models.Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Teacher(nil), s.state.Teachers...)
}

// TeacherByName resolves a directory entry by display name or username.
func (s *Store) TeacherByName(name string) (models.Teacher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findTeacher(s.state.Teachers, name)
}

func sortedTerms(terms map[string]*models.Term) []*models.Term {
	out := make([]*models.Term, 0, len(terms))
	for _, term := range terms {
		out = append(out, term)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedStudents(students map[string]*models.Student) []*models.Student {
	out := make([]*models.Student, 0, len(students))
	for _, student := range students {
		out = append(out, student)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func filterLeaves(leaves map[string]*models.Leave, filter models.LeaveFilter) []*models.Leave {
	out := make([]*models.Leave, 0, len(leaves))
	for _, leave := range leaves {
		if filter.Matches(leave) {
			out = append(out, leave)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func findTeacher(teachers []models.Teacher, name string) (models.Teacher, bool) {
	name = strings.TrimSpace(name)
	for _, teacher := range teachers {
		if teacher.Name == name || teacher.Username == name || teacher.ID == name {
			return teacher, true
		}
	}
	return models.Teacher{}, false
}

func mergeTeachers(current, updates []models.Teacher) []models.Teacher {
	out := append([]models.Teacher(nil), current...)
	for _, update := range updates {
		replaced := false
		for i := range out {
			if out[i].ID == update.ID {
				out[i] = update
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, update)
		}
	}
	return out
}

// studentSeq extracts n from "STUnnn", or 0.
func studentSeq(id string) int {
	if !strings.HasPrefix(id, "STU") {
		return 0
	}
	n, err := strconv.Atoi(id[3:])
	if err != nil {
		return 0
	}
	return n
}
