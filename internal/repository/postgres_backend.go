package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
)

const (
	upsertTermQuery = `INSERT INTO terms (id, name, start_date, end_date, document, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, document = EXCLUDED.document, updated_at = NOW()`

	upsertStudentQuery = `INSERT INTO students (id, name, status, document, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, document = EXCLUDED.document, updated_at = NOW()`

	upsertRequestQuery = `INSERT INTO change_requests (id, type, status, teacher_id, document, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, document = EXCLUDED.document, updated_at = NOW()`

	upsertLeaveQuery = `INSERT INTO leaves (id, type, person_id, status, start_date, end_date, document, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, document = EXCLUDED.document, updated_at = NOW()`

	upsertTeacherQuery = `INSERT INTO teachers (id, name, username, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, username = EXCLUDED.username, updated_at = NOW()`
)

type documentRow struct {
	ID       string `db:"id"`
	Document []byte `db:"document"`
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// PostgresBackend stores each entity as a JSONB document and commits a change set in one transaction.
type PostgresBackend struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewPostgresBackend constructs the backend. metrics may be nil.
func NewPostgresBackend(db *sqlx.DB, metrics queryObserver) *PostgresBackend {
	return &PostgresBackend{db: db, metrics: metrics}
}

// Load reads every stored entity.
func (b *PostgresBackend) Load(ctx context.Context) (*store.Snapshot, error) {
	start := time.Now()
	defer b.observe("load", start)

	snapshot := store.NewSnapshot()

	var rows []documentRow
	if err := b.db.SelectContext(ctx, &rows, "SELECT id, document FROM terms ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load terms: %w", err)
	}
	for _, row := range rows {
		var term models.Term
		if err := json.Unmarshal(row.Document, &term); err != nil {
			return nil, fmt.Errorf("decode term %s: %w", row.ID, err)
		}
		if term.MasterSchedule == nil {
			term.MasterSchedule = make(models.MasterSchedule)
		}
		if term.WeeklyAttendance == nil {
			term.WeeklyAttendance = make(models.WeeklyAttendance)
		}
		snapshot.Terms[term.ID] = &term
	}

	rows = nil
	if err := b.db.SelectContext(ctx, &rows, "SELECT id, document FROM students ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	for _, row := range rows {
		var student models.Student
		if err := json.Unmarshal(row.Document, &student); err != nil {
			return nil, fmt.Errorf("decode student %s: %w", row.ID, err)
		}
		snapshot.Students[student.ID] = &student
	}

	rows = nil
	if err := b.db.SelectContext(ctx, &rows, "SELECT id, document FROM change_requests ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("load change requests: %w", err)
	}
	for _, row := range rows {
		var request models.ChangeRequest
		if err := json.Unmarshal(row.Document, &request); err != nil {
			return nil, fmt.Errorf("decode change request %s: %w", row.ID, err)
		}
		snapshot.Requests[request.ID] = &request
	}

	rows = nil
	if err := b.db.SelectContext(ctx, &rows, "SELECT id, document FROM leaves ORDER BY start_date"); err != nil {
		return nil, fmt.Errorf("load leaves: %w", err)
	}
	for _, row := range rows {
		var leave models.Leave
		if err := json.Unmarshal(row.Document, &leave); err != nil {
			return nil, fmt.Errorf("decode leave %s: %w", row.ID, err)
		}
		snapshot.Leaves[leave.ID] = &leave
	}

	if err := b.db.SelectContext(ctx, &snapshot.Teachers, "SELECT id, name, username FROM teachers ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}

	return snapshot, nil
}

// Commit writes the change set atomically. Failures name the entity that could not be written.
func (b *PostgresBackend) Commit(ctx context.Context, changes store.ChangeSet) (err error) {
	start := time.Now()
	defer b.observe("commit", start)

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return &store.CommitError{Resource: "transaction", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, term := range changes.Terms {
		doc, err := json.Marshal(term)
		if err != nil {
			return &store.CommitError{Resource: "term", ID: term.ID, Err: err}
		}
		if _, err := tx.ExecContext(ctx, upsertTermQuery, term.ID, term.Name, nullableDate(term.StartDate), nullableDate(term.EndDate), doc); err != nil {
			return &store.CommitError{Resource: "term", ID: term.ID, Err: err}
		}
	}
	for _, student := range changes.Students {
		doc, err := json.Marshal(student)
		if err != nil {
			return &store.CommitError{Resource: "student", ID: student.ID, Err: err}
		}
		if _, err := tx.ExecContext(ctx, upsertStudentQuery, student.ID, student.Name, string(student.Status), doc); err != nil {
			return &store.CommitError{Resource: "student", ID: student.ID, Err: err}
		}
	}
	for _, request := range changes.Requests {
		doc, err := json.Marshal(request)
		if err != nil {
			return &store.CommitError{Resource: "request", ID: request.ID, Err: err}
		}
		if _, err := tx.ExecContext(ctx, upsertRequestQuery, request.ID, string(request.Type), string(request.Status), request.TeacherID, doc, request.Date); err != nil {
			return &store.CommitError{Resource: "request", ID: request.ID, Err: err}
		}
	}
	for _, leave := range changes.Leaves {
		doc, err := json.Marshal(leave)
		if err != nil {
			return &store.CommitError{Resource: "leave", ID: leave.ID, Err: err}
		}
		if _, err := tx.ExecContext(ctx, upsertLeaveQuery, leave.ID, string(leave.Type), leave.PersonID, string(leave.Status), leave.StartDate, leave.EndDate, doc); err != nil {
			return &store.CommitError{Resource: "leave", ID: leave.ID, Err: err}
		}
	}
	for _, teacher := range changes.Teachers {
		if _, err := tx.ExecContext(ctx, upsertTeacherQuery, teacher.ID, teacher.Name, teacher.Username); err != nil {
			return &store.CommitError{Resource: "teacher", ID: teacher.ID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &store.CommitError{Resource: "transaction", Err: err}
	}
	return nil
}

func (b *PostgresBackend) observe(label string, start time.Time) {
	if b.metrics != nil {
		b.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func nullableDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
