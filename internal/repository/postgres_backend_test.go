package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
)

func newBackendMock(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresBackend(sqlx.NewDb(db, "sqlmock"), nil), mock, func() { db.Close() }
}

type recordingObserver struct{ labels []string }

func (r *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	r.labels = append(r.labels, label)
}

func TestPostgresBackendLoad(t *testing.T) {
	backend, mock, cleanup := newBackendMock(t)
	defer cleanup()
	observer := &recordingObserver{}
	backend.metrics = observer

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document FROM terms")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}).
			AddRow("fall-2024", `{"id":"fall-2024","name":"Fall","teachers":["Hazem"],"masterSchedule":{"Hazem":{"Saturday":[{"id":"Saturday-Hazem-200PM","time":"2:00 PM","students":[]}]}}}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}).
			AddRow("STU001", `{"id":"STU001","name":"Sahl","enrolledIn":[{"termId":"fall-2024","teacherName":"Hazem","sessionId":"Saturday-Hazem-200PM"}],"status":"active"}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document FROM change_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document FROM leaves")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, username FROM teachers")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username"}).AddRow("7", "Hazem", "حازم"))

	snapshot, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, snapshot.Terms, "fall-2024")
	term := snapshot.Terms["fall-2024"]
	assert.NotNil(t, term.WeeklyAttendance)
	_, _, ok := term.MasterSchedule.FindSession("Hazem", models.Saturday, "Saturday-Hazem-200PM")
	assert.True(t, ok)
	assert.Equal(t, "Hazem", snapshot.Students["STU001"].EnrolledIn[0].Teacher)
	assert.Equal(t, []models.Teacher{{ID: "7", Name: "Hazem", Username: "حازم"}}, snapshot.Teachers)
	assert.Equal(t, []string{"load"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendLoadRejectsCorruptDocument(t *testing.T) {
	backend, mock, cleanup := newBackendMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document FROM terms")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}).AddRow("broken", `{`))

	_, err := backend.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode term broken")
}

func TestPostgresBackendCommitWritesOneTransaction(t *testing.T) {
	backend, mock, cleanup := newBackendMock(t)
	defer cleanup()

	start := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)
	changes := store.ChangeSet{
		Terms:    []*models.Term{{ID: "fall-2024", Name: "Fall", StartDate: start}},
		Students: []*models.Student{{ID: "STU001", Name: "Sahl", Status: models.StudentActive}},
		Requests: []*models.ChangeRequest{{ID: "req-1", Type: models.RequestRemoveStudent, Status: models.RequestPending, TeacherID: "7", Date: start}},
		Leaves:   []*models.Leave{{ID: "leave-1", Type: models.LeaveStudent, PersonID: "STU001", Status: models.LeaveApproved, StartDate: start, EndDate: start}},
		Teachers: []models.Teacher{{ID: "7", Name: "Hazem", Username: "حازم"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).
		WithArgs("fall-2024", "Fall", start, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("STU001", "Sahl", "active", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WithArgs("req-1", "remove-student", "pending", "7", sqlmock.AnyArg(), start).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leaves")).
		WithArgs("leave-1", "student", "STU001", "approved", start, start, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers")).
		WithArgs("7", "Hazem", "حازم").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, backend.Commit(context.Background(), changes))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendCommitRollsBackAndNamesEntity(t *testing.T) {
	backend, mock, cleanup := newBackendMock(t)
	defer cleanup()

	changes := store.ChangeSet{
		Terms:    []*models.Term{{ID: "fall-2024", Name: "Fall"}},
		Students: []*models.Student{{ID: "STU001", Name: "Sahl", Status: models.StudentActive}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := backend.Commit(context.Background(), changes)
	var commitErr *store.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "student", commitErr.Resource)
	assert.Equal(t, "STU001", commitErr.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
