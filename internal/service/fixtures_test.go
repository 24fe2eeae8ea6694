package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
)

const (
	fallTerm   = "fall-2024"
	satSession = "Saturday-Hazem-200PM"
	monSession = "Monday-Hazem-400PM"
)

var (
	adminActor   = &models.Actor{ID: "admin-1", Name: "Office", ActiveRole: models.RoleAdmin}
	hazemActor   = &models.Actor{ID: "7", Name: "Hazem", ActiveRole: models.RoleTeacher}
	najiActor    = &models.Actor{ID: "12", Name: "Naji", ActiveRole: models.RoleTeacher}
	managerActor = &models.Actor{ID: "m-1", Name: "Manager", ActiveRole: models.RoleUpperManagement}
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, note Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
}

func (r *recordingNotifier) count(severity Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Severity == severity {
			n++
		}
	}
	return n
}

// newSchoolStore seeds one term with Sahl (STU001) on Saturday and an empty Monday
// session, plus Lina (STU002) enrolled nowhere.
func newSchoolStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(zap.NewNop())
	err := st.Update(context.Background(), func(tx *store.Tx) error {
		tx.PutTeacher(models.Teacher{ID: "7", Name: "Hazem", Username: "حازم"})
		tx.PutTeacher(models.Teacher{ID: "12", Name: "Naji", Username: "ناجي"})
		tx.PutTerm(&models.Term{
			ID:        fallTerm,
			Name:      "Fall 2024",
			StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Teachers:  []string{"Hazem"},
			MasterSchedule: models.MasterSchedule{
				"Hazem": models.DaySchedule{
					models.Saturday: {{
						ID:             satSession,
						Time:           "2:00 PM",
						EndTime:        "3:00 PM",
						Duration:       1,
						Students:       []models.SessionStudent{{ID: "STU001", Name: "Sahl"}},
						Specialization: "Oud",
						Type:           models.SessionPractical,
					}},
					models.Monday: {{
						ID:             monSession,
						Time:           "4:00 PM",
						EndTime:        "5:00 PM",
						Duration:       1,
						Students:       []models.SessionStudent{},
						Specialization: "Oud",
						Type:           models.SessionPractical,
					}},
				},
			},
		})
		tx.PutStudent(&models.Student{
			ID:             "STU001",
			Name:           "Sahl",
			Level:          models.DefaultLevel,
			EnrollmentDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			PaymentPlan:    models.PaymentMonthly,
			EnrolledIn:     []models.EnrollmentRef{{TermID: fallTerm, Teacher: "Hazem", SessionID: satSession}},
			Status:         models.StudentActive,
		})
		tx.PutStudent(&models.Student{
			ID:             "STU002",
			Name:           "Lina",
			Level:          models.DefaultLevel,
			EnrollmentDate: time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
			PaymentPlan:    models.PaymentNone,
			EnrolledIn:     []models.EnrollmentRef{},
			Status:         models.StudentActive,
		})
		return nil
	})
	require.NoError(t, err)
	return st
}

func session(t *testing.T, st *store.Store, teacher string, day models.Weekday, id string) models.Session {
	t.Helper()
	term, ok := st.Term(fallTerm)
	require.True(t, ok)
	found, idx, ok := term.MasterSchedule.FindSession(teacher, day, id)
	require.True(t, ok, "session %s not found", id)
	return term.MasterSchedule[teacher][found][idx]
}

func student(t *testing.T, st *store.Store, id string) *models.Student {
	t.Helper()
	s, ok := st.Student(id)
	require.True(t, ok)
	return s
}

func newEngines(st *store.Store, notifier Notifier) (*EnrollmentService, *ChangeRequestService) {
	enrollment := NewEnrollmentService(st, notifier, nil, nil)
	requests := NewChangeRequestService(st, notifier, nil, nil, WithRequestAppliers(enrollment.RequestAppliers()))
	return enrollment, requests
}
