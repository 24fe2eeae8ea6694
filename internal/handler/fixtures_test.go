package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/middleware"
	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/pkg/storage"
)

const (
	fallTerm   = "fall-2024"
	satSession = "Saturday-Hazem-200PM"
	monSession = "Monday-Hazem-400PM"
)

var (
	adminActor   = models.Actor{ID: "admin-1", Name: "Office", ActiveRole: models.RoleAdmin}
	hazemActor   = models.Actor{ID: "7", Name: "Hazem", ActiveRole: models.RoleTeacher}
	managerActor = models.Actor{ID: "m-1", Name: "Manager", ActiveRole: models.RoleUpperManagement}
)

type apiFixture struct {
	router *gin.Engine
	store  *store.Store
	auth   *service.AuthService
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *struct{ Code string } `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(zap.NewNop())
	require.NoError(t, st.Update(context.Background(), func(tx *store.Tx) error {
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
					models.Saturday: {oudSession(satSession, "2:00 PM", "3:00 PM", models.SessionStudent{ID: "STU001", Name: "Sahl"})},
					models.Monday:   {oudSession(monSession, "4:00 PM", "5:00 PM")},
				},
			},
		})
		tx.PutStudent(&models.Student{
			ID:             "STU001",
			Name:           "Sahl",
			Level:          models.DefaultLevel,
			Status:         models.StudentActive,
			EnrollmentDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			PaymentPlan:    models.PaymentMonthly,
			EnrolledIn:     []models.EnrollmentRef{{TermID: fallTerm, Teacher: "Hazem", SessionID: satSession}},
		})
		tx.PutStudent(&models.Student{
			ID:             "STU002",
			Name:           "Lina",
			Level:          models.DefaultLevel,
			Status:         models.StudentActive,
			EnrollmentDate: time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
			PaymentPlan:    models.PaymentNone,
			EnrolledIn:     []models.EnrollmentRef{},
		})
		return nil
	}))

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("exports-secret", time.Hour)

	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour, Issuer: "test"})
	enrollment := service.NewEnrollmentService(st, nil, nil, nil)
	requests := service.NewChangeRequestService(st, nil, nil, nil, service.WithRequestAppliers(enrollment.RequestAppliers()))
	schedule := service.NewScheduleService(st, 10, nil)

	router := gin.New()
	RegisterRoutes(router, "/api/v1", Handlers{
		Terms:       NewTermHandler(service.NewTermService(st, nil, nil), schedule),
		Schedule:    NewScheduleHandler(schedule),
		Enrollments: NewEnrollmentHandler(enrollment),
		Attendance:  NewAttendanceHandler(service.NewAttendanceService(st, nil)),
		Imports:     NewImportHandler(service.NewImportService(st, nil, nil, nil, "Oud", nil)),
		Exclusions:  NewExclusionHandler(service.NewExclusionService(st, nil, nil)),
		Exports:     NewExportHandler(service.NewExportService(schedule, files, signer, service.ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)),
		Students:    NewStudentHandler(service.NewStudentService(st, enrollment, nil, nil)),
		Requests:    NewRequestHandler(requests),
		Leaves:      NewLeaveHandler(service.NewLeaveService(st, nil, nil, nil)),
		Reports:     NewReportHandler(service.NewReportService(st, nil, time.Minute, nil)),
		Teachers:    NewTeacherHandler(service.NewTeacherService(st, nil, nil)),
	}, middleware.Actor(auth))

	return &apiFixture{router: router, store: st, auth: auth}
}

func oudSession(id, start, end string, students ...models.SessionStudent) models.Session {
	if students == nil {
		students = []models.SessionStudent{}
	}
	return models.Session{
		ID:             id,
		Time:           start,
		EndTime:        end,
		Duration:       1,
		Students:       students,
		Specialization: "Oud",
		Type:           models.SessionPractical,
	}
}

// do sends a request as actor; a nil actor sends no Authorization header.
func (f *apiFixture) do(t *testing.T, actor *models.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, _, err := f.auth.IssueToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
