package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// schoolStore is the subset of store.Store the services depend on.
type schoolStore interface {
	Term(id string) (*models.Term, bool)
	Terms() []*models.Term
	Student(id string) (*models.Student, bool)
	Students() []*models.Student
	Request(id string) (*models.ChangeRequest, bool)
	Requests(filter models.RequestFilter) []*models.ChangeRequest
	Leave(id string) (*models.Leave, bool)
	Leaves(filter models.LeaveFilter) []*models.Leave
	Teachers() []models.Teacher
	TeacherByName(name string) (models.Teacher, bool)
	Snapshot() *store.Snapshot
	Update(ctx context.Context, fn func(tx *store.Tx) error) error
}

func utcNow() time.Time { return time.Now().UTC() }

func newID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

func requireActor(actor *models.Actor) error {
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func requireAdmin(actor *models.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.CanEditDirectly() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can perform this action")
	}
	return nil
}

func requireReports(actor *models.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.CanViewReports() {
		return appErrors.Clone(appErrors.ErrForbidden, "reports are not available for this role")
	}
	return nil
}

func termNotFound(id string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrTermNotFound, fmt.Sprintf("term %s not found", id)), "term", id)
}

func profileNotFound(id string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrProfileNotFound, fmt.Sprintf("student %s not found", id)), "student", id)
}

func sessionNotFound(id string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("session %s not found", id)), "session", id)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
