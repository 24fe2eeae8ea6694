package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// AddExclusionRequest describes a keep-apart rule. For teacher-student rules Person1 is the teacher.
type AddExclusionRequest struct {
	Kind      models.ExclusionKind `json:"kind" validate:"required,oneof=teacher-student student-student"`
	Person1ID string               `json:"person1Id" validate:"required"`
	Person2ID string               `json:"person2Id" validate:"required"`
	Reason    string               `json:"reason" validate:"required"`
}

// ExclusionService manages advisory exclusion rules per term.
type ExclusionService struct {
	store     schoolStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExclusionService constructs the service.
func NewExclusionService(st schoolStore, validate *validator.Validate, logger *zap.Logger) *ExclusionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExclusionService{store: st, validator: validate, logger: logger}
}

// List returns the rules of a term.
func (s *ExclusionService) List(ctx context.Context, termID string) ([]models.Exclusion, error) {
	term, ok := s.store.Term(termID)
	if !ok {
		return nil, termNotFound(termID)
	}
	return append([]models.Exclusion{}, term.Exclusions...), nil
}

// Add validates and stores a rule, caching both display names.
func (s *ExclusionService) Add(ctx context.Context, actor *models.Actor, termID string, req AddExclusionRequest) (*models.Exclusion, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exclusion payload")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(req.Reason) < models.MinExclusionReason {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reason must be at least %d characters", models.MinExclusionReason))
	}

	var created models.Exclusion
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		first, firstName, err := s.resolveFirst(tx, req)
		if err != nil {
			return err
		}
		second, ok := tx.Student(req.Person2ID)
		if !ok {
			return profileNotFound(req.Person2ID)
		}
		if first == second.ID {
			return appErrors.Clone(appErrors.ErrValidation, "an exclusion needs two different people")
		}
		created = models.Exclusion{
			ID:          newID("EXC"),
			Kind:        req.Kind,
			Person1ID:   first,
			Person1Name: firstName,
			Person2ID:   second.ID,
			Person2Name: second.Name,
			Reason:      req.Reason,
			TermID:      termID,
			CreatedAt:   utcNow(),
		}
		return tx.AddExclusion(termID, created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *ExclusionService) resolveFirst(tx *store.Tx, req AddExclusionRequest) (string, string, error) {
	if req.Kind == models.ExclusionTeacherStudent {
		teacher, ok := tx.TeacherByName(req.Person1ID)
		if !ok {
			return "", "", appErrors.WithResource(appErrors.Clone(appErrors.ErrTeacherNotFound, fmt.Sprintf("teacher %s not found", req.Person1ID)), "teacher", req.Person1ID)
		}
		return teacher.ID, teacher.Name, nil
	}
	student, ok := tx.Student(req.Person1ID)
	if !ok {
		return "", "", profileNotFound(req.Person1ID)
	}
	return student.ID, student.Name, nil
}

// Delete removes a rule from the term.
func (s *ExclusionService) Delete(ctx context.Context, actor *models.Actor, termID, exclusionID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.RemoveExclusion(termID, exclusionID)
	})
}
