package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// CreateTermRequest describes payload for creating terms.
type CreateTermRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

// UpdateTermRequest updates mutable fields on a term.
type UpdateTermRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// TermService orchestrates term workflows.
type TermService struct {
	store     schoolStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService creates a new term service instance.
func NewTermService(st schoolStore, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{store: st, validator: validate, logger: logger}
}

// List returns term summaries ordered by start date.
func (s *TermService) List(ctx context.Context) []models.TermSummary {
	terms := s.store.Terms()
	summaries := make([]models.TermSummary, 0, len(terms))
	for _, term := range terms {
		summaries = append(summaries, summarize(term))
	}
	return summaries
}

// Get returns a term with its full schedule.
func (s *TermService) Get(ctx context.Context, id string) (*models.Term, error) {
	term, ok := s.store.Term(id)
	if !ok {
		return nil, termNotFound(id)
	}
	return term, nil
}

// Create registers an empty term.
func (s *TermService) Create(ctx context.Context, actor *models.Actor, req CreateTermRequest) (*models.Term, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid term payload")
	}
	if err := validateTermDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	term := &models.Term{
		ID:               newID("SEM"),
		Name:             strings.TrimSpace(req.Name),
		StartDate:        req.StartDate.UTC(),
		EndDate:          req.EndDate.UTC(),
		Teachers:         []string{},
		MasterSchedule:   models.MasterSchedule{},
		WeeklyAttendance: models.WeeklyAttendance{},
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		tx.PutTerm(term)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("term created", zap.String("term_id", term.ID))
	return term, nil
}

// Update renames a term or moves its dates.
func (s *TermService) Update(ctx context.Context, actor *models.Actor, id string, req UpdateTermRequest) (*models.Term, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid term payload")
	}
	var updated *models.Term
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		term, err := tx.MutableTerm(id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			term.Name = strings.TrimSpace(*req.Name)
		}
		if req.StartDate != nil {
			term.StartDate = req.StartDate.UTC()
		}
		if req.EndDate != nil {
			term.EndDate = req.EndDate.UTC()
		}
		if err := validateTermDates(term.StartDate, term.EndDate); err != nil {
			return err
		}
		updated = term
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateTermDates(start, end time.Time) error {
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	return nil
}

func summarize(term *models.Term) models.TermSummary {
	count := 0
	for _, days := range term.MasterSchedule {
		for _, sessions := range days {
			count += len(sessions)
		}
	}
	return models.TermSummary{
		ID:           term.ID,
		Name:         term.Name,
		StartDate:    term.StartDate,
		EndDate:      term.EndDate,
		Teachers:     append([]string{}, term.Teachers...),
		SessionCount: count,
	}
}
