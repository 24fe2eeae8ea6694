package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

type requestMetrics interface {
	RecordChangeRequest(requestType models.RequestType, status models.RequestStatus)
}

// RequestApplier applies a review decision inside the review transaction.
type RequestApplier interface {
	Apply(ctx context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error
}

// RequestApplierFunc allows using plain functions.
type RequestApplierFunc func(ctx context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error

// Apply implements RequestApplier.
func (f RequestApplierFunc) Apply(ctx context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error {
	return f(ctx, tx, request, decision)
}

// ReviewInput is an administrator's decision on a request.
type ReviewInput struct {
	Status models.RequestStatus `json:"status" validate:"required,oneof=approved denied"`
	Note   string               `json:"note" validate:"max=500"`
}

// ChangeRequestService runs the review workflow for teacher change requests.
type ChangeRequestService struct {
	store    schoolStore
	appliers map[models.RequestType]RequestApplier
	notifier Notifier
	metrics  requestMetrics
	logger   *zap.Logger
}

// ChangeRequestOption configures the service.
type ChangeRequestOption func(*ChangeRequestService)

// WithRequestAppliers sets the applier map keyed by request type.
func WithRequestAppliers(appliers map[models.RequestType]RequestApplier) ChangeRequestOption {
	return func(s *ChangeRequestService) {
		for k, v := range appliers {
			s.appliers[k] = v
		}
	}
}

// NewChangeRequestService constructs the service with defaults.
func NewChangeRequestService(st schoolStore, notifier Notifier, metrics requestMetrics, logger *zap.Logger, opts ...ChangeRequestOption) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ChangeRequestService{
		store:    st,
		appliers: make(map[models.RequestType]RequestApplier),
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// stageChangeRequest records a new pending request in the caller's transaction.
func stageChangeRequest(tx *store.Tx, actor *models.Actor, requestType models.RequestType, details models.RequestDetails) *models.ChangeRequest {
	request := &models.ChangeRequest{
		ID:          newID("req"),
		Type:        requestType,
		Status:      models.RequestPending,
		Date:        utcNow(),
		TeacherID:   actor.ID,
		TeacherName: actor.Name,
		Details:     details,
	}
	tx.PutRequest(request)
	copied := *request
	return &copied
}

// List returns requests visible to the actor. Teachers only see their own.
func (s *ChangeRequestService) List(ctx context.Context, actor *models.Actor, filter models.RequestFilter) ([]models.ChangeRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch {
	case actor.CanEditDirectly(), actor.CanViewReports():
	case actor.CanRequestChanges():
		filter.TeacherID = actor.ID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests := s.store.Requests(filter)
	out := make([]models.ChangeRequest, 0, len(requests))
	for _, request := range requests {
		out = append(out, *request)
	}
	return out, nil
}

// Get returns a request enforcing teacher scope.
func (s *ChangeRequestService) Get(ctx context.Context, actor *models.Actor, id string) (*models.ChangeRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	request, ok := s.store.Request(id)
	if !ok {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrRequestNotFound, fmt.Sprintf("change request %s not found", id)), "request", id)
	}
	if !actor.CanEditDirectly() && !actor.CanViewReports() && request.TeacherID != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	copied := *request
	return &copied, nil
}

// Review approves or denies a pending request. The decision and its schedule
// changes are committed together.
func (s *ChangeRequestService) Review(ctx context.Context, actor *models.Actor, id string, input ReviewInput) (*models.ChangeRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Status != models.RequestApproved && input.Status != models.RequestDenied {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or denied")
	}

	var reviewed models.ChangeRequest
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		request, err := tx.MutableRequest(id)
		if err != nil {
			return err
		}
		if request.Status != models.RequestPending {
			return appErrors.Clone(appErrors.ErrConflict, "change request already reviewed")
		}
		applier := s.appliers[request.Type]
		if applier == nil && input.Status == models.RequestApproved {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("unsupported request type: %s", request.Type))
		}
		if applier != nil {
			if err := applier.Apply(ctx, tx, request, input.Status); err != nil {
				return err
			}
		}
		now := utcNow()
		request.Status = input.Status
		request.ReviewedBy = actor.ID
		request.ReviewedAt = &now
		request.ReviewNote = input.Note
		reviewed = *request
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordChangeRequest(reviewed.Type, reviewed.Status)
	}
	s.logger.Info("change request reviewed",
		zap.String("request_id", reviewed.ID),
		zap.String("type", string(reviewed.Type)),
		zap.String("status", string(reviewed.Status)),
		zap.String("reviewer", actor.ID),
	)
	notify(ctx, s.notifier, "Change request "+string(reviewed.Status),
		fmt.Sprintf("%s for %s (%s)", reviewed.Type, reviewed.Details.StudentName, reviewed.Details.SessionID), SeveritySuccess)
	return &reviewed, nil
}

// RequestAppliers returns the review appliers backed by the enrollment engine.
func (s *EnrollmentService) RequestAppliers() map[models.RequestType]RequestApplier {
	return map[models.RequestType]RequestApplier{
		models.RequestRemoveStudent: RequestApplierFunc(s.applyRemoval),
		models.RequestAddStudent:    RequestApplierFunc(s.applyAddition),
		models.RequestChangeTime:    RequestApplierFunc(s.applyTimeChange),
	}
}

func refFromRequest(request *models.ChangeRequest) SessionRef {
	return SessionRef{
		StudentID: request.Details.StudentID,
		TermID:    request.Details.TermID,
		Teacher:   request.Details.Teacher,
		Day:       request.Details.Day,
		SessionID: request.Details.SessionID,
	}
}

// applyRemoval removes the student on approval. Either way the pending flag is cleared.
func (s *EnrollmentService) applyRemoval(_ context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error {
	ref := refFromRequest(request)
	if decision == models.RequestApproved {
		outcome, err := s.removeTx(tx, ref)
		if err != nil {
			return err
		}
		s.record("remove", outcome)
		return nil
	}
	term, ok := tx.Term(ref.TermID)
	if !ok {
		return nil
	}
	day, idx, ok := term.MasterSchedule.FindSession(ref.Teacher, ref.Day, ref.SessionID)
	if !ok {
		return nil
	}
	seat := term.MasterSchedule[ref.Teacher][day][idx].StudentIndex(ref.StudentID)
	if seat < 0 || !term.MasterSchedule[ref.Teacher][day][idx].Students[seat].PendingRemoval {
		return nil
	}
	session, _, err := tx.MutableSession(ref.TermID, ref.Teacher, day, ref.SessionID)
	if err != nil {
		return err
	}
	session.Students[seat].PendingRemoval = false
	return nil
}

func (s *EnrollmentService) applyAddition(_ context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error {
	if decision != models.RequestApproved {
		return nil
	}
	outcome, _, err := s.enrollTx(tx, refFromRequest(request))
	if err != nil {
		return err
	}
	s.record("enroll", outcome)
	return nil
}

func (s *EnrollmentService) applyTimeChange(_ context.Context, tx *store.Tx, request *models.ChangeRequest, decision models.RequestStatus) error {
	if decision != models.RequestApproved {
		return nil
	}
	outcome, _, err := s.changeTimeTx(tx, refFromRequest(request), request.Details.NewTime)
	if err != nil {
		return err
	}
	s.record("change-time", outcome)
	return nil
}
