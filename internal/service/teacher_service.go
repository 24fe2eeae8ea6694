package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// UpsertTeacherRequest represents a directory entry payload.
type UpsertTeacherRequest struct {
	ID       string `json:"id" validate:"required,max=50"`
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,max=100"`
}

// TeacherService manages the teacher directory used to resolve roster labels.
type TeacherService struct {
	store     schoolStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(st schoolStore, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{store: st, validator: validate, logger: logger}
}

// List returns the directory.
func (s *TeacherService) List(ctx context.Context) []models.Teacher {
	return s.store.Teachers()
}

// Get resolves a teacher by id, display name or username.
func (s *TeacherService) Get(ctx context.Context, key string) (*models.Teacher, error) {
	teacher, ok := s.store.TeacherByName(strings.TrimSpace(key))
	if !ok {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrTeacherNotFound, fmt.Sprintf("teacher %s not found", key)), "teacher", key)
	}
	return &teacher, nil
}

// Upsert adds or replaces a directory entry. Names and usernames stay unique.
func (s *TeacherService) Upsert(ctx context.Context, actor *models.Actor, req UpsertTeacherRequest) (*models.Teacher, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher := models.Teacher{
		ID:       strings.TrimSpace(req.ID),
		Name:     strings.TrimSpace(req.Name),
		Username: strings.TrimSpace(req.Username),
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		for _, existing := range tx.Teachers() {
			if existing.ID == teacher.ID {
				continue
			}
			if existing.Name == teacher.Name || existing.Username == teacher.Username {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %q already exists", teacher.Name))
			}
		}
		tx.PutTeacher(teacher)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}
