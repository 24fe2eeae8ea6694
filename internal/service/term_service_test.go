package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

func TestTermCreateListAndUpdate(t *testing.T) {
	st := newSchoolStore(t)
	svc := NewTermService(st, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, adminActor, CreateTermRequest{
		Name:      " Spring 2025 ",
		StartDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.ID, "SEM-"))
	assert.Equal(t, "Spring 2025", created.Name)

	summaries := svc.List(ctx)
	require.Len(t, summaries, 2)
	assert.Equal(t, fallTerm, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].SessionCount)
	assert.Equal(t, created.ID, summaries[1].ID)

	name := "Spring Term"
	updated, err := svc.Update(ctx, adminActor, created.ID, UpdateTermRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Update(ctx, adminActor, created.ID, UpdateTermRequest{EndDate: &early})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, appErrors.ErrTermNotFound)
}

func TestTermCreateGuards(t *testing.T) {
	svc := NewTermService(newSchoolStore(t), nil, nil)
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, hazemActor, CreateTermRequest{Name: "x", StartDate: start, EndDate: start})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, adminActor, CreateTermRequest{Name: "x", StartDate: start, EndDate: start.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(ctx, adminActor, CreateTermRequest{StartDate: start, EndDate: start})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTeacherDirectoryUpsert(t *testing.T) {
	svc := NewTeacherService(newSchoolStore(t), nil, nil)
	ctx := context.Background()

	added, err := svc.Upsert(ctx, adminActor, UpsertTeacherRequest{ID: "11", Name: "Bassam", Username: "بسام"})
	require.NoError(t, err)
	assert.Equal(t, "Bassam", added.Name)
	assert.Len(t, svc.List(ctx), 3)

	byUsername, err := svc.Get(ctx, "بسام")
	require.NoError(t, err)
	assert.Equal(t, "11", byUsername.ID)

	renamed, err := svc.Upsert(ctx, adminActor, UpsertTeacherRequest{ID: "11", Name: "Bassam K", Username: "بسام"})
	require.NoError(t, err)
	assert.Equal(t, "Bassam K", renamed.Name)
	assert.Len(t, svc.List(ctx), 3)

	_, err = svc.Upsert(ctx, adminActor, UpsertTeacherRequest{ID: "99", Name: "Hazem", Username: "hazem2"})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Get(ctx, "nobody")
	require.ErrorIs(t, err, appErrors.ErrTeacherNotFound)
}

func TestExclusionRules(t *testing.T) {
	st := newSchoolStore(t)
	svc := NewExclusionService(st, nil, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, adminActor, fallTerm, AddExclusionRequest{
		Kind: "student-student", Person1ID: "STU001", Person2ID: "STU002", Reason: "too short",
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Add(ctx, adminActor, fallTerm, AddExclusionRequest{
		Kind: "student-student", Person1ID: "STU001", Person2ID: "STU001", Reason: "same person twice over",
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Add(ctx, adminActor, fallTerm, AddExclusionRequest{
		Kind: "teacher-student", Person1ID: "Bassam", Person2ID: "STU001", Reason: "unknown teacher entry",
	})
	require.ErrorIs(t, err, appErrors.ErrTeacherNotFound)

	rule, err := svc.Add(ctx, adminActor, fallTerm, AddExclusionRequest{
		Kind: "student-student", Person1ID: "STU001", Person2ID: "STU002", Reason: "keep these two apart",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rule.ID, "EXC-"))

	listed, err := svc.List(ctx, fallTerm)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.Delete(ctx, adminActor, fallTerm, rule.ID))
	listed, err = svc.List(ctx, fallTerm)
	require.NoError(t, err)
	assert.Empty(t, listed)

	err = svc.Delete(ctx, adminActor, fallTerm, rule.ID)
	require.ErrorIs(t, err, appErrors.ErrExclusionNotFound)
}
