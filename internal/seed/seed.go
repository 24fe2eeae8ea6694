// Package seed provides the default teacher directory and a sample roster for local runs.
package seed

import (
	"context"
	_ "embed"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/internal/store"
)

//go:embed roster.csv
var sampleRoster string

// systemActor performs the seed import.
var systemActor = &models.Actor{ID: "system", Name: "Seed", ActiveRole: models.RoleAdmin}

type importer interface {
	Import(ctx context.Context, actor *models.Actor, input service.ImportInput) (*service.ImportResult, error)
}

// Teachers is the default directory. Roster labels resolve against Name or Username.
func Teachers() []models.Teacher {
	return []models.Teacher{
		{ID: "6", Name: "Nahad", Username: "نهاد"},
		{ID: "7", Name: "Hazem", Username: "حازم"},
		{ID: "8", Name: "Hani", Username: "هاني"},
		{ID: "9", Name: "Nabil", Username: "نبيل"},
		{ID: "10", Name: "Basem", Username: "باسم"},
		{ID: "11", Name: "Bassam", Username: "بسام"},
		{ID: "12", Name: "Naji", Username: "ناجي"},
		{ID: "13", Name: "Yarob", Username: "يعرب"},
		{ID: "14", Name: "Islam", Username: "إسلام"},
		{ID: "15", Name: "Nancy", Username: "nancy"},
	}
}

// SampleRoster returns the embedded roster text.
func SampleRoster() string {
	return sampleRoster
}

// Options controls what Apply creates.
type Options struct {
	TermID   string
	TermName string
	Start    time.Time
	End      time.Time
}

// Apply loads the directory and, when the store has no terms, a term filled from the sample
// roster. A store that already holds terms only gets missing directory entries.
func Apply(ctx context.Context, st *store.Store, imports importer, opts Options, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TermID == "" {
		opts.TermID = "fall-2024"
	}
	if opts.TermName == "" {
		opts.TermName = "Fall 2024"
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.End.IsZero() {
		opts.End = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	}

	fresh := len(st.Terms()) == 0
	err := st.Update(ctx, func(tx *store.Tx) error {
		for _, teacher := range Teachers() {
			if _, ok := tx.TeacherByName(teacher.ID); !ok {
				tx.PutTeacher(teacher)
			}
		}
		if fresh {
			tx.PutTerm(&models.Term{
				ID:             opts.TermID,
				Name:           opts.TermName,
				StartDate:      opts.Start,
				EndDate:        opts.End,
				Teachers:       []string{},
				MasterSchedule: models.MasterSchedule{},
			})
		}
		return nil
	})
	if err != nil || !fresh {
		return err
	}

	result, err := imports.Import(ctx, systemActor, service.ImportInput{TermID: opts.TermID, Text: sampleRoster, Mode: service.ImportReplace})
	if err != nil {
		return err
	}
	logger.Info("sample roster loaded",
		zap.String("term_id", opts.TermID),
		zap.Int("students", result.Students),
		zap.Int("sessions", result.Sessions),
		zap.Int("skipped", len(result.Skipped)))
	return nil
}
