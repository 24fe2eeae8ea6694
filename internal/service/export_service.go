package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
	"github.com/noah-isme/music-school-api/pkg/export"
	"github.com/noah-isme/music-school-api/pkg/storage"
)

// ExportFormat is the rendered file type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ScheduleExportHeaders is the column order of a teacher week export.
var ScheduleExportHeaders = []string{"Day", "Time", "Specialization", "Type", "Student Name", "Attendance"}

const unmarkedLabel = "N/A"

type weekViewer interface {
	TeacherWeek(ctx context.Context, actor *models.Actor, termID, teacher string, date time.Time) (*models.WeekView, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	Key       string       `json:"key"`
	Filename  string       `json:"filename"`
	Token     string       `json:"token"`
	URL       string       `json:"url"`
	Format    ExportFormat `json:"format"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Download is an opened export file.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// ExportService renders teacher weeks and persists the files behind signed links.
type ExportService struct {
	schedule weekViewer
	files    storage.FileStore
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(schedule weekViewer, files storage.FileStore, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithQuoteAll(), export.WithCRLF())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(true)
	}
	return &ExportService{
		schedule: schedule,
		files:    files,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// TeacherWeekDataset flattens a week view to one row per (session, student).
// Sessions without students still yield a row with an empty name.
func TeacherWeekDataset(view *models.WeekView) export.Dataset {
	data := export.Dataset{Headers: ScheduleExportHeaders}
	for _, session := range view.Sessions {
		base := map[string]string{
			"Day":            string(session.Day),
			"Time":           session.Session.Time,
			"Specialization": session.Session.Specialization,
			"Type":           string(session.Session.Type),
		}
		if len(session.Students) == 0 {
			data.Rows = append(data.Rows, withStudent(base, "", unmarkedLabel))
			continue
		}
		for _, student := range session.Students {
			attendance := unmarkedLabel
			if student.Attendance.Status != nil {
				attendance = string(*student.Attendance.Status)
			}
			data.Rows = append(data.Rows, withStudent(base, student.Name, attendance))
		}
	}
	return data
}

func withStudent(base map[string]string, name, attendance string) map[string]string {
	row := make(map[string]string, len(base)+2)
	for k, v := range base {
		row[k] = v
	}
	row["Student Name"] = name
	row["Attendance"] = attendance
	return row
}

// TeacherWeekCSV renders the week as quoted CRLF CSV.
func (s *ExportService) TeacherWeekCSV(ctx context.Context, actor *models.Actor, termID, teacher string, date time.Time) ([]byte, *models.WeekView, error) {
	view, err := s.schedule.TeacherWeek(ctx, actor, termID, teacher, date)
	if err != nil {
		return nil, nil, err
	}
	payload, err := s.csv.Render(TeacherWeekDataset(view))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, view, nil
}

// TeacherWeekPDF renders the week as a landscape table.
func (s *ExportService) TeacherWeekPDF(ctx context.Context, actor *models.Actor, termID, teacher string, date time.Time) ([]byte, *models.WeekView, error) {
	view, err := s.schedule.TeacherWeek(ctx, actor, termID, teacher, date)
	if err != nil {
		return nil, nil, err
	}
	title := fmt.Sprintf("Schedule %s", view.Teacher)
	subtitle := fmt.Sprintf("Week of %s", view.WeekStart)
	if view.TeacherOnLeave {
		subtitle += " (teacher on leave)"
	}
	payload, err := s.pdf.Render(TeacherWeekDataset(view), title, subtitle)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, view, nil
}

// Generate renders the week, stores it and returns a signed download link.
func (s *ExportService) Generate(ctx context.Context, actor *models.Actor, termID, teacher string, date time.Time, format ExportFormat) (*ExportResult, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage is not configured")
	}
	var (
		payload     []byte
		view        *models.WeekView
		err         error
		contentType string
	)
	switch format {
	case ExportCSV, "":
		format = ExportCSV
		contentType = "text/csv; charset=utf-8"
		payload, view, err = s.TeacherWeekCSV(ctx, actor, termID, teacher, date)
	case ExportPDF:
		contentType = "application/pdf"
		payload, view, err = s.TeacherWeekPDF(ctx, actor, termID, teacher, date)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, err
	}

	id := newID("")
	filename := fmt.Sprintf("schedule-%s-%s.%s", sanitizeFilename(view.Teacher), view.WeekStart, format)
	key := path.Join(sanitizeFilename(termID), id, filename)
	if err := s.files.Put(ctx, key, payload, contentType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export generated", zap.String("key", key), zap.String("format", string(format)))
	return &ExportResult{
		Key:       key,
		Filename:  filename,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(ctx context.Context, token string) (*Download, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage is not configured")
	}
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	body, err := s.files.Get(ctx, claims.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrNotFound, "export not found"), "export", claims.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	filename := path.Base(claims.Key)
	contentType := "text/csv; charset=utf-8"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	return &Download{Filename: filename, ContentType: contentType, Body: body}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
