package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/avramart/tutorhub-api/internal/models"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/export"
)

// ExportFormat names a supported schedule export format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type scheduleReader interface {
	FindScheduleByUser(ctx context.Context, userID string) ([]models.ScheduleEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ScheduleExportService renders a user's meeting schedule as CSV or PDF.
type ScheduleExportService struct {
	meetings scheduleReader
	access   *AccessService
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewScheduleExportService constructs a ScheduleExportService.
func NewScheduleExportService(meetings scheduleReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ScheduleExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	return &ScheduleExportService{meetings: meetings, access: NewAccessService(), csv: csv, pdf: pdf, logger: logger}
}

// Export renders the schedule of the given user. It returns the payload and
// the content type to serve it with.
func (s *ScheduleExportService) Export(ctx context.Context, user *models.User, format ExportFormat) ([]byte, string, error) {
	if err := s.access.RequireUser(user); err != nil {
		return nil, "", err
	}

	entries, err := s.meetings.FindScheduleByUser(ctx, user.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	dataset := buildScheduleDataset(entries)
	title := fmt.Sprintf("Schedule for %s %s", user.FirstName, user.LastName)

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildScheduleDataset(entries []models.ScheduleEntry) export.Dataset {
	headers := []string{"Course", "Room", "Beginning", "Duration (min)", "Teacher", "Student"}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		student := ""
		if entry.StudentName != nil {
			student = *entry.StudentName
		}
		rows = append(rows, map[string]string{
			"Course":         entry.CourseName,
			"Room":           entry.Room,
			"Beginning":      entry.Beginning.Format("2006-01-02 15:04"),
			"Duration (min)": strconv.Itoa(entry.Duration),
			"Teacher":        entry.TeacherName,
			"Student":        student,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
