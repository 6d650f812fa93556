package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examshield/exam-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ReportService exports proctoring rollups for offline review.
type ReportService interface {
	ExportViolationStats(ctx context.Context, testID uint) ([]byte, error)
}

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportViolationStats writes the per-user violation rollup for a test to an
// xlsx workbook. Users with no recorded events do not appear.
func (s *reportService) ExportViolationStats(ctx context.Context, testID uint) ([]byte, error) {
	stats, err := s.repo.Proctoring().GetStatsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate proctoring stats: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Violations"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"User ID", "Full Name", "Email", "Total Violations",
		"Avg Cheating Score", "Critical Events", "High Events",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, stat := range stats {
		row := []interface{}{
			stat.UserID,
			stat.UserFullName,
			stat.UserEmail,
			stat.TotalViolations,
			stat.AvgCheatingScore,
			stat.CriticalCount,
			stat.HighCount,
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Violation stats exported", "test_id", testID, "rows", len(stats))
	return buf.Bytes(), nil
}
