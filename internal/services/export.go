package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	SheetCompletion = "Completion"
	SheetAverages   = "Averages"
)

// ExportService writes the dashboard data as an .xlsx workbook.
type ExportService struct {
	ids      *IDMaps
	tracker  *CompletionTracker
	reporter *ReportService
}

func NewExportService(ids *IDMaps, tracker *CompletionTracker, reporter *ReportService) *ExportService {
	return &ExportService{ids: ids, tracker: tracker, reporter: reporter}
}

func (s *ExportService) WriteWorkbook(ctx context.Context, w io.Writer) error {
	summary, err := s.tracker.Summary(ctx)
	if err != nil {
		return err
	}
	averages, err := s.reporter.AverageScores(ctx, nil)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCompletion); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetAverages); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := s.writeCompletion(f, summary); err != nil {
		return err
	}
	if err := s.writeAverages(f, averages); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (s *ExportService) writeCompletion(f *excelize.File, summary *CompletionSummary) error {
	header := []interface{}{"Reviewer", "Username", "Status", "Submitted", "Expected", "Remaining"}
	if err := setRow(f, SheetCompletion, 1, header); err != nil {
		return err
	}

	row := 2
	for _, group := range [][]ReviewerProgress{summary.Completed, summary.Pending, summary.NotStarted} {
		for _, p := range group {
			values := []interface{}{p.Reviewer.Name, p.Reviewer.Username, string(p.Status), p.Submitted, p.Expected, p.Remaining}
			if err := setRow(f, SheetCompletion, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(SheetCompletion, "A", "A", 24)
}

func (s *ExportService) writeAverages(f *excelize.File, averages map[uint]RateeScores) error {
	header := []interface{}{"Ratee", "Metric", "Peer Average", "Self Rating"}
	if err := setRow(f, SheetAverages, 1, header); err != nil {
		return err
	}

	row := 2
	for _, ratee := range s.ids.Users {
		scores := averages[ratee.ID]
		for _, metric := range s.ids.Metrics {
			values := []interface{}{ratee.Name, metric.Name, nil, nil}
			if avg, ok := scores.Ratings[metric.Name]; ok {
				values[2] = avg
			}
			if self, ok := scores.SelfRating[metric.Name]; ok {
				values[3] = self
			}
			if err := setRow(f, SheetAverages, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(SheetAverages, "A", "B", 32)
}
