package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/storage"
)

const sheetName = "Tournament Records"

// Exporter writes saved tournament records to Excel workbooks for the
// operations team.
type Exporter struct {
	store storage.RecordStore
	log   *logrus.Logger
}

// NewExporter creates an Exporter
func NewExporter(store storage.RecordStore, log *logrus.Logger) *Exporter {
	return &Exporter{store: store, log: log}
}

// WriteTo streams an Excel workbook of all saved records to w.
// Returns the number of exported records.
func (e *Exporter) WriteTo(w io.Writer) (int, error) {
	records, err := e.store.ListRecords()
	if err != nil {
		return 0, fmt.Errorf("listing records for export: %w", err)
	}

	f, buildErr := buildWorkbook(records)
	if buildErr != nil {
		return 0, buildErr
	}
	defer f.Close()

	if writeErr := f.Write(w); writeErr != nil {
		return 0, fmt.Errorf("writing workbook: %w", writeErr)
	}
	return len(records), nil
}

// ExportToFile writes the workbook into dir under a timestamped filename and
// returns the file path.
func (e *Exporter) ExportToFile(dir string) (string, int, error) {
	if mkdirErr := os.MkdirAll(dir, 0755); mkdirErr != nil {
		return "", 0, fmt.Errorf("creating export directory '%s': %w", dir, mkdirErr)
	}

	path := filepath.Join(dir, fmt.Sprintf("tournaments_%s.xlsx", time.Now().Format("20060102_150405")))
	file, createErr := os.Create(path)
	if createErr != nil {
		return "", 0, fmt.Errorf("creating export file '%s': %w", path, createErr)
	}
	defer file.Close()

	count, err := e.WriteTo(file)
	if err != nil {
		return "", 0, err
	}

	e.log.WithField("path", path).Infof("Exported %d tournament records", count)
	return path, count, nil
}

func buildWorkbook(records []*models.TournamentRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	headers := []string{
		"ID", "Venue", "Series", "Event #", "Name", "Game Type",
		"Buy-in", "Prize Pool", "Entrants", "Start Time", "Placeholder", "Created At",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, rec := range records {
		row := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rec.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rec.VenueKey)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rec.SeriesKey)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rec.EventNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rec.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), rec.GameType)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), float64(rec.BuyInCents)/100)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), float64(rec.PrizePoolCents)/100)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), rec.Entrants)
		if !rec.StartTime.IsZero() {
			f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), rec.StartTime.Format(time.RFC3339))
		}
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), rec.Placeholder)
		f.SetCellValue(sheetName, fmt.Sprintf("L%d", row), rec.CreatedAt.Format(time.RFC3339))
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")
	return f, nil
}
