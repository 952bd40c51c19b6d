package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"foodgram/internal/db"
	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/models"
)

// Input formats understood by ReadRows.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Row is one ingredient record of an import file.
type Row struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// Summary counts what an import did with its rows.
type Summary struct {
	Total    int
	Created  int
	Existing int
	Skipped  int
}

func (s Summary) String() string {
	return fmt.Sprintf("processed %d rows: %d created, %d already present, %d skipped", s.Total, s.Created, s.Existing, s.Skipped)
}

// FormatFromPath guesses the input format from a file extension, defaulting
// to JSON.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// ReadRows decodes import rows. JSON input is an array of objects; CSV input
// needs a header naming the name and measurement_unit columns.
func ReadRows(r io.Reader, format string) ([]Row, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		var rows []Row
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode json rows: %w", err)
		}
		return rows, nil
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}

	nameIdx, unitIdx := -1, -1
	for idx, column := range records[0] {
		switch strings.ToLower(strings.TrimSpace(column)) {
		case "name":
			nameIdx = idx
		case "measurement_unit":
			unitIdx = idx
		}
	}
	if nameIdx < 0 || unitIdx < 0 {
		return nil, errors.New("csv header must contain name and measurement_unit")
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		var row Row
		if nameIdx < len(record) {
			row.Name = record[nameIdx]
		}
		if unitIdx < len(record) {
			row.MeasurementUnit = record[unitIdx]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Importer bulk-loads ingredients. Every row is applied in its own
// transaction so a bad row never undoes the rows before it.
type Importer struct {
	tx db.TxRunner
}

func NewImporter(runner db.TxRunner) *Importer {
	return &Importer{tx: runner}
}

// Import applies rows in order. Rows with missing fields and rows that break
// a uniqueness rule are logged and skipped; any other storage failure stops
// the batch and is returned along with the counts so far.
func (i *Importer) Import(ctx context.Context, rows []Row) (Summary, error) {
	summary := Summary{Total: len(rows)}

	for idx, row := range rows {
		name := strings.TrimSpace(row.Name)
		unitName := strings.TrimSpace(row.MeasurementUnit)
		if name == "" || unitName == "" {
			summary.Skipped++
			applog.Warn(ctx, "skipping incomplete row", "row", idx+1, "name", name, "unit", unitName)
			continue
		}

		created := false
		err := i.tx.InTx(ctx, func(tx *gorm.DB) error {
			unit, err := unitByName(tx, unitName)
			if err != nil {
				return err
			}

			var existing models.Ingredient
			err = tx.Where("name = ? AND measurement_unit_id = ?", name, unit.ID).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find ingredient %q: %w", name, err)
			}

			ingredient := models.Ingredient{Named: models.Named{Name: name}, MeasurementUnitID: &unit.ID}
			if err := tx.Create(&ingredient).Error; err != nil {
				return fmt.Errorf("create ingredient %q: %w", name, err)
			}
			created = true
			return nil
		})

		switch {
		case err == nil && created:
			summary.Created++
		case err == nil:
			summary.Existing++
		case errs.IsDuplicateKey(err):
			summary.Skipped++
			applog.Warn(ctx, "skipping conflicting row", "row", idx+1, "name", name, "unit", unitName, "error", err)
		default:
			return summary, fmt.Errorf("row %d (%s): %w", idx+1, name, err)
		}
	}

	applog.Info(ctx, "ingredient import finished", "total", summary.Total, "created", summary.Created, "existing", summary.Existing, "skipped", summary.Skipped)
	return summary, nil
}
