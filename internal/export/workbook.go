package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"invoice-extractor/internal/domain"
)

const (
	SheetHeader     = "Header"
	SheetItems      = "Items"
	SheetAdditional = "Additional"
	SheetTiming     = "Timing"
)

// Workbook lays the structured result out as one sheet per section, rows in wire order.
func Workbook(result domain.ExtractionResult, now time.Time) (Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetHeader); err != nil {
		return Artifact{}, err
	}
	for _, name := range []string{SheetItems, SheetAdditional, SheetTiming} {
		if _, err := f.NewSheet(name); err != nil {
			return Artifact{}, err
		}
	}

	if err := writeFields(f, SheetHeader, result.HeaderFields); err != nil {
		return Artifact{}, err
	}
	if err := writeItems(f, result.Items); err != nil {
		return Artifact{}, err
	}
	if err := writeFields(f, SheetAdditional, result.AdditionalFields); err != nil {
		return Artifact{}, err
	}
	if err := writeTiming(f, result.Timing); err != nil {
		return Artifact{}, err
	}

	headerIndex, err := f.GetSheetIndex(SheetHeader)
	if err != nil {
		return Artifact{}, err
	}
	f.SetActiveSheet(headerIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, fmt.Errorf("write workbook: %w", err)
	}
	return Artifact{
		Filename:    Filename(now, FormatXLSX),
		ContentType: ContentTypeXLSX,
		Content:     buf.Bytes(),
	}, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeFields(f *excelize.File, sheet string, fields domain.Fields) error {
	if err := writeRow(f, sheet, 1, "Field", "Value"); err != nil {
		return err
	}
	for i, e := range fields.Entries() {
		if err := writeRow(f, sheet, i+2, e.Name, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeItems(f *excelize.File, items []domain.LineItem) error {
	if err := writeRow(f, SheetItems, 1, "Item", "Field", "Value"); err != nil {
		return err
	}
	row := 2
	for _, item := range items {
		entries := item.Fields.Entries()
		if len(entries) == 0 {
			if err := writeRow(f, SheetItems, row, item.Title); err != nil {
				return err
			}
			row++
			continue
		}
		for _, e := range entries {
			if err := writeRow(f, SheetItems, row, item.Title, e.Name, e.Value); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeTiming(f *excelize.File, t *domain.Timing) error {
	if err := writeRow(f, SheetTiming, 1, "Stage", "Seconds"); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	rows := []struct {
		stage   string
		seconds float64
	}{
		{"OCR Time", t.OCRSeconds},
		{"AI Structure", t.StructureSeconds},
		{"Total Time", t.TotalSeconds},
	}
	for i, r := range rows {
		if err := writeRow(f, SheetTiming, i+2, r.stage, r.seconds); err != nil {
			return err
		}
	}
	return nil
}
