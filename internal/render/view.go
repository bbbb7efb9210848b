// Package render turns an extraction result into the sections the user sees,
// as terminal tables, Markdown or HTML.
package render

import (
	"strconv"

	"invoice-extractor/internal/domain"
)

const (
	TitleTiming     = "Processing Time"
	TitleHeader     = "Invoice Header"
	TitleItems      = "Line Items"
	TitleAdditional = "Additional Information"
)

type Row struct {
	Label string
	Value string
}

type Item struct {
	Title  string
	Fields []Row
}

// View holds only the sections that have something to show; empty sections are nil.
type View struct {
	Timing     []Row
	Header     []Row
	Items      []Item
	Additional []Row
}

func Build(result domain.ExtractionResult) View {
	var v View
	if t := result.Timing; t != nil {
		v.Timing = []Row{
			{Label: "OCR Time", Value: Seconds(t.OCRSeconds)},
			{Label: "AI Structure", Value: Seconds(t.StructureSeconds)},
			{Label: "Total Time", Value: Seconds(t.TotalSeconds)},
		}
	}
	v.Header = rows(result.HeaderFields)
	for _, item := range result.Items {
		v.Items = append(v.Items, Item{Title: item.Title, Fields: rows(item.Fields)})
	}
	v.Additional = rows(result.AdditionalFields)
	return v
}

func (v View) Empty() bool {
	return v.Timing == nil && v.Header == nil && v.Items == nil && v.Additional == nil
}

// Seconds prints a service-reported duration as given, e.g. 1.2 -> "1.2s".
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

func rows(fields domain.Fields) []Row {
	entries := fields.Entries()
	if len(entries) == 0 {
		return nil
	}
	out := make([]Row, 0, len(entries))
	for _, e := range entries {
		out = append(out, Row{Label: e.Name, Value: e.Value})
	}
	return out
}
