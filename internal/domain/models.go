package domain

import "fmt"

const MediaTypePDF = "application/pdf"

type SelectedFile struct {
	Name      string
	MediaType string
	Size      int64
	Content   []byte
}

func (f SelectedFile) IsPDF() bool {
	return f.MediaType == MediaTypePDF
}

// SizeLabel formats the size the way the drop zone shows it, e.g. "0.25 MB".
func (f SelectedFile) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(f.Size)/1024/1024)
}

type LineItem struct {
	Title  string `json:"title"`
	Fields Fields `json:"fields"`
}

type Timing struct {
	OCRSeconds       float64 `json:"ocr_time"`
	StructureSeconds float64 `json:"structure_time"`
	TotalSeconds     float64 `json:"total_time"`
}

type ExtractionResult struct {
	HeaderFields     Fields     `json:"header_fields"`
	Items            []LineItem `json:"items"`
	AdditionalFields Fields     `json:"additional_fields"`
	RawText          string     `json:"raw_text"`
	Timing           *Timing    `json:"processing_time,omitempty"`
}

type FileSummary struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
}

func (f SelectedFile) Summary() FileSummary {
	return FileSummary{
		Name:      f.Name,
		MediaType: f.MediaType,
		Size:      f.Size,
		SizeLabel: f.SizeLabel(),
	}
}
