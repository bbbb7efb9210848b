package domain

type ProcessingStatus string

const (
	StatusIdle       ProcessingStatus = "IDLE"
	StatusProcessing ProcessingStatus = "PROCESSING"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "file_selected"
	PhaseProcessing   Phase = "processing"
	PhaseSucceeded    Phase = "succeeded"
	PhaseFailed       Phase = "failed"
)

type CandidateSource string

const (
	SourceDrop   CandidateSource = "drop"
	SourcePicker CandidateSource = "picker"
)

type DragEvent string

const (
	DragEnter DragEvent = "enter"
	DragOver  DragEvent = "over"
	DragLeave DragEvent = "leave"
	DragDrop  DragEvent = "drop"
)

func ParseDragEvent(v string) (DragEvent, bool) {
	switch e := DragEvent(v); e {
	case DragEnter, DragOver, DragLeave, DragDrop:
		return e, true
	default:
		return "", false
	}
}
