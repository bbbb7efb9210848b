package session

import "invoice-extractor/internal/domain"

// Snapshot is a point-in-time copy of the session for rendering.
type Snapshot struct {
	File       *domain.FileSummary      `json:"file,omitempty"`
	Status     domain.ProcessingStatus  `json:"status"`
	Result     *domain.ExtractionResult `json:"result,omitempty"`
	Failure    *domain.Failure          `json:"failure,omitempty"`
	DragActive bool                     `json:"drag_active"`
}

func (s Snapshot) Phase() domain.Phase {
	switch {
	case s.Status == domain.StatusProcessing:
		return domain.PhaseProcessing
	case s.Result != nil:
		return domain.PhaseSucceeded
	case s.Failure != nil && s.Failure.Kind != domain.FailureValidation:
		return domain.PhaseFailed
	case s.File != nil:
		return domain.PhaseFileSelected
	default:
		return domain.PhaseIdle
	}
}

func (s Snapshot) ErrorMessage() string {
	if s.Failure == nil {
		return ""
	}
	return s.Failure.Message
}

func (s Snapshot) CanSubmit() bool {
	return s.File != nil && s.Status != domain.StatusProcessing
}

func (s Snapshot) CanReset() bool {
	return (s.File != nil || s.Result != nil) && s.Status != domain.StatusProcessing
}
