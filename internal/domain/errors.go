package domain

import (
	"errors"
	"fmt"
)

const (
	MessagePDFOnly          = "Please upload only PDF files."
	MessageSelectFile       = "Please select a PDF file first."
	MessageConnectionFailed = "Connection failed. Please ensure the extraction service is running and reachable."
	MessageProcessingFailed = "Processing failed"
)

type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureTransport  FailureKind = "transport"
	FailureService    FailureKind = "service"
)

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError means no usable response came back from the extraction service.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("extraction service unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError means the service answered but reported a failure.
type ServiceError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction service failed (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("extraction service failed (status %d): %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// FailureFromError maps an error onto the single message the error surface shows.
// Anything that is not a validation or service error is reported as a connection failure.
func FailureFromError(err error) Failure {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Failure{Kind: FailureValidation, Message: validationErr.Message}
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		msg := serviceErr.Message
		if msg == "" {
			msg = MessageProcessingFailed
		}
		return Failure{Kind: FailureService, Message: msg}
	}
	return Failure{Kind: FailureTransport, Message: MessageConnectionFailed}
}
