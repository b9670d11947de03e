package models

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionFailed       = errors.New("extraction failed")
	ErrScriptGenerationFailed = errors.New("script generation failed")
	ErrSynthesisFailed        = errors.New("audio synthesis failed")
)

// ValidationError is a user-correctable problem with an upload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamServiceError wraps a failed call to the OCR, language model or
// speech provider. Kind is one of the Err* sentinels above.
type UpstreamServiceError struct {
	Kind error
	Err  error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *UpstreamServiceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// StorageError is a failed row-store call. Status and Body are set when the
// store answered with an HTTP error.
type StorageError struct {
	Message string
	Status  int
	Body    string
	Err     error
}

func (e *StorageError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
		if e.Body != "" {
			msg += " - " + e.Body
		}
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PipelineFailure records which stage of an upload run failed.
type PipelineFailure struct {
	Stage string
	Err   error
}

func (e *PipelineFailure) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineFailure) Unwrap() error {
	return e.Err
}
