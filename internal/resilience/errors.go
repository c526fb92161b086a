// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"phi-guard/internal/span"
)

// ErrorType represents different classes of detector failure
type ErrorType int

const (
	ErrorTypeUnknown       ErrorType = iota
	ErrorTypeTransient                // Temporary failure, safe to retry
	ErrorTypePermanent                // Detector cannot succeed on this input
	ErrorTypeTimeout                  // Detector exceeded its time budget
	ErrorTypePanic                    // Detector panicked and was recovered
	ErrorTypeInvalidOutput            // Detector returned malformed spans
	ErrorTypeCancelled                // Caller abandoned the document
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// temporary is implemented by errors that know they are transient.
type temporary interface {
	Temporary() bool
}

// ClassifyError categorizes a detector error for reporting and retry decisions
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Message: fmt.Sprintf("timeout: %v", err)}
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeCancelled, Message: fmt.Sprintf("cancelled: %v", err)}
	case errors.Is(err, span.ErrMalformedSpan):
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidOutput, Message: fmt.Sprintf("invalid output: %v", err)}
	}

	var tmp temporary
	if errors.As(err, &tmp) && tmp.Temporary() {
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Message: err.Error(), Retryable: true}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "temporarily") || strings.Contains(errStr, "unavailable") ||
		strings.Contains(errStr, "try again") {
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Message: err.Error(), Retryable: true}
	}

	return &ClassifiedError{Original: err, Type: ErrorTypeUnknown, Message: err.Error()}
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// NewPanicError records a recovered panic value
func NewPanicError(recovered any) *ClassifiedError {
	return &ClassifiedError{
		Type:    ErrorTypePanic,
		Message: fmt.Sprintf("detector panic: %v", recovered),
	}
}

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypePanic:
		return "Panic"
	case ErrorTypeInvalidOutput:
		return "InvalidOutput"
	case ErrorTypeCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}
