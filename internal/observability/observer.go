// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StandardObserver implements observability for all components
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer
	mu     sync.Mutex
}

// ObservabilityLevel controls whether timing records are written.
type ObservabilityLevel int

const (
	ObservabilityOff   ObservabilityLevel = 0
	ObservabilityDebug ObservabilityLevel = 1
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, documentID string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			DocumentID: documentID,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if n, ok := metadata["span_count"].(int); ok {
			data.SpanCount = n
		}
		if msg, ok := metadata["error"].(string); ok {
			data.Error = msg
		}

		o.LogOperation(data)
	}
}

// LogOperation logs operation data. Records are written as JSON lines in debug
// mode only; document text never appears in them.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.level != ObservabilityDebug || o.writer == nil {
		return
	}

	data.RequestID = uuid.NewString()

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	DocumentID string                 `json:"document_id,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	SpanCount  int                    `json:"span_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
