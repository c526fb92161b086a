// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"phi-guard/internal/config"
	"phi-guard/internal/detector"
	"phi-guard/internal/ensemble"
	"phi-guard/internal/observability"
	"phi-guard/internal/orchestrator"
	"phi-guard/internal/postfilter"
	"phi-guard/internal/span"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed reports the first occurrence of each needle with the given type and
// confidence.
func fixed(name string, typ span.Type, confidence float64, needles ...string) detector.Detector {
	return detector.NewFunc(name, func(ctx context.Context, text string) ([]span.Span, error) {
		var out []span.Span
		for _, n := range needles {
			i := strings.Index(text, n)
			if i < 0 {
				continue
			}
			s, err := span.New(text, i, i+len(n), typ, confidence)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	})
}

func TestProcessPassthroughAndSkip(t *testing.T) {
	text := "Call me at noon. Code ABC123."
	p, err := New(Env{}, WithDetectors(
		fixed("mrn", span.TypeMRN, 0.99, "ABC123"),
		fixed("weak", span.TypeDate, 0.05, "noon"),
	))
	require.NoError(t, err)

	res, err := p.Process(context.Background(), "doc-1", text)
	require.NoError(t, err)

	require.Len(t, res.Decisions, 2)
	assert.Equal(t, "noon", res.Decisions[0].Span.Text)
	assert.Equal(t, ensemble.Skip, res.Decisions[0].Recommendation)
	require.NotNil(t, res.Decisions[0].Vote)

	assert.True(t, res.Decisions[1].Passthrough)
	assert.Nil(t, res.Decisions[1].Vote)
	assert.Equal(t, ensemble.Redact, res.Decisions[1].Recommendation)

	assert.Equal(t, "Call me at noon. Code [MRN].", res.Redaction.Text)
	assert.Len(t, res.Redacted(), 1)
	assert.Empty(t, res.Uncertain())
	assert.Equal(t, "doc-1", res.Report.DocumentID)
}

func TestProcessResolvesOverlaps(t *testing.T) {
	text := "Patient John Smith arrived."
	p, err := New(Env{}, WithDetectors(
		fixed("full", span.TypeName, 0.99, "John Smith"),
		fixed("last", span.TypeName, 0.97, "Smith"),
	))
	require.NoError(t, err)

	res, err := p.Process(context.Background(), "", text)
	require.NoError(t, err)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "John Smith", res.Decisions[0].Span.Text)
	assert.Equal(t, "Patient [NAME] arrived.", res.Redaction.Text)
}

func TestProcessDisambiguatesIdenticalRanges(t *testing.T) {
	text := "DOB: 03/14/1962"
	p, err := New(Env{}, WithDetectors(
		fixed("phone", span.TypePhone, 0.99, "03/14/1962"),
		fixed("date", span.TypeDate, 0.96, "03/14/1962"),
	))
	require.NoError(t, err)

	res, err := p.Process(context.Background(), "", text)
	require.NoError(t, err)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, span.TypeDate, res.Decisions[0].Span.Type)
	assert.NotNil(t, res.Decisions[0].Span.Meta(ensemble.MetaDisambiguation))
	assert.Equal(t, "DOB: [DATE]", res.Redaction.Text)
}

func TestProcessFiltersFalsePositives(t *testing.T) {
	text := "IMPRESSION\nJohn Smith seen for follow up."
	dets := WithDetectors(fixed("names", span.TypeName, 0.97, "IMPRESSION", "John Smith"))

	p, err := New(Env{}, dets)
	require.NoError(t, err)
	res, err := p.Process(context.Background(), "", text)
	require.NoError(t, err)

	require.Len(t, res.Decisions, 2)
	heading := res.Decisions[0]
	assert.Equal(t, postfilter.ReasonSectionHeading, heading.Filtered)
	assert.Equal(t, ensemble.Skip, heading.Recommendation)
	assert.Nil(t, heading.Vote)
	assert.Equal(t, string(postfilter.ReasonSectionHeading), heading.Span.Meta(postfilter.MetaReason))
	assert.Empty(t, res.Decisions[1].Filtered)
	assert.Equal(t, "IMPRESSION\n[NAME] seen for follow up.", res.Redaction.Text)

	cfg := config.Default()
	cfg.Ensemble.Postfilter = false
	p, err = New(Env{Config: cfg}, dets)
	require.NoError(t, err)
	res, err = p.Process(context.Background(), "", text)
	require.NoError(t, err)
	assert.Equal(t, "[NAME]\n[NAME] seen for follow up.", res.Redaction.Text)
}

func TestProcessTracesStepsInDebug(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Env{Observer: observability.NewDebugObserver(&buf)},
		WithDetectors(fixed("mrn", span.TypeMRN, 0.99, "ABC123")))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), "doc-7", "Code ABC123")
	require.NoError(t, err)

	out := buf.String()
	for _, stage := range []string{"detect", "disambiguate", "resolve", "postfilter", "vote", "redact"} {
		assert.Contains(t, out, "pipeline: "+stage+" (doc-7)")
		assert.Contains(t, out, "pipeline: "+stage+" completed")
	}
	assert.Contains(t, out, "pipeline: REDACT = 1")
	assert.Contains(t, out, "pipeline: replacements = 1")
}

func TestProcessBuiltinDetectors(t *testing.T) {
	text := "Patient Name: John Smith\nSSN: 219-09-9999\nEmail: john.smith@hospital.org\n"
	p, err := New(Env{})
	require.NoError(t, err)
	assert.Contains(t, p.Detectors().Names(), "names")

	res, err := p.Process(context.Background(), "note", text)
	require.NoError(t, err)
	assert.NotContains(t, res.Redaction.Text, "219-09-9999")
	assert.NotContains(t, res.Redaction.Text, "john.smith@hospital.org")
	assert.Zero(t, res.Report.Failed)
}

func TestProcessCancelled(t *testing.T) {
	p, err := New(Env{}, WithDetectors(fixed("mrn", span.TypeMRN, 0.99, "x")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Process(ctx, "", "x")
	assert.True(t, errors.Is(err, orchestrator.ErrCancelled))
}

func TestNewRejectsUnknownDetector(t *testing.T) {
	cfg := config.Default()
	cfg.Detectors.Enabled = []string{"ssn", "telepathy"}
	_, err := New(Env{Config: cfg})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestProcessRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(Env{Metrics: reg}, WithDetectors(fixed("mrn", span.TypeMRN, 0.99, "ABC123")))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), "", "Code ABC123")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["phi_guard_decisions_total"])
	assert.True(t, names["phi_guard_documents_total"])
	assert.True(t, names["phi_guard_orchestrator_runs_total"])
}
