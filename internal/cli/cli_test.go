// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// run executes the command tree with a quiet config file.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "phi-guard.yaml", "logging:\n  level: error\n")

	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfg}, args...))

	err := root.Execute()
	return out.String(), err
}

const note = "Patient Name: John Smith\nSSN: 219-09-9999\nEmail: john.smith@hospital.org\n"

func TestScanText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "note.txt", note)

	out, err := run(t, "", "scan", path, "--no-color")
	require.NoError(t, err)
	assert.NotContains(t, out, "219-09-9999")
	assert.NotContains(t, out, "john.smith@hospital.org")
	assert.Contains(t, out, "Patient Name:")
}

func TestScanStdinJSON(t *testing.T) {
	out, err := run(t, note, "scan", "-", "--format", "json", "--style", "asterisks")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "stdin", view["document_id"])
	assert.NotContains(t, out, "219-09-9999", "span text stays hidden without --show-match")
}

func TestScanWritesOutputAndMetrics(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.txt", note)
	outFile := filepath.Join(dir, "redacted.txt")
	metricsFile := filepath.Join(dir, "metrics.prom")

	out, err := run(t, "", "scan", path, "-o", outFile, "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	redacted, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.NotContains(t, string(redacted), "219-09-9999")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "phi_guard_documents_total")
}

func TestScanErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.txt", note)

	_, err := run(t, "", "scan", path, "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format 'xml'")

	_, err = run(t, "", "scan", path, "--style", "confetti")
	assert.Error(t, err)

	_, err = run(t, "", "scan", path, "--detectors", "ssn,nope")
	assert.ErrorContains(t, err, "nope")

	_, err = run(t, "", "scan", path, "--profile", "missing")
	assert.ErrorContains(t, err, "missing")

	_, err = run(t, "", "scan")
	assert.Error(t, err)
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.yaml", `name: tiny
documents:
  - id: note-1
    text: "SSN: 219-09-9999"
    annotations:
      - {start: 5, end: 16, type: SSN, text: 219-09-9999}
`)

	out, err := run(t, "", "bench", corpus, "--format", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "tiny", report["corpus"])
	assert.Contains(t, report, "hipaa")
}

func TestBenchFailOnRisk(t *testing.T) {
	dir := t.TempDir()
	// nothing in the text looks like an account number, so the annotation is missed
	corpus := writeFile(t, dir, "corpus.json", `{"documents": [{"id": "a", "text": "seen for follow up zzqx",
  "annotations": [{"start": 19, "end": 23, "type": "ACCOUNT", "text": "zzqx"}]}]}`)

	_, err := run(t, "", "bench", corpus, "--format", "yaml")
	require.NoError(t, err)

	_, err = run(t, "", "bench", corpus, "--fail-on-risk")
	assert.ErrorIs(t, err, ErrNotCompliant)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "phi-guard "))

	out, err = run(t, "", "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}

func TestExplicitConfigMustLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.txt", note)
	bad := writeFile(t, dir, "bad.yaml", "logging: [unclosed\n")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", bad, "scan", path})
	assert.Error(t, root.Execute())
}
