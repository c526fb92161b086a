// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package benchmark scores the pipeline against annotated documents.
package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"phi-guard/internal/evaluation"

	"gopkg.in/yaml.v3"
)

// ErrCorpus is returned for unreadable or inconsistent corpus files.
var ErrCorpus = errors.New("invalid corpus")

// Document is one annotated note.
type Document struct {
	ID          string              `json:"id" yaml:"id"`
	Text        string              `json:"text" yaml:"text"`
	Annotations []evaluation.Entity `json:"annotations" yaml:"annotations"`
}

// Corpus is a set of annotated documents.
type Corpus struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Documents []Document `json:"documents" yaml:"documents"`
}

// LoadCorpus reads a corpus file. The format follows the extension: .json, or
// .yaml/.yml.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
	}
	c, err := ParseCorpus(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}

// ParseCorpus decodes and validates corpus data in the given format (a file
// extension, with or without the leading dot).
func ParseCorpus(data []byte, format string) (*Corpus, error) {
	var c Corpus
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrCorpus, format)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that document ids are unique and that every annotation lies
// inside its document. When an annotation carries text it must equal the
// annotated range. Documents without an id are numbered.
func (c *Corpus) Validate() error {
	if len(c.Documents) == 0 {
		return fmt.Errorf("%w: no documents", ErrCorpus)
	}
	seen := make(map[string]bool, len(c.Documents))
	for i := range c.Documents {
		doc := &c.Documents[i]
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("doc-%d", i+1)
		}
		if seen[doc.ID] {
			return fmt.Errorf("%w: duplicate document id %q", ErrCorpus, doc.ID)
		}
		seen[doc.ID] = true

		for j, a := range doc.Annotations {
			if a.Start < 0 || a.End <= a.Start || a.End > len(doc.Text) {
				return fmt.Errorf("%w: %s annotation %d has range [%d,%d) outside document of length %d",
					ErrCorpus, doc.ID, j, a.Start, a.End, len(doc.Text))
			}
			if a.Text != "" && doc.Text[a.Start:a.End] != a.Text {
				return fmt.Errorf("%w: %s annotation %d text %q does not match document %q",
					ErrCorpus, doc.ID, j, a.Text, doc.Text[a.Start:a.End])
			}
			if a.Type == "" {
				return fmt.Errorf("%w: %s annotation %d has no type", ErrCorpus, doc.ID, j)
			}
		}
	}
	return nil
}

// Annotated returns the number of annotations across all documents.
func (c *Corpus) Annotated() int {
	n := 0
	for _, d := range c.Documents {
		n += len(d.Annotations)
	}
	return n
}
