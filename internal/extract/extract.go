// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract loads document text for scanning.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxFileSize bounds the input read from any single file.
const MaxFileSize = 32 << 20

var (
	// ErrUnsupported is returned for file types with no text extractor.
	ErrUnsupported = errors.New("unsupported file type")

	// ErrTooLarge is returned when a file exceeds MaxFileSize.
	ErrTooLarge = errors.New("file too large")
)

// Document is extracted text and where it came from.
type Document struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format"`
	Text   string `json:"-" yaml:"-"`
	Pages  int    `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Load extracts the text of the file at path. PDFs go through the PDF text
// layer; everything else with a text extension is read as UTF-8, with invalid
// byte sequences replaced.
func Load(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w: directory", path, ErrUnsupported)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s: %w: %d bytes", path, ErrTooLarge, info.Size())
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return loadPDF(ctx, path)
	case "", ".txt", ".text", ".md", ".csv", ".log", ".hl7", ".json", ".xml", ".yaml", ".yml":
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		doc, err := Read(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc.Path = path
		return doc, nil
	default:
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnsupported, ext)
	}
}

// Read loads plain text from r, for stdin and other streams.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrTooLarge
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return &Document{Format: "text", Text: text}, nil
}
