// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// maxPDFPages limits extraction on very large PDFs
const maxPDFPages = 200

const pageBreak = "\n--- PAGE BREAK ---\n"

func loadPDF(ctx context.Context, path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	pages := min(r.NumPage(), maxPDFPages)
	texts := make([]string, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := r.Page(i + 1)
			if p.V.IsNull() {
				return nil
			}
			// unreadable pages are skipped rather than failing the document
			if text, err := pageText(p); err == nil {
				texts[i] = text
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, text := range texts {
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(pageBreak)
		}
		buf.WriteString(text)
	}

	if form := formData(r); form != "" {
		buf.WriteString("\n--- PDF Form Data ---\n")
		buf.WriteString(form)
	}

	return &Document{
		Path:   path,
		Format: "pdf",
		Text:   cleanText(buf.String()),
		Pages:  pages,
	}, nil
}

// formData returns AcroForm field names and values, one per line. Form
// fields on intake documents often hold the PHI itself.
func formData(r *pdf.Reader) string {
	root := r.Trailer().Key("Root")
	if root.IsNull() {
		return ""
	}
	fields := root.Key("AcroForm").Key("Fields")
	if fields.Kind() != pdf.Array {
		return ""
	}

	var buf strings.Builder
	for i := 0; i < fields.Len(); i++ {
		name, value := fieldNameValue(fields.Index(i))
		if name != "" && value != "" {
			fmt.Fprintf(&buf, "%s: %s\n", name, value)
		}
	}
	return buf.String()
}

func fieldNameValue(field pdf.Value) (string, string) {
	if field.Kind() != pdf.Dict {
		return "", ""
	}
	var name string
	if t := field.Key("T"); t.Kind() == pdf.String {
		name = t.Text()
	}
	for _, key := range []string{"V", "DV"} {
		v := field.Key(key)
		switch v.Kind() {
		case pdf.String:
			return name, v.Text()
		case pdf.Name:
			return name, v.Name()
		}
	}
	return name, ""
}

// pageText rebuilds the page line by line from positioned text runs.
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	// PDF y grows upwards
	sort.Slice(sorted, func(i, j int) bool {
		return averageY(sorted[i].Content) > averageY(sorted[j].Content)
	})

	var buf bytes.Buffer
	for _, row := range sorted {
		if line := rowText(row.Content); strings.TrimSpace(line) != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

func averageY(texts []pdf.Text) float64 {
	if len(texts) == 0 {
		return 0
	}
	var total float64
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowText joins the runs of one row left to right, inserting a space where the
// gap to the next run exceeds a fifth of the font size.
func rowText(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf bytes.Buffer
	for i, t := range sorted {
		buf.WriteString(t.S)
		if i == len(sorted)-1 {
			break
		}
		fontSize := t.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		if gap := sorted[i+1].X - (t.X + t.W); gap > fontSize*0.2 {
			buf.WriteString(" ")
		}
	}
	return buf.String()
}

// cleanText trims lines, drops blank ones and collapses runs of spaces while
// keeping line structure, since labels and values share a line.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, "\t", " ")), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
