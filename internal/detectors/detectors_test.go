// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"context"
	"testing"

	"phi-guard/internal/chaos"
	"phi-guard/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detect(t *testing.T, p interface {
	Detect(context.Context, string) ([]span.Span, error)
}, text string) []span.Span {
	t.Helper()
	spans, err := p.Detect(context.Background(), text)
	require.NoError(t, err)
	for _, s := range spans {
		require.NoError(t, s.ValidateAgainst(text))
	}
	return spans
}

func texts(spans []span.Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

func TestSSN(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		found []string
	}{
		{"dashed", "SSN: 123-45-6789", []string{"123-45-6789"}},
		{"spaced", "social security 219 09 9999", []string{"219 09 9999"}},
		{"area 000", "SSN 000-12-3456", nil},
		{"area 666", "SSN 666-12-3456", nil},
		{"area 9xx", "SSN 912-12-3456", nil},
		{"group 00", "SSN 123-00-4567", nil},
		{"serial 0000", "SSN 123-45-0000", nil},
		{"inside longer number", "ref 1234-56-78901", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := detect(t, NewSSN(), tt.text)
			if tt.found == nil {
				assert.Empty(t, spans)
				return
			}
			assert.Equal(t, tt.found, texts(spans))
			assert.Equal(t, span.TypeSSN, spans[0].Type)
			assert.Equal(t, "ssn", spans[0].Detector)
		})
	}
}

func TestSSNContextAdjustsConfidence(t *testing.T) {
	labeled := detect(t, NewSSN(), "Patient SSN: 219-09-9999")
	sample := detect(t, NewSSN(), "sample value 219-09-9999")
	require.Len(t, labeled, 1)
	require.Len(t, sample, 1)
	assert.Greater(t, labeled[0].Confidence, sample[0].Confidence)
}

func TestPhoneAndFax(t *testing.T) {
	text := "Call (617) 253-1000 or fax 617-253-2000 today."

	phones := detect(t, NewPhone(), text)
	faxes := detect(t, NewFax(), text)

	require.Len(t, phones, 2)
	require.Len(t, faxes, 1)
	assert.Equal(t, "617-253-2000", faxes[0].Text)
	assert.Equal(t, span.TypeFax, faxes[0].Type)

	var faxAsPhone span.Span
	for _, s := range phones {
		if s.Text == "617-253-2000" {
			faxAsPhone = s
		}
	}
	assert.Less(t, faxAsPhone.Confidence, faxes[0].Confidence, "fax label lowers the phone reading")

	assert.Empty(t, detect(t, NewPhone(), "code 123-456-7890"), "area code cannot start with 1")
}

func TestEmailURLAndIP(t *testing.T) {
	text := "Email jane.doe@hospital.org, portal https://portal.example.net/p/42 from 192.168.10.4"

	assert.Equal(t, []string{"jane.doe@hospital.org"}, texts(detect(t, NewEmail(), text)))
	assert.Equal(t, []string{"https://portal.example.net/p/42"}, texts(detect(t, NewURL(), text)))
	assert.Equal(t, []string{"192.168.10.4"}, texts(detect(t, NewIP(), text)))

	assert.Empty(t, detect(t, NewIP(), "value 999.1.1.1"))
}

func TestDates(t *testing.T) {
	text := "DOB 03/14/1962, admitted 2023-11-02, discharged November 5, 2023. Bad 13/45/2020."
	got := texts(detect(t, NewDate(), text))
	assert.Equal(t, []string{"03/14/1962", "2023-11-02", "November 5, 2023"}, got)

	assert.True(t, validDate("25/12/2020"), "day-first order")
	assert.False(t, validDate("00/12/2020"))
}

func TestAge(t *testing.T) {
	spans := detect(t, NewAge(), "A 92 year old woman; her son, age: 45.")
	require.Len(t, spans, 2)
	assert.Equal(t, "92", spans[0].Text)
	assert.Equal(t, "45", spans[1].Text)
	assert.Greater(t, spans[0].Confidence, spans[1].Confidence, "ages over 89 identify on their own")
}

func TestLabeledIdentifiers(t *testing.T) {
	text := "MRN: A1234567\nMember ID: XKJ99812345\nAccount #: 4400-1234-99"

	mrn := detect(t, NewMRN(), text)
	require.Len(t, mrn, 1)
	assert.Equal(t, "A1234567", mrn[0].Text)

	plan := detect(t, NewHealthPlan(), text)
	require.Len(t, plan, 1)
	assert.Equal(t, "XKJ99812345", plan[0].Text)

	acct := detect(t, NewAccount(), text)
	require.Len(t, acct, 1)
	assert.Equal(t, "4400-1234-99", acct[0].Text)
}

func TestCreditCardLuhn(t *testing.T) {
	assert.True(t, luhn("4111111111111111"))
	assert.False(t, luhn("4111111111111112"))

	spans := detect(t, NewCreditCard(), "card 4111 1111 1111 1111 and 4111 1111 1111 1112")
	assert.Equal(t, []string{"4111 1111 1111 1111"}, texts(spans))
}

func TestZipCodeNeedsAddressContext(t *testing.T) {
	assert.Equal(t, []string{"02139"}, texts(detect(t, NewZipCode(), "Address: 77 Mass Ave, Cambridge, MA 02139")))
	assert.Empty(t, detect(t, NewZipCode(), "Lab result 12345 within range"))
}

func TestNames(t *testing.T) {
	d, err := NewNames(chaos.NewAnalyzer(16))
	require.NoError(t, err)

	text := "Patient Name: John Smith\nSeen by Dr. Garcia.\nMary called back."
	spans := detect(t, d, text)
	require.Len(t, spans, 3)

	assert.Equal(t, "John Smith", spans[0].Text)
	assert.Equal(t, span.TypeName, spans[0].Type)
	assert.Equal(t, "Patient Name:", spans[0].Meta(span.MetaLabel))
	assert.InDelta(t, 0.9, spans[0].Meta(span.MetaDictionary), 1e-9)

	assert.Equal(t, "Garcia", spans[1].Text)
	assert.Equal(t, span.TypeProviderName, spans[1].Type)

	assert.Equal(t, "Mary", spans[2].Text)
	assert.Less(t, spans[2].Confidence, spans[0].Confidence)
}

func TestNamesSkipsLowercaseVocabulary(t *testing.T) {
	d, err := NewNames(nil)
	require.NoError(t, err)
	assert.Empty(t, detect(t, d, "we will mark the chart"))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSSN().Detect(ctx, "SSN 123-45-6789")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaults(t *testing.T) {
	r, err := Defaults(nil)
	require.NoError(t, err)
	assert.Equal(t, 14, r.Len())
	_, ok := r.Get("names")
	assert.True(t, ok)
}
