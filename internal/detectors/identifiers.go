// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"net/netip"
	"strconv"
	"strings"

	"phi-guard/internal/span"
)

// NewSSN detects Social Security Numbers: XXX-XX-XXXX, XXX XX XXXX or nine
// bare digits.
func NewSSN() *Pattern {
	p := newPattern("ssn", span.TypeSSN, `\b(?:\d{3}-\d{2}-\d{4}|\d{3} \d{2} \d{4}|\d{9})\b`, 0.75)
	p.validate = validSSN
	p.score = func(value string, base float64) float64 {
		d := digitsOnly(value)
		if d == "123456789" || d == "987654321" || allSameDigit(d) {
			return base - 0.4
		}
		if len(value) == 9 {
			// bare digit runs are often other identifiers
			return base - 0.2
		}
		return base
	}
	p.positiveKeywords = []string{"ssn", "social security", "ss#", "soc sec", "medicare", "taxpayer"}
	p.negativeKeywords = append([]string{"phone", "fax", "routing", "account", "zip"}, commonNegatives...)
	return p
}

// validSSN rejects numbers the SSA never issues: area 000, 666 or 900-999,
// group 00 and serial 0000.
func validSSN(value string) bool {
	d := digitsOnly(value)
	if len(d) != 9 {
		return false
	}
	area, group, serial := d[:3], d[3:5], d[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

// NewMRN detects medical record numbers introduced by an MRN label.
func NewMRN() *Pattern {
	p := newPattern("mrn", span.TypeMRN,
		`(?i)\b(?:mrn|medical record(?: number| no\.?| #)?|record #|chart #)\s*[:#]?\s*(?P<v>[A-Z0-9][A-Z0-9-]{4,14})\b`, 0.85)
	p.validate = func(v string) bool {
		return strings.ContainsAny(v, "0123456789")
	}
	return p
}

// NewHealthPlan detects member, policy and subscriber identifiers.
func NewHealthPlan() *Pattern {
	p := newPattern("health_plan", span.TypeHealthPlan,
		`(?i)\b(?:member id|member #|policy(?: number| no\.?| #)?|subscriber id|group(?: number| no\.?| #))\s*[:#]?\s*(?P<v>[A-Z0-9][A-Z0-9-]{4,19})\b`, 0.8)
	p.validate = func(v string) bool {
		return strings.ContainsAny(v, "0123456789")
	}
	return p
}

// NewAccount detects account numbers introduced by an account label.
func NewAccount() *Pattern {
	p := newPattern("account", span.TypeAccount,
		`(?i)\b(?:account|acct)(?: number| no\.?| #)?\s*[:#]?\s*(?P<v>\d[\d-]{5,19})\b`, 0.8)
	return p
}

// NewCreditCard detects payment card numbers that pass the Luhn check.
func NewCreditCard() *Pattern {
	p := newPattern("credit_card", span.TypeCreditCard, `\b(?:\d{4}[ -]?){3}\d{1,4}\b|\b\d{4}[ -]?\d{6}[ -]?\d{5}\b`, 0.8)
	p.validate = func(v string) bool {
		d := digitsOnly(v)
		return len(d) >= 13 && len(d) <= 19 && !allSameDigit(d) && luhn(d)
	}
	p.positiveKeywords = []string{"card", "visa", "mastercard", "amex", "payment", "credit"}
	p.negativeKeywords = commonNegatives
	return p
}

func luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// NewZipCode detects five and nine digit ZIP codes. Bare five digit numbers are
// everywhere, so a ZIP needs a state abbreviation or an address keyword nearby.
func NewZipCode() *Pattern {
	p := newPattern("zipcode", span.TypeZipCode, `\b\d{5}(?:-\d{4})?\b`, 0.55)
	p.positiveKeywords = []string{"zip", "postal", "address", "street", " st ", " ave", " rd", ", ca ", ", ny ", ", tx ", ", fl ", ", ma ", ", wa ", ", il ", ", pa ", ", oh "}
	p.negativeKeywords = append([]string{"mg", "units", "$"}, commonNegatives...)
	p.requireContext = true
	return p
}

// NewIP detects IPv4 and IPv6 addresses.
func NewIP() *Pattern {
	p := newPattern("ip", span.TypeIP,
		`\b(?:\d{1,3}\.){3}\d{1,3}\b|\b(?:[0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}\b|\b(?:[0-9A-Fa-f]{1,4}:){1,6}:(?:[0-9A-Fa-f]{1,4})?\b`, 0.8)
	p.validate = func(v string) bool {
		addr, err := netip.ParseAddr(v)
		return err == nil && !addr.IsUnspecified()
	}
	p.score = func(v string, base float64) float64 {
		addr, _ := netip.ParseAddr(v)
		if addr.IsLoopback() || addr.IsPrivate() {
			return base - 0.2
		}
		return base
	}
	p.positiveKeywords = []string{"ip", "address", "host", "login", "device"}
	p.negativeKeywords = []string{"version", "v.", "build"}
	return p
}

// NewURL detects web addresses.
func NewURL() *Pattern {
	p := newPattern("url", span.TypeURL, `(?i)\bhttps?://[^\s<>"')\]]+|\bwww\.[a-z0-9-]+(?:\.[a-z0-9-]+)+[^\s<>"')\]]*`, 0.7)
	p.positiveKeywords = []string{"portal", "profile", "patient", "website"}
	return p
}

// NewEmail detects email addresses.
func NewEmail() *Pattern {
	p := newPattern("email", span.TypeEmail, `(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`, 0.9)
	p.validate = func(v string) bool {
		local, domain, ok := strings.Cut(v, "@")
		return ok && local != "" && !strings.HasPrefix(domain, ".") && !strings.Contains(domain, "..")
	}
	p.score = func(v string, base float64) float64 {
		lower := strings.ToLower(v)
		if strings.HasSuffix(lower, "@example.com") || strings.HasSuffix(lower, ".test") {
			return base - 0.4
		}
		return base
	}
	return p
}

// NewAge detects ages stated with a unit or an age label. Ages over 89 are
// identifying on their own and score higher.
func NewAge() *Pattern {
	p := newPattern("age", span.TypeAge,
		`(?i)\b(?P<v>\d{1,3})\s*-?\s*(?:years?[- ]old|y/?o\b|yrs?\b)|\bage[d:]?\s*:?\s*(?P<v2>\d{1,3})\b`, 0.7)
	p.validate = func(v string) bool {
		_, ok := ageValue(v)
		return ok
	}
	p.score = func(v string, base float64) float64 {
		if n, _ := ageValue(v); n > 89 {
			return base + 0.15
		}
		return base
	}
	p.negativeKeywords = []string{"ago", "anniversary", "warranty"}
	return p
}

func ageValue(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	return n, err == nil && n > 0 && n < 130
}
