// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"phi-guard/internal/chaos"
	"phi-guard/internal/detector"
)

// Defaults returns every built-in detector in a registry. analyzer is shared by
// the chaos-aware detectors and may be nil.
func Defaults(analyzer *chaos.Analyzer) (*detector.Registry, error) {
	names, err := NewNames(analyzer)
	if err != nil {
		return nil, err
	}
	return detector.NewRegistry(
		NewSSN(),
		NewEmail(),
		NewPhone(),
		NewFax(),
		NewDate(),
		NewAge(),
		NewMRN(),
		NewHealthPlan(),
		NewAccount(),
		NewZipCode(),
		NewIP(),
		NewURL(),
		NewCreditCard(),
		names,
	)
}
