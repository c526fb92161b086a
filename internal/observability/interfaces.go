// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Observer times pipeline stages. Components take an Observer so tests can pass
// Nop and the CLI can pass a StandardObserver or DebugObserver.
type Observer interface {
	// StartTiming begins timing an operation on a document and returns the
	// function that completes it
	StartTiming(component, operation, documentID string) func(success bool, metadata map[string]interface{})
}

// Nop is an Observer that records nothing.
var Nop Observer = nopObserver{}

type nopObserver struct{}

func (nopObserver) StartTiming(string, string, string) func(bool, map[string]interface{}) {
	return func(bool, map[string]interface{}) {}
}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop
	}
	return o
}
