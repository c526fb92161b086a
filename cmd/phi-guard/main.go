// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command phi-guard detects and redacts protected health information.
//
// Usage:
//
//	phi-guard scan note.txt
//	phi-guard scan report.pdf --format json
//	phi-guard bench corpus.yaml --fail-on-risk
//	phi-guard version
package main

import "phi-guard/internal/cli"

func main() {
	cli.Execute()
}
