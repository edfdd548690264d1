// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for yanu.
//
// This package implements the Cobra command hierarchy for the yanu CLI:
// the root command, the patch and repack flows, configuration management,
// and backend tool-cache utilities.
package cmd
