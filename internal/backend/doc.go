// SPDX-License-Identifier: MPL-2.0

// Package backend resolves the external hac tools (hactool, hactoolnet,
// hac2l, hacpack) to verified local executables.
//
// Resolution order for a given Kind: persistent cache hit, embedded payload
// for the current platform/architecture, build from upstream source. The
// acquired executable is stored in the cache so later runs hit the first
// path. The package also owns child-process invocation of the resolved
// tools, including exit-code extraction.
package backend
