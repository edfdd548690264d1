// SPDX-License-Identifier: MPL-2.0

package backend

// payloads holds precompiled tool binaries keyed by Kind. Release builds
// register platform-specific payloads from an init function in a
// build-tagged file; development builds carry none, so resolution falls
// through to the source build.
//
//nolint:gochecknoglobals // Registry populated at init time by release builds.
var payloads = map[Kind][]byte{}

// RegisterPayload registers an embedded executable for kind. Registration
// happens at init time, before any resolution runs.
func RegisterPayload(kind Kind, data []byte) {
	payloads[kind] = data
}

// embeddedPayload returns the registered payload for kind, if any.
func embeddedPayload(kind Kind) ([]byte, bool) {
	data, ok := payloads[kind]
	return data, ok && len(data) > 0
}
