// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"testing"
)

func TestProceed(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		outcome Outcome
		wantErr error
	}{
		{name: "ok continues", outcome: ok(), wantErr: nil},
		{name: "warn continues", outcome: warn(boom), wantErr: nil},
		{name: "fatal aborts", outcome: fatal(boom), wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := proceed("stage", tt.outcome)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("proceed() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
