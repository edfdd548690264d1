// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"github.com/charmbracelet/log"
)

const (
	// StatusOK means the stage completed; continue.
	StatusOK Status = iota
	// StatusWarn means the stage degraded but later stages may still
	// succeed on partial output; log and continue.
	StatusWarn
	// StatusFatal aborts the pipeline, unwinding through the workspace
	// release.
	StatusFatal
)

type (
	// Status is the continuation class of a stage outcome.
	Status int

	// Outcome is a stage's tagged result. Collapsing every stage to one
	// of three states keeps the orchestrator's continuation policy a
	// single switch instead of per-stage conditionals.
	Outcome struct {
		Status Status
		Err    error
	}
)

// ok is the zero-value success outcome.
func ok() Outcome {
	return Outcome{Status: StatusOK}
}

// warn downgrades err to a logged warning.
func warn(err error) Outcome {
	return Outcome{Status: StatusWarn, Err: err}
}

// fatal aborts the pipeline with err.
func fatal(err error) Outcome {
	return Outcome{Status: StatusFatal, Err: err}
}

// proceed applies the continuation policy to a stage outcome: OK and Warn
// continue (Warn after logging), Fatal returns the error to unwind.
func proceed(stage string, o Outcome) error {
	switch o.Status {
	case StatusWarn:
		log.Warn("stage degraded, continuing", "stage", stage, "err", o.Err)
		return nil
	case StatusFatal:
		return o.Err
	default:
		return nil
	}
}
