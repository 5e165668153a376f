// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"fmt"

	"github.com/charmbracelet/log"
)

const (
	// Init is the state before the build file is read.
	Init State = iota
	// Loaded means the build file is valid and tags are merged.
	Loaded
	// Assembled means the build context is ready.
	Assembled
	// Built means the engine produced an image.
	Built
	// Tagged means every requested tag was applied.
	Tagged
	// Done is the successful terminal state.
	Done
	// Failed is the unsuccessful terminal state.
	Failed
)

type (
	// State is a pipeline state.
	State int

	// Transition describes one state change of a run.
	Transition struct {
		RunID string
		From  State
		To    State
		// Err is set when To is Failed.
		Err error
	}

	// Observer is called synchronously on every state change.
	Observer func(Transition)
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Loaded:
		return "loaded"
	case Assembled:
		return "assembled"
	case Built:
		return "built"
	case Tagged:
		return "tagged"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// LogObserver logs transitions to logger at debug level. Failures are logged
// with their error; reporting them to the user is left to the caller of Run.
func LogObserver(logger *log.Logger) Observer {
	return func(t Transition) {
		if t.To == Failed {
			logger.Debug("run failed", "run", t.RunID, "state", t.From, "err", t.Err)
			return
		}
		logger.Debug("state", "run", t.RunID, "from", t.From, "state", t.To)
	}
}
