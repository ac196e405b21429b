package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/snowcastlabs/snowday-api/internal/config"
)

// State is the position of a run in the prediction pipeline.
type State int

const (
	StateIdle State = iota
	StateGeocoding
	StateFetchingForecast
	StateGeneratingNarrative
	StateSegmenting
	StateDone
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGeocoding:
		return "geocoding"
	case StateFetchingForecast:
		return "fetching_forecast"
	case StateGeneratingNarrative:
		return "generating_narrative"
	case StateSegmenting:
		return "segmenting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateTimedOut
}

// Run is the context of one prediction run: current state, state history,
// progress value and diagnostic log. Each submission gets a fresh Run, so
// timers and log lines from a prior run can never bleed into the next one.
type Run struct {
	mu       sync.Mutex
	state    State
	history  []State
	progress *progress
	log      []string
}

func newRun() *Run {
	return &Run{
		state:    StateIdle,
		progress: newProgress(),
	}
}

// transition moves the run to the next state. Transitions out of a terminal
// state are ignored, so a single run reaches exactly one terminal state.
func (r *Run) transition(next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = next
	r.history = append(r.history, next)
	config.GetLogger().Debugw("pipeline state change", "state", next.String())
}

// State returns the run's current state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns the states the run has passed through, in order.
func (r *Run) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.history))
	copy(out, r.history)
	return out
}

// Progress returns the current progress value in [0, 100].
func (r *Run) Progress() int {
	return r.progress.value()
}

// Logf appends a timestamped line to the run's diagnostic log.
func (r *Run) Logf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := time.Now().Format("15:04:05") + " " + fmt.Sprintf(format, args...)
	r.log = append(r.log, line)
}

// Log returns a copy of the diagnostic log.
func (r *Run) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}
