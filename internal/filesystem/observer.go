package filesystem

import (
	"sync/atomic"
	"time"
)

// Outcome classifies a filesystem event.
type Outcome string

const (
	// OutcomeOK and OutcomeError close out a call and carry its duration.
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"

	// Steps of the stale handle retry loop.
	OutcomeStale     Outcome = "stale"
	OutcomeRecovered Outcome = "recovered"
	OutcomeExhausted Outcome = "exhausted"
)

// Completed reports whether the event closes out a call.
func (o Outcome) Completed() bool {
	return o == OutcomeOK || o == OutcomeError
}

// Event is one filesystem call or one step of its retry loop. Duration is
// zero unless Outcome.Completed.
type Event struct {
	Volume    string
	Operation string
	Outcome   Outcome
	Duration  time.Duration
}

// Observer receives filesystem events. It is called on the goroutine doing
// the I/O and must not block.
type Observer func(Event)

var observer atomic.Pointer[Observer]

// SetObserver installs the hook that receives filesystem events. nil removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&o)
}

func emit(volume, operation string, outcome Outcome, d time.Duration) {
	if o := observer.Load(); o != nil {
		(*o)(Event{Volume: volume, Operation: operation, Outcome: outcome, Duration: d})
	}
}

// finish emits the completing event for a call that started at start.
func finish(volume, operation string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	emit(volume, operation, outcome, time.Since(start))
}
