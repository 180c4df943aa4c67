package engine

import (
	"sync"
)

// ProgressFailed is the sentinel reported after a run ends in error.
const ProgressFailed = -1.0

// Progress is the poll point for a run's completion percentage and
// human-readable status line. Writers are the run loop; readers are API
// handlers on other goroutines.
type Progress struct {
	mu      sync.RWMutex
	percent float64
	message string
	done    bool
}

// Set records the current completion percentage and status message. Calls
// after the run has finished are ignored.
func (p *Progress) Set(percent float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.percent = percent
	p.message = message
}

// Finish marks the run complete at 100% with a final status message.
func (p *Progress) Finish(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = 100
	p.message = message
	p.done = true
}

// Fail marks the run failed; Percent reports the sentinel from then on and
// the message carries the error text.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = ProgressFailed
	p.message = "Error: " + err.Error()
	p.done = true
}

// Percent returns the last reported percentage, 100 on completion, or the
// failure sentinel.
func (p *Progress) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percent
}

// Status returns the percentage together with the status message.
func (p *Progress) Status() (float64, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percent, p.message
}

// Done reports whether the run has finished, successfully or not.
func (p *Progress) Done() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done
}
