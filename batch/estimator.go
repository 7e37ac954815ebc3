package batch

import (
	"fmt"
	"time"
)

// Estimate projects the time left in a run.
//
// Once at least one item is done the average time per item is elapsed/done and
// the remainder is that average times the items left, plus half an average while
// anything is in flight. Before the first completion the estimate is unknown.
// Progress passes settled items (done or error) as done, so a failed item is
// enough to make the estimate known.
func Estimate(elapsed time.Duration, done, processing, total int) (remaining time.Duration, known bool) {
	if done <= 0 {
		return 0, false
	}

	avg := elapsed / time.Duration(done)
	remaining = avg * time.Duration(total-done)
	if processing > 0 {
		remaining += avg / 2
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Progress is a point-in-time view of the active run
type Progress struct {
	Running bool
	// Paused is true when a run is retained and can be resumed
	Paused bool

	Elapsed    time.Duration
	Done       int
	Processing int
	Total      int

	Remaining time.Duration
	Known     bool
}

// Progress reports the active run's counters and the current estimate.
// Done counts items settled (done or error) since the run last started.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.active
	if r == nil {
		return Progress{Paused: o.paused != nil}
	}

	ahead := 0
	if r.cursor < len(r.snapshot) {
		for _, id := range r.snapshot[r.cursor:] {
			if r.inflight[id] {
				continue
			}
			if it, ok := o.store.Get(id); ok && claimable(it) {
				ahead++
			}
		}
	}

	p := Progress{
		Running:    true,
		Elapsed:    o.now().Sub(r.started),
		Done:       r.settled,
		Processing: len(r.inflight),
	}
	p.Total = p.Done + p.Processing + ahead
	p.Remaining, p.Known = Estimate(p.Elapsed, p.Done, p.Processing, p.Total)
	return p
}

// FormatDuration renders d as "1h 2m 3s", "2m 3s" or "3s"
func FormatDuration(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	h, m := s/3600, (s%3600)/60
	s %= 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
