package batch

import (
	"time"

	"imgtagger/store"
)

// EventType identifies an orchestrator event
type EventType int

const (
	// RunStarted fires when Start is accepted (fresh or resumed)
	RunStarted EventType = iota
	// ChunkStarted fires before a chunk is dispatched
	ChunkStarted
	// ItemCompleted fires when one item settles as done or error
	ItemCompleted
	// RunPaused fires once the chunk in flight has settled after Pause
	RunPaused
	// RunStopped fires when Stop (or a cancelled parent context) halts work
	RunStopped
	// RunCompleted fires exactly once when a run reaches the end of its snapshot
	RunCompleted
)

func (t EventType) String() string {
	switch t {
	case RunStarted:
		return "run-started"
	case ChunkStarted:
		return "chunk-started"
	case ItemCompleted:
		return "item-completed"
	case RunPaused:
		return "run-paused"
	case RunStopped:
		return "run-stopped"
	case RunCompleted:
		return "run-completed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Fields not relevant to Type are zero.
type Event struct {
	Type EventType

	// RunStarted
	Total   int
	Resumed bool

	// ChunkStarted
	Chunk  int
	Chunks int
	IDs    []string

	// ItemCompleted. Single is true outside the chunked flow
	// (idle reruns and the deferred drain).
	ItemID  string
	Name    string
	Kind    store.Kind
	Message string
	Single  bool

	// RunCompleted
	Settled int
	Elapsed time.Duration

	// RunStopped
	Reverted int
}

// Listener receives events. It may be called from several goroutines at once
// and must not block.
type Listener func(Event)

// Subscribe registers l and returns a function that removes it
func (o *Orchestrator) Subscribe(l Listener) func() {
	o.lmu.Lock()
	defer o.lmu.Unlock()

	id := o.nextListener
	o.nextListener++
	o.listeners[id] = l

	return func() {
		o.lmu.Lock()
		delete(o.listeners, id)
		o.lmu.Unlock()
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.lmu.Lock()
	ls := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		ls = append(ls, l)
	}
	o.lmu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}
