package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"imgtagger/gemini"
	"imgtagger/logging"
	"imgtagger/store"
)

// run is the state of one batch from Start until completion or Stop.
// Every field is guarded by Orchestrator.mu.
type run struct {
	cfg       Config
	captioner Captioner

	// snapshot is fixed at start; cursor indexes the next chunk and claimed
	// is the end of the last chunk handed to dispatch
	snapshot []string
	cursor   int
	claimed  int

	started  time.Time
	settled  int
	inflight map[string]bool

	// deferred holds rerun requests, in request order, for after completion
	deferred []string

	paused  bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newRun(snapshot []string) *run {
	return &run{
		snapshot: snapshot,
		inflight: make(map[string]bool),
		cancel:   func() {},
	}
}

// claimableAhead counts items from the cursor on that a chunk would still pick up
func (o *Orchestrator) claimableAhead(r *run) int {
	n := 0
	if r.cursor >= len(r.snapshot) {
		return 0
	}
	for _, id := range r.snapshot[r.cursor:] {
		if it, ok := o.store.Get(id); ok && claimable(it) {
			n++
		}
	}
	return n
}

// claimLocked marks the claimable items of the chunk at the cursor as processing.
// Items deleted, done or already processing since the snapshot are skipped.
func (o *Orchestrator) claimLocked(r *run) []store.Item {
	end := min(r.cursor+r.cfg.ChunkSize, len(r.snapshot))

	var chunk []store.Item
	for _, id := range r.snapshot[r.cursor:end] {
		it, ok := o.store.Get(id)
		if !ok || !claimable(it) {
			continue
		}
		o.store.SetStatus(id, store.Processing())
		r.inflight[id] = true
		chunk = append(chunk, it)
	}
	r.claimed = end
	return chunk
}

// pendingAheadLocked reports whether id is still waiting in a chunk that has
// not been claimed yet
func (o *Orchestrator) pendingAheadLocked(r *run, id string) bool {
	if r.claimed >= len(r.snapshot) {
		return false
	}
	if !slices.Contains(r.snapshot[r.claimed:], id) {
		return false
	}
	it, ok := o.store.Get(id)
	return ok && claimable(it)
}

func (o *Orchestrator) loop(r *run) {
	defer o.wg.Done()

	size := r.cfg.ChunkSize
	chunks := (len(r.snapshot) + size - 1) / size

	for {
		o.mu.Lock()
		if r.stopped {
			o.mu.Unlock()
			return
		}
		if r.ctx.Err() != nil {
			o.mu.Unlock()
			o.halt(r)
			return
		}
		if r.cursor >= len(r.snapshot) {
			o.mu.Unlock()
			break
		}
		if r.paused {
			r.paused = false
			if o.active == r {
				o.active = nil
			}
			o.paused = r
			o.mu.Unlock()

			o.logger.Info("Processing paused", "next_chunk", r.cursor/size+1, "chunks", chunks)
			o.emit(Event{Type: RunPaused})
			return
		}
		index := r.cursor/size + 1
		chunk := o.claimLocked(r)
		o.mu.Unlock()

		if len(chunk) > 0 {
			o.logger.Info(fmt.Sprintf("Processing batch %d/%d", index, chunks), "images", len(chunk))
			o.emit(Event{Type: ChunkStarted, Chunk: index, Chunks: chunks, IDs: ids(chunk)})
			o.dispatch(r, chunk)
		}

		o.mu.Lock()
		r.cursor += size
		more := r.cursor < len(r.snapshot) && !r.paused && !r.stopped
		o.mu.Unlock()

		if len(chunk) > 0 && more {
			o.wait(r.ctx, r.cfg.ChunkDelay)
		}
	}

	o.complete(r)
}

// dispatch captions every chunk item concurrently and returns once all have settled
func (o *Orchestrator) dispatch(r *run, chunk []store.Item) {
	var wg sync.WaitGroup
	for _, it := range chunk {
		wg.Add(1)
		go func(it store.Item) {
			defer wg.Done()
			text, err := o.process(r.ctx, r.captioner, r.cfg, it)
			o.settle(r, it, text, err, false)
		}(it)
	}
	wg.Wait()
}

// settle records an outcome unless the run was stopped or the call aborted.
// Aborted items stay in flight so a later stop can revert them.
func (o *Orchestrator) settle(r *run, it store.Item, text string, err error, single bool) {
	o.mu.Lock()
	if r.stopped || errors.Is(err, gemini.ErrAborted) {
		o.mu.Unlock()
		return
	}
	delete(r.inflight, it.ID)
	st := outcome(text, err)
	if !o.store.SetStatus(it.ID, st) {
		// deleted while in flight
		o.mu.Unlock()
		return
	}
	r.settled++
	o.mu.Unlock()

	o.report(it, st, single)
}

// complete fires RunCompleted and then works through deferred reruns one by one
func (o *Orchestrator) complete(r *run) {
	o.mu.Lock()
	if r.stopped {
		o.mu.Unlock()
		return
	}
	settled := r.settled
	elapsed := o.now().Sub(r.started)
	o.mu.Unlock()

	logging.Success(o.logger, "Processing complete", "images", settled, "elapsed", FormatDuration(elapsed))
	o.emit(Event{Type: RunCompleted, Settled: settled, Elapsed: elapsed})

	for {
		o.mu.Lock()
		if r.stopped {
			o.mu.Unlock()
			return
		}
		if r.ctx.Err() != nil {
			o.mu.Unlock()
			o.halt(r)
			return
		}
		if len(r.deferred) == 0 {
			break
		}
		id := r.deferred[0]
		r.deferred = r.deferred[1:]

		it, ok := o.store.Get(id)
		if !ok || it.Status.Kind() == store.KindProcessing {
			o.mu.Unlock()
			continue
		}
		o.store.SetStatus(id, store.Pending())
		o.store.SetStatus(id, store.Processing())
		r.inflight[id] = true
		o.mu.Unlock()

		o.logger.Info("Running deferred rerun", "image", it.Name)
		text, err := o.process(r.ctx, r.captioner, r.cfg, it)
		o.settle(r, it, text, err, true)
	}

	if o.active == r {
		o.active = nil
	}
	o.mu.Unlock()
	r.cancel()
}

// halt stops a run whose parent context was cancelled
func (o *Orchestrator) halt(r *run) {
	o.mu.Lock()
	reverted, stopped := o.stopLocked(r)
	o.mu.Unlock()

	if stopped {
		o.logger.Warn("Processing cancelled", "reverted", reverted)
		o.emit(Event{Type: RunStopped, Reverted: reverted})
	}
}

// process runs one item through the retry policy, turning a panic into an error
func (o *Orchestrator) process(ctx context.Context, c Captioner, cfg Config, it store.Item) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()

	return o.captionWithRetry(ctx, c, &gemini.CaptionRequest{
		Model:              cfg.Model,
		SystemInstructions: cfg.SystemInstructions,
		Prompt:             cfg.Prompt,
		MIMEType:           it.MIME,
		Data:               it.Data,
		Thinking:           cfg.Thinking,
	}, it.Name)
}

func (o *Orchestrator) report(it store.Item, st store.Status, single bool) {
	ev := Event{Type: ItemCompleted, ItemID: it.ID, Name: it.Name, Kind: st.Kind(), Single: single}
	if msg, failed := st.Err(); failed {
		ev.Message = msg
		o.logger.Error("Failed to caption image", "image", it.Name, "error", msg)
	} else {
		logging.Success(o.logger, "Captioned image", "image", it.Name)
	}
	o.emit(ev)
}

// outcome maps a captioning result to the item's next status
func outcome(text string, err error) store.Status {
	if err != nil {
		return store.Failed(errorMessage(err))
	}
	if strings.TrimSpace(text) == "" {
		return store.Failed(errEmptyResponse.Message)
	}
	st, err := store.Done(text)
	if err != nil {
		return store.Failed(err.Error())
	}
	return st
}

func errorMessage(err error) string {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
