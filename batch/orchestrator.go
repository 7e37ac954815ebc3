// Package batch walks the work queue in fixed-size chunks, captioning every
// item of a chunk concurrently, and supports pause, resume, stop and rerun.
//
// The orchestrator is the only writer of item status. It never presents
// anything itself; UIs subscribe to its events.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"imgtagger/gemini"
	"imgtagger/store"
)

var (
	// ErrNoCredential is returned when no API key was supplied
	ErrNoCredential = errors.New("no API key configured")
	// ErrNothingToProcess is returned when the target set is empty
	ErrNothingToProcess = errors.New("nothing to process")
	// ErrAlreadyRunning is returned by Start while a run is active
	ErrAlreadyRunning = errors.New("a run is already in progress")
	// ErrItemBusy is returned when rerunning an item that is already processing
	ErrItemBusy = errors.New("item is already processing")
	// ErrUnknownItem is returned for ids that are not in the store
	ErrUnknownItem = errors.New("unknown item")
)

const (
	DefaultChunkSize     = 5
	DefaultChunkDelay    = 500 * time.Millisecond
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

// Captioner produces a caption for one image. *gemini.Client implements it.
type Captioner interface {
	Caption(ctx context.Context, req *gemini.CaptionRequest) (string, error)
}

// CaptionerFactory builds a Captioner for an API key
type CaptionerFactory func(apiKey string) (Captioner, error)

// GeminiFactory returns a factory creating Gemini clients with opts
func GeminiFactory(opts ...gemini.ClientOption) CaptionerFactory {
	return func(apiKey string) (Captioner, error) {
		c, err := gemini.NewClient(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Config is copied at Start and not changed while the run is active
type Config struct {
	Model              string
	SystemInstructions string
	Prompt             string
	Thinking           bool
	ChunkSize          int
	ChunkDelay         time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = gemini.DefaultModel
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkDelay < 0 {
		c.ChunkDelay = 0
	}
	return c
}

// StartRequest selects what a run processes.
//
// Precedence: Selected ids (done ones are reprocessed), then the paused run
// when Resume is set, then every item that is neither done nor processing.
type StartRequest struct {
	Config   Config
	APIKey   string
	Selected []string
	Resume   bool
}

// Orchestrator drives runs over a store
type Orchestrator struct {
	store        *store.Store
	newCaptioner CaptionerFactory
	logger       *slog.Logger

	retryAttempts int
	retryDelay    time.Duration

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	active  *run
	paused  *run
	singles map[string]context.CancelFunc

	lmu          sync.Mutex
	listeners    map[int]Listener
	nextListener int

	wg sync.WaitGroup
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetry sets how many attempts each item gets and the pause between them
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.retryAttempts = attempts
		}
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}

// New creates an idle orchestrator
func New(s *store.Store, factory CaptionerFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         s,
		newCaptioner:  factory,
		logger:        slog.Default(),
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		now:           time.Now,
		wait:          sleep,
		singles:       make(map[string]context.CancelFunc),
		listeners:     make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a run is active (including its deferred drain)
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// Paused reports whether a paused run is retained
func (o *Orchestrator) Paused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active == nil && o.paused != nil
}

// Wait blocks until every goroutine started by the orchestrator has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Start begins (or resumes) a run. The run itself proceeds in the background.
// Cancelling ctx has the same effect as Stop.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) error {
	o.mu.Lock()

	if o.active != nil {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	if req.APIKey == "" {
		o.mu.Unlock()
		return ErrNoCredential
	}

	cfg := req.Config.withDefaults()
	captioner, err := o.newCaptioner(req.APIKey)
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to create captioning client: %w", err)
	}

	var r *run
	resumed := false

	switch {
	case len(req.Selected) > 0:
		targets := o.selectedTargets(req.Selected)
		if len(targets) == 0 {
			o.mu.Unlock()
			return ErrNothingToProcess
		}
		want := make(map[string]bool, len(targets))
		for _, it := range targets {
			want[it.ID] = true
		}
		o.store.SetStatusFunc(func(it store.Item) (store.Status, bool) {
			return store.Pending(), want[it.ID] && it.Status.Kind() == store.KindDone
		})
		r = newRun(ids(targets))

	case req.Resume && o.paused != nil:
		r = o.paused
		if o.claimableAhead(r) == 0 {
			o.paused = nil
			o.mu.Unlock()
			return ErrNothingToProcess
		}
		resumed = true

	default:
		var targets []store.Item
		for _, it := range o.store.List() {
			if claimable(it) {
				targets = append(targets, it)
			}
		}
		if len(targets) == 0 {
			o.mu.Unlock()
			return ErrNothingToProcess
		}
		r = newRun(ids(targets))
	}

	if o.paused != nil && o.paused != r {
		o.paused.cancel()
	}
	o.paused = nil

	r.cancel()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cfg = cfg
	r.captioner = captioner
	r.started = o.now()
	r.settled = 0
	r.paused = false
	total := o.claimableAhead(r)

	o.active = r
	o.wg.Add(1)
	o.mu.Unlock()

	if resumed {
		o.logger.Info("Resuming processing", "remaining", total)
	} else {
		o.logger.Info("Starting processing", "images", total, "chunk_size", cfg.ChunkSize, "model", cfg.Model)
	}
	o.emit(Event{Type: RunStarted, Total: total, Resumed: resumed})

	go o.loop(r)
	return nil
}

// selectedTargets returns the selected items, in store order, that are not processing
func (o *Orchestrator) selectedTargets(selected []string) []store.Item {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var out []store.Item
	for _, it := range o.store.List() {
		if want[it.ID] && it.Status.Kind() != store.KindProcessing {
			out = append(out, it)
		}
	}
	return out
}

// Pause asks the active run to stop after the chunk in flight settles.
// It returns false when there is nothing to pause.
func (o *Orchestrator) Pause() bool {
	o.mu.Lock()
	r := o.active
	if r == nil || r.paused || r.stopped {
		o.mu.Unlock()
		return false
	}
	r.paused = true
	o.mu.Unlock()

	o.logger.Info("Pausing after the current chunk")
	return true
}

// Stop cancels the active or paused run and every single-item rerun.
// Items left processing return to pending, and deferred reruns are dropped.
// It returns false when there was nothing to stop.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	r := o.active
	if r == nil {
		r = o.paused
	}
	reverted, stopped := o.stopLocked(r)
	o.mu.Unlock()

	if !stopped {
		return false
	}
	o.logger.Warn("Processing stopped", "reverted", reverted)
	o.emit(Event{Type: RunStopped, Reverted: reverted})
	return true
}

func (o *Orchestrator) stopLocked(r *run) (reverted int, stopped bool) {
	if r != nil && !r.stopped {
		stopped = true
		r.stopped = true
		r.cancel()
		r.deferred = nil
		for id := range r.inflight {
			if o.revertLocked(id) {
				reverted++
			}
		}
		clear(r.inflight)
		if o.active == r {
			o.active = nil
		}
		if o.paused == r {
			o.paused = nil
		}
	}

	for id, cancel := range o.singles {
		stopped = true
		cancel()
		if o.revertLocked(id) {
			reverted++
		}
		delete(o.singles, id)
	}
	return reverted, stopped
}

// revertLocked puts a processing item back to pending
func (o *Orchestrator) revertLocked(id string) bool {
	it, ok := o.store.Get(id)
	if !ok || it.Status.Kind() != store.KindProcessing {
		return false
	}
	return o.store.SetStatus(id, store.Pending())
}

// Rerun captions one item again.
//
// While a run is active the request is deferred until the run completes
// naturally (deferred is true), unless the item is still waiting in a chunk
// the run has not reached, in which case nothing needs to happen. Otherwise
// the item is processed right away on its own, outside any run.
func (o *Orchestrator) Rerun(ctx context.Context, id string, req StartRequest) (deferred bool, err error) {
	o.mu.Lock()

	it, ok := o.store.Get(id)
	if !ok {
		o.mu.Unlock()
		return false, ErrUnknownItem
	}

	if r := o.active; r != nil {
		if o.pendingAheadLocked(r, id) {
			o.mu.Unlock()
			o.logger.Debug("Rerun not needed, image is still queued in the current run", "image", it.Name)
			return false, nil
		}
		if !slices.Contains(r.deferred, id) {
			r.deferred = append(r.deferred, id)
		}
		o.mu.Unlock()
		o.logger.Info("Rerun queued until the current run completes", "image", it.Name)
		return true, nil
	}

	if it.Status.Kind() == store.KindProcessing {
		o.mu.Unlock()
		return false, ErrItemBusy
	}
	if req.APIKey == "" {
		o.mu.Unlock()
		return false, ErrNoCredential
	}
	captioner, err := o.newCaptioner(req.APIKey)
	if err != nil {
		o.mu.Unlock()
		return false, fmt.Errorf("failed to create captioning client: %w", err)
	}

	o.store.SetStatus(id, store.Processing())
	sctx, cancel := context.WithCancel(ctx)
	o.singles[id] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info("Rerunning image", "image", it.Name)
	go o.single(sctx, cancel, captioner, req.Config.withDefaults(), it)
	return false, nil
}

func (o *Orchestrator) single(ctx context.Context, cancel context.CancelFunc, c Captioner, cfg Config, it store.Item) {
	defer o.wg.Done()
	defer cancel()

	text, err := o.process(ctx, c, cfg, it)

	o.mu.Lock()
	if errors.Is(err, gemini.ErrAborted) || ctx.Err() != nil {
		// Stop has already reverted it unless the parent context was cancelled
		if _, mine := o.singles[it.ID]; mine {
			delete(o.singles, it.ID)
			o.revertLocked(it.ID)
		}
		o.mu.Unlock()
		return
	}
	delete(o.singles, it.ID)
	st := outcome(text, err)
	found := o.store.SetStatus(it.ID, st)
	o.mu.Unlock()

	if !found {
		return
	}

	o.report(it, st, true)
}

func ids(items []store.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// claimable reports whether an item can be picked up by a chunk
func claimable(it store.Item) bool {
	k := it.Status.Kind()
	return k != store.KindDone && k != store.KindProcessing
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
