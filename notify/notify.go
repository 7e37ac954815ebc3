// Package notify turns orchestrator events into terminal cues: the bell, and a
// window title that flashes for a while after a run completes.
package notify

import (
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imgtagger/batch"
	"imgtagger/store"
)

// Bell rings the terminal bell. A finished run rings twice, a single
// captioned item once, and items inside a run stay silent.
type Bell struct {
	mu    sync.Mutex
	w     io.Writer
	gap   time.Duration
	muted bool
	sleep func(time.Duration)
}

// NewBell writes BEL characters to w
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w, gap: 150 * time.Millisecond, sleep: time.Sleep}
}

// SetMuted silences the bell
func (b *Bell) SetMuted(muted bool) {
	b.mu.Lock()
	b.muted = muted
	b.mu.Unlock()
}

// Muted reports whether the bell is silenced
func (b *Bell) Muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

// Ring writes n bells, gap apart
func (b *Bell) Ring(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.muted || b.w == nil {
		return
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.sleep(b.gap)
		}
		io.WriteString(b.w, "\a")
	}
}

// Rings returns how many bells an event deserves
func Rings(ev batch.Event) int {
	switch {
	case ev.Type == batch.RunCompleted:
		return 2
	case ev.Type == batch.ItemCompleted && ev.Single && ev.Kind == store.KindDone:
		return 1
	}
	return 0
}

// Handle rings for ev. It can be passed to Orchestrator.Subscribe.
func (b *Bell) Handle(ev batch.Event) {
	if n := Rings(ev); n > 0 {
		b.Ring(n)
	}
}

// AttentionDuration caps how long the title keeps flashing
const AttentionDuration = 10 * time.Second

const attentionInterval = time.Second

// AttentionTickMsg advances the title animation
type AttentionTickMsg struct {
	id int
}

// Attention flashes the window title after a run completes until the terminal
// regains focus or AttentionDuration passes. It is driven by a Bubble Tea
// program started with tea.WithReportFocus.
type Attention struct {
	Title  string
	Frames []string

	id      int
	active  bool
	started time.Time
	frame   int
}

// NewAttention animates between frames and restores title when done
func NewAttention(title string, frames ...string) *Attention {
	if len(frames) == 0 {
		frames = []string{"✅ Captions ready", "🔔 " + title}
	}
	return &Attention{Title: title, Frames: frames}
}

// Active reports whether the animation is running
func (a *Attention) Active() bool { return a.active }

// Start begins the animation at now, restarting it if already active
func (a *Attention) Start(now time.Time) tea.Cmd {
	a.id++
	a.active = true
	a.started = now
	a.frame = 0
	return tea.Batch(tea.SetWindowTitle(a.Frames[0]), a.tick())
}

// Cancel stops the animation and restores the title
func (a *Attention) Cancel() tea.Cmd {
	if !a.active {
		return nil
	}
	a.active = false
	a.id++
	return tea.SetWindowTitle(a.Title)
}

// Update handles ticks and focus changes
func (a *Attention) Update(msg tea.Msg, now time.Time) tea.Cmd {
	switch msg := msg.(type) {
	case tea.FocusMsg:
		return a.Cancel()
	case AttentionTickMsg:
		if !a.active || msg.id != a.id {
			return nil
		}
		if now.Sub(a.started) >= AttentionDuration {
			return a.Cancel()
		}
		a.frame = (a.frame + 1) % len(a.Frames)
		return tea.Batch(tea.SetWindowTitle(a.Frames[a.frame]), a.tick())
	}
	return nil
}

func (a *Attention) tick() tea.Cmd {
	id := a.id
	return tea.Tick(attentionInterval, func(time.Time) tea.Msg {
		return AttentionTickMsg{id: id}
	})
}
