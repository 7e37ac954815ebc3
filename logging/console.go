package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// DefaultConsoleSize is how many entries the console keeps
const DefaultConsoleSize = 500

// Entry is one console line
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// String formats the entry as "[15:04:05] [LEVEL] message"
func (e Entry) String() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Time.Format("15:04:05"), strings.ToUpper(LevelName(e.Level)), e.Message)
}

// Console is a bounded in-memory log, also usable as a slog.Handler.
// Attributes are folded into the message as key=value pairs.
type Console struct {
	mu       sync.Mutex
	entries  []Entry
	start    int
	size     int
	level    slog.Level
	attrs    []slog.Attr
	onAppend func(Entry)
	shared   *Console
}

// NewConsole keeps the last size entries; size <= 0 uses DefaultConsoleSize
func NewConsole(size int) *Console {
	if size <= 0 {
		size = DefaultConsoleSize
	}
	return &Console{size: size}
}

// OnAppend registers a callback run after each entry is recorded
func (c *Console) OnAppend(fn func(Entry)) {
	root := c.root()
	root.mu.Lock()
	root.onAppend = fn
	root.mu.Unlock()
}

func (c *Console) root() *Console {
	if c.shared != nil {
		return c.shared
	}
	return c
}

// Append records an entry, dropping the oldest when full
func (c *Console) Append(e Entry) {
	root := c.root()
	root.mu.Lock()
	if len(root.entries) < root.size {
		root.entries = append(root.entries, e)
	} else {
		root.entries[root.start] = e
		root.start = (root.start + 1) % root.size
	}
	fn := root.onAppend
	root.mu.Unlock()

	if fn != nil {
		fn(e)
	}
}

// Entries returns the recorded entries, oldest first
func (c *Console) Entries() []Entry {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	out := make([]Entry, 0, len(root.entries))
	out = append(out, root.entries[root.start:]...)
	out = append(out, root.entries[:root.start]...)
	return out
}

// Len returns the number of recorded entries
func (c *Console) Len() int {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return len(root.entries)
}

// Clear drops every entry
func (c *Console) Clear() {
	root := c.root()
	root.mu.Lock()
	root.entries = nil
	root.start = 0
	root.mu.Unlock()
}

// Text renders every entry, one per line
func (c *Console) Text() string {
	entries := c.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// Copy puts the console text on the system clipboard
func (c *Console) Copy() error {
	if c.Len() == 0 {
		return fmt.Errorf("console is empty")
	}
	if err := clipboard.WriteAll(c.Text()); err != nil {
		return fmt.Errorf("failed to copy logs: %w", err)
	}
	return nil
}

// Enabled implements slog.Handler
func (c *Console) Enabled(_ context.Context, l slog.Level) bool {
	return l >= c.root().level
}

// Handle implements slog.Handler
func (c *Console) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}
	for _, a := range c.attrs {
		write(a)
	}
	r.Attrs(write)

	c.Append(Entry{Time: r.Time, Level: r.Level, Message: sb.String()})
	return nil
}

// WithAttrs implements slog.Handler
func (c *Console) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Console{
		shared: c.root(),
		attrs:  append(append([]slog.Attr(nil), c.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (c *Console) WithGroup(string) slog.Handler {
	return c
}
