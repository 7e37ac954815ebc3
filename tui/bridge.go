package tui

import tea "github.com/charmbracelet/bubbletea"

// bridge carries notifications from store, orchestrator and console
// listeners into the Bubble Tea loop. Listeners can fire while the
// orchestrator holds its lock, so nothing here ever blocks the caller.
type bridge struct {
	ch chan tea.Msg
}

func newBridge() *bridge {
	return &bridge{ch: make(chan tea.Msg, 256)}
}

// signal sends msg if there is room. Used for refresh hints, where a dropped
// message is covered by the next one.
func (b *bridge) signal(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// deliver sends msg without dropping it, falling back to a goroutine when the
// buffer is full
func (b *bridge) deliver(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		go func() { b.ch <- msg }()
	}
}

// wait waits for the next bridged message
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
