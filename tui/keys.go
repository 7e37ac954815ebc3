package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the gallery bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Toggle    key.Binding
	Select    key.Binding
	SelectAll key.Binding
	Clear     key.Binding
	Add       key.Binding
	Start     key.Binding
	Pause     key.Binding
	Stop      key.Binding
	Rerun     key.Binding
	Delete    key.Binding
	DeleteAll key.Binding
	ExportZip key.Binding
	ExportTxt key.Binding
	Sort      key.Binding
	Edit      key.Binding
	Console   key.Binding
	CopyLogs  key.Binding
	Mute      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "add to selection")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
		Add:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "add images")),
		Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/resume")),
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Rerun:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rerun")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		DeleteAll: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected/all")),
		ExportZip: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export zip")),
		ExportTxt: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "save caption")),
		Sort:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Edit:      key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "edit caption")),
		Console:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "console")),
		CopyLogs:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy logs")),
		Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Stop, k.Rerun, k.ExportZip, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Sort},
		{k.Toggle, k.Select, k.SelectAll, k.Clear, k.Add},
		{k.Start, k.Pause, k.Stop, k.Rerun, k.Edit},
		{k.Delete, k.DeleteAll, k.ExportZip, k.ExportTxt},
		{k.Console, k.CopyLogs, k.Mute, k.Help, k.Quit},
	}
}

// editorKeys are shown while a caption is being edited
type editorKeys struct {
	Save   key.Binding
	Cancel key.Binding
}

func defaultEditorKeys() editorKeys {
	return editorKeys{
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k editorKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Save, k.Cancel} }
func (k editorKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// addKeys are shown while typing a source path
type addKeys struct{}

func (addKeys) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k addKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// consoleKeys are shown while the console is open
type consoleKeys struct {
	keyMap
}

func (k consoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "scroll")),
		k.CopyLogs,
		key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c/esc", "close")),
		k.Quit,
	}
}

func (k consoleKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
