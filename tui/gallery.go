package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgtagger/batch"
	"imgtagger/credential"
	"imgtagger/export"
	"imgtagger/intake"
	"imgtagger/logging"
	"imgtagger/notify"
	"imgtagger/store"
)

// Mode is what the gallery is currently showing
type Mode int

const (
	ModeGallery Mode = iota
	ModeAdd
	ModeEdit
	ModeConsole
)

const (
	progressInterval = 500 * time.Millisecond
	toastDuration    = 4 * time.Second
	nameWidth        = 28
)

// Options wires the gallery to the rest of the program
type Options struct {
	Store        *store.Store
	Orchestrator *batch.Orchestrator
	Credentials  *credential.Store
	Console      *logging.Console
	Bell         *notify.Bell
	Logger       *slog.Logger

	// Config is used for every Start and Rerun issued from the gallery
	Config    batch.Config
	OutputDir string
	Version   string
}

// Messages
type (
	storeChangedMsg struct{}
	consoleMsg      struct{}
	progressTickMsg struct{}
	batchEventMsg   struct{ ev batch.Event }
	toastExpiredMsg struct{ id int }
	toastMsg        toast
)

type imagesLoadedMsg struct {
	items []store.NewItem
	err   error
}

type exportedMsg struct {
	path  string
	count int
	err   error
}

type toast struct {
	level slog.Level
	text  string
}

// GalleryModel is the main Bubble Tea model
type GalleryModel struct {
	store      *store.Store
	orch       *batch.Orchestrator
	creds      *credential.Store
	logConsole *logging.Console
	bell       *notify.Bell
	logger     *slog.Logger
	cfg        batch.Config
	outputDir  string
	version    string

	selection   *store.Selection
	bridge      *bridge
	unsubscribe []func()
	ctx         context.Context
	cancel      context.CancelFunc
	now         func() time.Time

	// UI components
	keys      keyMap
	editKeys  editorKeys
	help      help.Model
	spinner   spinner.Model
	progress  progress.Model
	input     textinput.Model
	editor    textarea.Model
	console   *ConsolePanel
	attention *notify.Attention

	// State
	mode          Mode
	items         []store.Item
	cursor        int
	offset        int
	sort          store.SortOrder
	editing       string
	confirmDelete bool
	ticking       bool
	status        batch.Progress
	toast         toast
	toastID       int
	width         int
	height        int
	quitting      bool
}

// NewGalleryModel creates the gallery and subscribes it to the store, the
// orchestrator and the console. Call Close when the program exits.
func NewGalleryModel(opts Options) GalleryModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerFrames,
		FPS:    time.Second / 8,
	}
	s.Style = lipgloss.NewStyle().Foreground(ColorBrand)

	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))

	ti := textinput.New()
	ti.Placeholder = "./photos, ./shots/*.png or dataset.zip"
	ti.CharLimit = 512
	ti.Width = 60

	ta := textarea.New()
	ta.Placeholder = "Caption"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(76)
	ta.SetHeight(8)

	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(ColorSubtle).Bold(true)
	h.Styles.FullKey = h.Styles.ShortKey
	h.Styles.ShortDesc = MutedStyle
	h.Styles.FullDesc = MutedStyle

	m := GalleryModel{
		store:      opts.Store,
		orch:       opts.Orchestrator,
		creds:      opts.Credentials,
		logConsole: opts.Console,
		bell:       opts.Bell,
		logger:     logger,
		cfg:        opts.Config,
		outputDir:  outputDir,
		version:    opts.Version,
		selection:  store.NewSelection(opts.Store),
		bridge:     newBridge(),
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
		keys:       defaultKeyMap(),
		editKeys:   defaultEditorKeys(),
		help:       h,
		spinner:    s,
		progress:   p,
		input:      ti,
		editor:     ta,
		console:    NewConsolePanel(opts.Console, 78, 14),
		attention:  notify.NewAttention("imgtagger"),
		width:      80,
		height:     24,
	}

	b := m.bridge
	m.unsubscribe = append(m.unsubscribe,
		opts.Store.Subscribe(func(store.Event) { b.signal(storeChangedMsg{}) }),
		opts.Orchestrator.Subscribe(func(ev batch.Event) { b.deliver(batchEventMsg{ev}) }),
	)
	if opts.Console != nil {
		opts.Console.OnAppend(func(logging.Entry) { b.signal(consoleMsg{}) })
	}

	m.refresh()
	return m
}

// Close detaches the gallery from its collaborators and cancels everything it
// started
func (m GalleryModel) Close() {
	m.cancel()
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	if m.logConsole != nil {
		m.logConsole.OnAppend(nil)
	}
	m.selection.Close()
}

// Init initializes the model
func (m GalleryModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.bridge.wait(),
		tea.SetWindowTitle("imgtagger"),
	)
}

// Update handles messages
func (m GalleryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.FocusMsg, notify.AttentionTickMsg:
		return m, m.attention.Update(msg, m.now())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeChangedMsg:
		m.refresh()
		if m.mode == ModeEdit {
			if _, ok := m.store.Get(m.editing); !ok {
				m.closeEditor()
				return m, tea.Batch(m.bridge.wait(), m.flash(slog.LevelWarn, "The image being edited was removed"))
			}
		}
		return m, m.bridge.wait()

	case consoleMsg:
		m.console.Refresh()
		return m, m.bridge.wait()

	case batchEventMsg:
		m.refresh()
		cmd := m.handleEvent(msg.ev)
		return m, tea.Batch(m.bridge.wait(), cmd)

	case progressTickMsg:
		m.status = m.orch.Progress()
		if !m.status.Running {
			m.ticking = false
			m.status = batch.Progress{Paused: m.status.Paused}
			return m, nil
		}
		return m, m.tick()

	case imagesLoadedMsg:
		if msg.err != nil {
			return m, m.flash(slog.LevelError, msg.err.Error())
		}
		added := m.store.Add(msg.items...)
		captioned := 0
		for _, it := range added {
			if it.Status.Kind() == store.KindDone {
				captioned++
			}
		}
		text := fmt.Sprintf("Added %d images", len(added))
		if captioned > 0 {
			text += fmt.Sprintf(" (%d with existing captions)", captioned)
		}
		m.refresh()
		return m, m.flash(logging.LevelSuccess, text)

	case exportedMsg:
		if msg.err != nil {
			return m, m.flash(slog.LevelError, msg.err.Error())
		}
		return m, m.flash(logging.LevelSuccess, fmt.Sprintf("Exported %d captions to %s", msg.count, msg.path))

	case toastMsg:
		m.toastID++
		m.toast = toast(msg)
		id := m.toastID
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = toast{}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.mode {
		case ModeAdd:
			return m.updateAdd(msg)
		case ModeEdit:
			return m.updateEdit(msg)
		case ModeConsole:
			return m.updateConsole(msg)
		}
		return m.updateGallery(msg)
	}

	// Forward everything else (cursor blink etc.) to the focused input
	switch m.mode {
	case ModeAdd:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case ModeEdit:
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	case ModeConsole:
		return m, m.console.Update(msg)
	}
	return m, nil
}

// updateGallery handles keys in the main view
func (m GalleryModel) updateGallery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		m.confirmDelete = false
		if key.Matches(msg, m.keys.DeleteAll) {
			cmd := m.deleteMany()
			return m, cmd
		}
		m.toast = toast{}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(m.items))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.items))

	case key.Matches(msg, m.keys.Toggle):
		if it, ok := m.current(); ok {
			m.selection.Toggle(it.ID, true)
		}
	case key.Matches(msg, m.keys.Select):
		if it, ok := m.current(); ok {
			m.selection.Toggle(it.ID, false)
		}
	case key.Matches(msg, m.keys.SelectAll):
		ids := make([]string, len(m.items))
		for i, it := range m.items {
			ids[i] = it.ID
		}
		m.selection.SelectAll(ids)
	case key.Matches(msg, m.keys.Clear):
		m.selection.Clear()

	case key.Matches(msg, m.keys.Add):
		m.mode = ModeAdd
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Start):
		return m, m.start()
	case key.Matches(msg, m.keys.Pause):
		if !m.orch.Pause() {
			return m, m.flash(slog.LevelWarn, "Nothing is running")
		}
		return m, m.flash(slog.LevelInfo, "Pausing after the current chunk")
	case key.Matches(msg, m.keys.Stop):
		if !m.orch.Stop() {
			return m, m.flash(slog.LevelWarn, "Nothing to stop")
		}
		return m, nil
	case key.Matches(msg, m.keys.Rerun):
		return m, m.rerun()

	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.current(); ok {
			m.store.Remove(it.ID)
			m.refresh()
			return m, m.flash(slog.LevelInfo, "Removed "+it.Name)
		}
	case key.Matches(msg, m.keys.DeleteAll):
		if m.store.Len() == 0 {
			return m, nil
		}
		m.confirmDelete = true
		target := "all images"
		if n := m.selection.Len(); n > 0 {
			target = fmt.Sprintf("%d selected images", n)
		}
		m.toast = toast{level: slog.LevelWarn, text: fmt.Sprintf("Press D again to remove %s", target)}
		return m, nil

	case key.Matches(msg, m.keys.ExportZip):
		return m, m.exportZip()
	case key.Matches(msg, m.keys.ExportTxt):
		return m, m.exportCaption()

	case key.Matches(msg, m.keys.Sort):
		m.sort = m.sort.Next()
		m.refresh()
	case key.Matches(msg, m.keys.Edit):
		return m.openEditor()

	case key.Matches(msg, m.keys.Console):
		m.mode = ModeConsole
		m.console.Refresh()
	case key.Matches(msg, m.keys.CopyLogs):
		return m, m.copyLogs()
	case key.Matches(msg, m.keys.Mute):
		if m.bell == nil {
			return m, nil
		}
		m.bell.SetMuted(!m.bell.Muted())
		if m.bell.Muted() {
			return m, m.flash(slog.LevelInfo, "Sound muted")
		}
		return m, m.flash(slog.LevelInfo, "Sound on")
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m GalleryModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeGallery
		m.input.Blur()
		return m, nil
	case "enter":
		source := strings.TrimSpace(m.input.Value())
		m.mode = ModeGallery
		m.input.Blur()
		if source == "" {
			return m, nil
		}
		return m, loadImages([]string{source})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m GalleryModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.editKeys.Cancel):
		m.closeEditor()
		return m, nil
	case key.Matches(msg, m.editKeys.Save):
		id := m.editing
		if err := m.store.EditResult(id, m.editor.Value()); err != nil {
			return m, m.flash(slog.LevelError, err.Error())
		}
		m.closeEditor()
		m.refresh()
		it, _ := m.store.Get(id)
		return m, m.flash(logging.LevelSuccess, "Caption saved for "+it.Name)
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m GalleryModel) updateConsole(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Console), key.Matches(msg, m.keys.Clear):
		m.mode = ModeGallery
		return m, nil
	case key.Matches(msg, m.keys.CopyLogs):
		return m, m.copyLogs()
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, m.console.Update(msg)
}

func (m GalleryModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

// handleEvent reacts to orchestrator events
func (m *GalleryModel) handleEvent(ev batch.Event) tea.Cmd {
	var cmds []tea.Cmd
	if m.bell != nil && notify.Rings(ev) > 0 {
		bell := m.bell
		cmds = append(cmds, func() tea.Msg {
			bell.Handle(ev)
			return nil
		})
	}

	switch ev.Type {
	case batch.RunStarted:
		if !m.ticking {
			m.ticking = true
			m.status = m.orch.Progress()
			cmds = append(cmds, m.tick())
		}
		text := fmt.Sprintf("Captioning %d images", ev.Total)
		if ev.Resumed {
			text = fmt.Sprintf("Resumed, %d images left", ev.Total)
		}
		cmds = append(cmds, m.flash(slog.LevelInfo, text))

	case batch.RunPaused:
		cmds = append(cmds, m.flash(slog.LevelInfo, "Paused. Press s to resume"))

	case batch.RunStopped:
		cmds = append(cmds, m.flash(slog.LevelWarn, fmt.Sprintf("Stopped, %d images returned to pending", ev.Reverted)))

	case batch.RunCompleted:
		m.status = batch.Progress{}
		cmds = append(cmds,
			m.attention.Start(m.now()),
			m.flash(logging.LevelSuccess, fmt.Sprintf("All done: %d images in %s", ev.Settled, batch.FormatDuration(ev.Elapsed))),
		)

	case batch.ItemCompleted:
		if ev.Single && ev.Kind == store.KindError {
			cmds = append(cmds, m.flash(slog.LevelError, fmt.Sprintf("%s: %s", ev.Name, ev.Message)))
		}
	}
	return tea.Batch(cmds...)
}

func (m GalleryModel) tick() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg { return progressTickMsg{} })
}

// request builds the orchestrator settings from the stored key and config
func (m GalleryModel) request() (batch.StartRequest, error) {
	req := batch.StartRequest{Config: m.cfg}
	if m.creds == nil {
		return req, nil
	}
	apiKey, _, err := m.creds.Resolve()
	if err != nil {
		return req, err
	}
	req.APIKey = apiKey
	return req, nil
}

func (m GalleryModel) start() tea.Cmd {
	req, err := m.request()
	if err != nil {
		return m.flash(slog.LevelError, err.Error())
	}
	req.Selected = m.selection.IDs()
	req.Resume = m.orch.Paused()

	if err := m.orch.Start(m.ctx, req); err != nil {
		return m.flash(slog.LevelError, describeError(err))
	}
	return nil
}

func (m GalleryModel) rerun() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	req, err := m.request()
	if err != nil {
		return m.flash(slog.LevelError, err.Error())
	}
	deferred, err := m.orch.Rerun(m.ctx, it.ID, req)
	if err != nil {
		return m.flash(slog.LevelError, describeError(err))
	}
	if deferred {
		return m.flash(slog.LevelInfo, fmt.Sprintf("%s queued until the current run finishes", it.Name))
	}
	return nil
}

func (m *GalleryModel) deleteMany() tea.Cmd {
	var n int
	if ids := m.selection.IDs(); len(ids) > 0 {
		n = m.store.RemoveIDs(ids)
	} else {
		n = m.store.Reset()
	}
	m.refresh()
	return m.flash(slog.LevelInfo, fmt.Sprintf("Removed %d images", n))
}

func (m GalleryModel) exportZip() tea.Cmd {
	items := export.Select(m.store.List(), m.selection.IDs())
	pairs := export.Pairs(items)
	if len(pairs) == 0 {
		return m.flash(slog.LevelWarn, "No captions to export")
	}
	path := filepath.Join(m.outputDir, export.ArchiveName(m.now()))
	logger := m.logger
	return func() tea.Msg {
		if err := export.WriteZipFile(path, pairs); err != nil {
			return exportedMsg{err: err}
		}
		logger.Info("Exported archive", "path", path, "captions", len(pairs))
		return exportedMsg{path: path, count: len(pairs)}
	}
}

func (m GalleryModel) exportCaption() tea.Cmd {
	it, ok := m.current()
	if !ok {
		return nil
	}
	if it.Result() == "" {
		return m.flash(slog.LevelWarn, it.Name+" has no caption yet")
	}
	dir := m.outputDir
	return func() tea.Msg {
		path, err := export.WriteCaption(dir, it)
		if err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, count: 1}
	}
}

func (m GalleryModel) copyLogs() tea.Cmd {
	if m.logConsole == nil {
		return nil
	}
	if err := m.logConsole.Copy(); err != nil {
		return m.flash(slog.LevelError, err.Error())
	}
	return m.flash(logging.LevelSuccess, "Logs copied to clipboard")
}

func (m GalleryModel) openEditor() (tea.Model, tea.Cmd) {
	it, ok := m.current()
	if !ok {
		return m, nil
	}
	if it.Status.Kind() != store.KindDone {
		return m, m.flash(slog.LevelWarn, "Only finished captions can be edited")
	}
	m.mode = ModeEdit
	m.editing = it.ID
	m.editor.SetValue(it.Result())
	cmd := m.editor.Focus()
	return m, cmd
}

func (m *GalleryModel) closeEditor() {
	m.mode = ModeGallery
	m.editing = ""
	m.editor.Blur()
	m.editor.Reset()
}

// flash logs text and shows it in the status line for a few seconds
func (m GalleryModel) flash(level slog.Level, text string) tea.Cmd {
	m.logger.Log(context.Background(), level, text)
	return func() tea.Msg { return toastMsg{level: level, text: text} }
}

// refresh re-reads the store and keeps the cursor on the same item if it
// still exists
func (m *GalleryModel) refresh() {
	var currentID string
	if it, ok := m.current(); ok {
		currentID = it.ID
	}
	m.items = store.Sorted(m.store.List(), m.sort)
	if currentID != "" {
		for i, it := range m.items {
			if it.ID == currentID {
				m.cursor = i
				break
			}
		}
	}
	m.moveCursor(0)
}

func (m GalleryModel) current() (store.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return store.Item{}, false
	}
	return m.items[m.cursor], true
}

func (m *GalleryModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	rows := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if maxOffset := max(len(m.items)-rows, 0); m.offset > maxOffset {
		m.offset = maxOffset
	}
}

func (m *GalleryModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.progress.Width = min(max(width-40, 10), 60)
	m.help.Width = width
	m.input.Width = max(width-10, 20)
	m.editor.SetWidth(max(width-4, 20))
	m.console.SetSize(max(width-2, 20), max(height-8, 5))
	m.moveCursor(0)
}

// listHeight is how many rows the image list gets
func (m GalleryModel) listHeight() int {
	return max(m.height-15, 3)
}

func loadImages(sources []string) tea.Cmd {
	return func() tea.Msg {
		items, err := intake.Load(sources)
		return imagesLoadedMsg{items: items, err: err}
	}
}

// describeError turns orchestrator errors into user-facing text
func describeError(err error) string {
	switch {
	case errors.Is(err, batch.ErrNoCredential):
		return "No API key configured. Run `imgtagger key set` or set GEMINI_API_KEY"
	case errors.Is(err, batch.ErrNothingToProcess):
		return "Nothing to process: every image is already captioned or in progress"
	case errors.Is(err, batch.ErrAlreadyRunning):
		return "A run is already in progress"
	case errors.Is(err, batch.ErrItemBusy):
		return "That image is already being captioned"
	}
	return err.Error()
}

// View renders the UI
func (m GalleryModel) View() string {
	if m.quitting {
		return MutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.mode {
	case ModeConsole:
		b.WriteString(TitleStyle.Render("Console"))
		b.WriteString("\n")
		b.WriteString(m.console.View())
	case ModeEdit:
		b.WriteString(m.renderEditor())
	default:
		b.WriteString(m.renderList())
		b.WriteString("\n")
		if m.mode == ModeAdd {
			b.WriteString(m.renderAdd())
		} else {
			b.WriteString(m.renderDetail())
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m GalleryModel) renderHeader() string {
	parts := []string{Header(m.version)}
	parts = append(parts, CountsLine(m.store.Counts()))
	if n := m.selection.Len(); n > 0 {
		parts = append(parts, BadgeStyle.Render(fmt.Sprintf("%d selected", n)))
	}
	if m.sort != store.SortNone {
		parts = append(parts, SubtitleStyle.Render("sort: "+m.sort.String()))
	}
	if m.bell != nil && m.bell.Muted() {
		parts = append(parts, MutedStyle.Render("muted"))
	}
	return strings.Join(parts, "  ")
}

func (m GalleryModel) renderList() string {
	if len(m.items) == 0 {
		return Card("No images yet", "Press i to add a folder, glob or ZIP archive,\nor pass paths on the command line.", min(m.width-2, 70))
	}

	rows := m.listHeight()
	end := min(m.offset+rows, len(m.items))
	captionWidth := max(m.width-nameWidth-34, 10)

	var lines []string
	for i := m.offset; i < end; i++ {
		it := m.items[i]

		cursor := "  "
		if i == m.cursor {
			cursor = CursorStyle.Render("> ")
		}
		check := MutedStyle.Render("[ ]")
		if m.selection.Has(it.ID) {
			check = CursorStyle.Render("[x]")
		}

		name := lipgloss.NewStyle().Width(nameWidth).Render(truncate(it.Name, nameWidth))
		if i == m.cursor {
			name = lipgloss.NewStyle().Width(nameWidth).Bold(true).Foreground(ColorPrimary).Render(truncate(it.Name, nameWidth))
		}

		var summary string
		switch it.Status.Kind() {
		case store.KindDone:
			summary = BodyStyle.Render(truncate(it.Result(), captionWidth))
		case store.KindError:
			summary = ErrorStyle.Render(truncate(it.Error(), captionWidth))
		case store.KindProcessing:
			summary = WarningStyle.Render(m.spinner.View())
		default:
			summary = MutedStyle.Render(truncate(it.Preview, captionWidth))
		}

		line := cursor + check + " " + StatusIcon(it.Status.Kind()) + " " + name + " " + summary
		if m.selection.Has(it.ID) {
			line = SelectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}

	if len(m.items) > rows {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  %d-%d of %d", m.offset+1, end, len(m.items))))
	}
	return strings.Join(lines, "\n")
}

func (m GalleryModel) renderDetail() string {
	it, ok := m.current()
	if !ok {
		return ""
	}
	width := max(m.width-4, 20)

	title := StatusBadge(it.Status.Kind()) + " " + lipgloss.NewStyle().Bold(true).Render(it.Name)
	var body string
	switch it.Status.Kind() {
	case store.KindDone:
		body = it.Result()
	case store.KindError:
		body = ErrorStyle.Render(it.Error())
	case store.KindProcessing:
		body = m.spinner.View() + " " + MutedStyle.Render("Waiting for Gemini...")
	default:
		body = MutedStyle.Render("Not captioned yet")
	}
	body = lipgloss.NewStyle().Width(width - 4).MaxHeight(5).Render(body)

	return BoxStyle.Width(width).Render(title + "  " + MutedStyle.Render(it.Preview) + "\n" + body)
}

func (m GalleryModel) renderAdd() string {
	return FocusedBoxStyle.Render(
		TitleStyle.Render("Add images") + "\n" +
			m.input.View() + "\n" +
			MutedStyle.Render("Folder, file, glob pattern or .zip archive. Matching .txt files are imported as captions."),
	)
}

func (m GalleryModel) renderEditor() string {
	name := ""
	if it, ok := m.store.Get(m.editing); ok {
		name = it.Name
	}
	return TitleStyle.Render("Edit caption: "+name) + "\n" + m.editor.View()
}

func (m GalleryModel) renderStatus() string {
	var line string
	switch {
	case m.status.Running:
		pct := 0.0
		if m.status.Total > 0 {
			pct = float64(m.status.Done) / float64(m.status.Total)
		}
		eta := "estimating..."
		if m.status.Known {
			eta = "~" + batch.FormatDuration(m.status.Remaining) + " left"
		}
		line = m.spinner.View() + " " + m.progress.ViewAs(pct) + " " +
			BodyStyle.Render(fmt.Sprintf("%d/%d", m.status.Done, m.status.Total)) + " " +
			MutedStyle.Render(fmt.Sprintf("%s elapsed, %s", batch.FormatDuration(m.status.Elapsed), eta))
	case m.orch.Paused():
		line = WarningStyle.Render("Paused") + MutedStyle.Render(" - press s to resume or x to discard")
	}

	if m.toast.text != "" {
		if line != "" {
			line += "\n"
		}
		line += toastStyle(m.toast.level).Render(m.toast.text)
	}
	return line
}

func toastStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return ErrorStyle
	case level >= slog.LevelWarn:
		return WarningStyle
	case level == logging.LevelSuccess:
		return SuccessStyle
	default:
		return InfoStyle
	}
}

func (m GalleryModel) renderHelp() string {
	switch m.mode {
	case ModeEdit:
		return m.help.View(m.editKeys)
	case ModeAdd:
		return m.help.View(addKeys{})
	case ModeConsole:
		return m.help.View(consoleKeys{m.keys})
	}
	return m.help.View(m.keys)
}

// Getter methods for external access
func (m GalleryModel) IsQuitting() bool    { return m.quitting }
func (m GalleryModel) Mode() Mode          { return m.mode }
func (m GalleryModel) Items() []store.Item { return m.items }

// RunGallery runs the gallery until the user quits, loading sources first.
// Any run still active is stopped before returning.
func RunGallery(opts Options, sources []string) error {
	model := NewGalleryModel(opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if len(sources) > 0 {
		load := loadImages(sources)
		go func() { p.Send(load()) }()
	}

	_, err := p.Run()
	opts.Orchestrator.Stop()
	opts.Orchestrator.Wait()
	return err
}
