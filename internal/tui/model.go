package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdonaldj/esar/internal/config"
	"github.com/mcdonaldj/esar/internal/ports"
)

// View represents the current view state
type View int

const (
	ModsView   View = iota
	PickerView // Browsing for archives or the game directory
)

// pickMode says what the file picker is choosing.
type pickMode int

const (
	pickArchives pickMode = iota
	pickGameDir
)

// Model is the main TUI model
type Model struct {
	service  ports.TUIService
	config   *config.Config
	view     View
	width    int
	height   int
	quitting bool

	// Mods view
	mods      []string
	modCursor int

	// Picker view
	picker   filepicker.Model
	pickMode pickMode
	startDir string

	// Archives chosen for the next installation, in selection order
	selected []string

	// In-flight installations keyed by run id
	pending map[string][]string
	spinner spinner.Model

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Back    key.Binding
	GameDir key.Binding
	Add     key.Binding
	Install key.Binding
	Clear   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	GameDir: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "game dir"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add archives"),
	),
	Install: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "install"),
	),
	Clear: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear selection"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "list mods"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModelWithService loads the config and the installed mods through svc.
func NewModelWithService(svc ports.TUIService) (*Model, error) {
	cfg, err := svc.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	m := NewModelWithConfig(cfg, svc)
	m.loadMods()
	if cfg.GameDir == "" {
		m.statusMsg = "No game directory set. Press g to choose one."
	}
	return m, nil
}

// NewModelWithConfig creates a model without touching the filesystem.
func NewModelWithConfig(cfg *config.Config, svc ports.TUIService) *Model {
	startDir, err := os.UserHomeDir()
	if err != nil {
		startDir = "."
	}
	return &Model{
		service:  svc,
		config:   cfg,
		view:     ModsView,
		startDir: startDir,
		pending:  make(map[string][]string),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *Model) loadMods() {
	m.mods = m.service.ListMods(m.config)
	if m.modCursor >= len(m.mods) {
		m.modCursor = max(len(m.mods)-1, 0)
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

type statusMsg struct {
	msg string
	err bool
}

type installDoneMsg struct {
	result ports.TUIInstallResult
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == PickerView {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}
		return m, nil

	case statusMsg:
		m.statusMsg = msg.msg
		m.statusErr = msg.err
		return m, nil

	case installDoneMsg:
		m.finishInstall(msg.result)
		return m, nil

	case spinner.TickMsg:
		if len(m.pending) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.view == PickerView {
			return m.updatePicker(msg)
		}

		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.GameDir):
			return m, m.openPicker(pickGameDir)

		case key.Matches(msg, keys.Add):
			return m, m.openPicker(pickArchives)

		case key.Matches(msg, keys.Install):
			return m, m.startInstall()

		case key.Matches(msg, keys.Clear):
			m.selected = nil

		case key.Matches(msg, keys.Refresh):
			m.loadMods()
		}
		return m, nil
	}

	// Directory listings and errors from the file picker
	if m.view == PickerView {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Back):
		m.view = ModsView
		return m, nil

	case m.pickMode == pickArchives && key.Matches(msg, keys.Install):
		m.view = ModsView
		return m, m.startInstall()
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		// The picker keeps its last selection; clear it so it is not reported twice
		m.picker.Path = ""
		switch m.pickMode {
		case pickGameDir:
			m.setGameDir(path)
		case pickArchives:
			m.toggleArchive(path)
		}
		return m, cmd
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.statusMsg = fmt.Sprintf("%s is not a zip archive", filepath.Base(path))
		m.statusErr = true
	}
	return m, cmd
}

func (m *Model) openPicker(mode pickMode) tea.Cmd {
	fp := filepicker.New()
	fp.CurrentDirectory = m.startDir
	switch mode {
	case pickGameDir:
		fp.DirAllowed = true
		fp.FileAllowed = false
		if m.config.GameDir != "" {
			fp.CurrentDirectory = filepath.Dir(m.config.GameDir)
		}
	case pickArchives:
		fp.DirAllowed = false
		fp.FileAllowed = true
		fp.AllowedTypes = []string{".zip"}
	}
	if m.height > 0 {
		fp, _ = fp.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height - 8})
	}

	m.picker = fp
	m.pickMode = mode
	m.view = PickerView
	return m.picker.Init()
}

func (m *Model) setGameDir(dir string) {
	if err := m.service.SetGameDir(m.config, dir); err != nil {
		m.statusMsg = fmt.Sprintf("Cannot use %s: %v", dir, err)
		m.statusErr = true
		return
	}
	m.view = ModsView
	m.statusMsg = fmt.Sprintf("✓ Game directory set to %s", dir)
	m.statusErr = false
	m.loadMods()
}

func (m *Model) toggleArchive(path string) {
	for i, p := range m.selected {
		if p == path {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			m.statusMsg = fmt.Sprintf("Removed %s", filepath.Base(path))
			m.statusErr = false
			return
		}
	}
	m.selected = append(m.selected, path)
	m.statusMsg = fmt.Sprintf("Added %s (%d selected)", filepath.Base(path), len(m.selected))
	m.statusErr = false
}

func (m *Model) startInstall() tea.Cmd {
	switch {
	case m.config.GameDir == "":
		m.statusMsg = "No game directory set. Press g to choose one."
		m.statusErr = true
		return nil
	case len(m.selected) == 0:
		m.statusMsg = "No archives selected. Press a to add some."
		m.statusErr = true
		return nil
	case len(m.pending) > 0:
		m.statusMsg = "An installation is already running"
		m.statusErr = true
		return nil
	}

	archives := m.selected
	m.selected = nil
	runID, done := m.service.StartInstall(m.config, archives)
	m.pending[runID] = archives
	m.statusMsg = ""
	m.statusErr = false

	wait := func() tea.Msg {
		return installDoneMsg{result: <-done}
	}
	return tea.Batch(wait, m.spinner.Tick)
}

func (m *Model) finishInstall(r ports.TUIInstallResult) {
	delete(m.pending, r.RunID)

	if r.Error != nil {
		msg := fmt.Sprintf("✗ Installation failed: %v", r.Error)
		if r.CleanupErr != nil {
			msg += fmt.Sprintf(" (cleanup: %v)", r.CleanupErr)
		}
		if r.DiaryPath != "" {
			msg += fmt.Sprintf("\n  Details written to %s", r.DiaryPath)
		}
		m.statusMsg = msg
		m.statusErr = true
		m.loadMods()
		return
	}

	m.mods = r.Installed
	if m.modCursor >= len(m.mods) {
		m.modCursor = max(len(m.mods)-1, 0)
	}
	switch len(r.Moved) {
	case 0:
		m.statusMsg = "Installation finished: no mods found in the selected archives"
	case 1:
		m.statusMsg = "✓ Installed 1 mod: " + r.Moved[0]
	default:
		m.statusMsg = fmt.Sprintf("✓ Installed %d mods: %s", len(r.Moved), strings.Join(r.Moved, ", "))
	}
	m.statusErr = false
}

func (m *Model) moveCursor(delta int) {
	m.modCursor += delta
	if m.modCursor >= len(m.mods) {
		m.modCursor = len(m.mods) - 1
	}
	if m.modCursor < 0 {
		m.modCursor = 0
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case ModsView:
		content = m.renderModsView()
	case PickerView:
		content = m.renderPickerView()
	}

	return appStyle.Render(content)
}

func (m *Model) renderModsView() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render(" 🧟 esar ")
	b.WriteString(title)
	b.WriteString("\n\n")

	gameDir := m.config.GameDir
	if gameDir == "" {
		gameDir = "(not set)"
	}
	b.WriteString(dimStyle.Render("  Game directory: " + gameDir))
	b.WriteString("\n\n")

	// Header
	header := fmt.Sprintf("  INSTALLED MODS (%d)", len(m.mods))
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")

	// List items
	visibleHeight := m.height - 14 - len(m.selected) - len(m.pending)
	if visibleHeight < 5 {
		visibleHeight = 5
	}

	start := 0
	if m.modCursor >= visibleHeight {
		start = m.modCursor - visibleHeight + 1
	}

	if len(m.mods) == 0 {
		b.WriteString(dimStyle.Render("  No mods installed"))
		b.WriteString("\n")
	}
	for i := start; i < len(m.mods) && i < start+visibleHeight; i++ {
		cursor := "  "
		style := normalStyle
		if i == m.modCursor {
			cursor = "▸ "
			style = selectedStyle
		}
		b.WriteString(style.Render(cursor + truncate(m.mods[i], 46)))
		b.WriteString("\n")
	}

	if len(m.selected) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  SELECTED ARCHIVES (%d)", len(m.selected))))
		b.WriteString("\n")
		for _, p := range m.selected {
			b.WriteString(normalStyle.Render("  " + truncate(filepath.Base(p), 46)))
			b.WriteString("\n")
		}
	}

	if len(m.pending) > 0 {
		b.WriteString("\n")
		ids := make([]string, 0, len(m.pending))
		for id := range m.pending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			line := fmt.Sprintf("%s Installing %s (run %s)",
				m.spinner.View(), archiveCount(len(m.pending[id])), shortID(id))
			b.WriteString(pendingStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	// Status
	b.WriteString("\n")
	m.renderStatus(&b)

	// Help
	help := "[↑/↓] navigate  [g] game dir  [a] add archives  [i] install  [x] clear  [l] list  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderPickerView() string {
	var b strings.Builder

	heading := " 📁 Choose the game directory "
	if m.pickMode == pickArchives {
		heading = " 📦 Choose mod archives "
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  " + m.picker.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.picker.View())
	b.WriteString("\n")

	if m.pickMode == pickArchives {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d selected", len(m.selected))))
		b.WriteString("\n")
	}

	// Status
	b.WriteString("\n")
	m.renderStatus(&b)

	// Help
	help := "[↑/↓] navigate  [enter] select  [←] up  [esc] back"
	if m.pickMode == pickArchives {
		help = "[↑/↓] navigate  [enter] toggle  [←] up  [i] install  [esc] back"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderStatus(b *strings.Builder) {
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")
}

// Run starts the TUI
func Run(svc ports.TUIService) error {
	m, err := NewModelWithService(svc)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Helper functions
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func archiveCount(n int) string {
	if n == 1 {
		return "1 archive"
	}
	return fmt.Sprintf("%d archives", n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
