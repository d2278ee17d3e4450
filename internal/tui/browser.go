// Package tui is the interactive history browser: a scrollable,
// searchable listing of recent files with an optional preview pane. The
// selected path is printed once the program exits, so the browser
// composes with shell pipelines.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"filehist/internal/history"
)

type mode int

const (
	modeList mode = iota
	modeSearch
)

// RefreshMsg asks the browser to re-read its store, e.g. after a
// background cleanup or an external settings reload.
type RefreshMsg struct{}

// previewLineCount bounds how much of the highlighted file is shown.
const previewLineCount = 8

// Options configures the browser.
type Options struct {
	Store *history.Store

	// ProjectScope is the scope of the invoking project; empty hides the
	// project/global toggle.
	ProjectScope history.Scope

	// StartGlobal opens on the global scope even when a project is known.
	StartGlobal bool

	ShowPreview       bool
	RemoveMissing     bool // drop entries the preview finds gone
	TimestampShow     bool
	TimestampRelative bool
	TimestampFormat   string
}

// Model is the bubbletea model for the browser.
type Model struct {
	store        *history.Store
	projectScope history.Scope
	scope        history.Scope

	entries  []history.Entry
	filtered []history.Entry
	cursor   int
	offset   int
	width    int
	height   int

	mode        mode
	searchInput textinput.Model

	showPreview   bool
	removeMissing bool
	previewPath   string
	previewLines  []string
	previewMiss   bool

	tsShow     bool
	tsRelative bool
	tsFormat   string
	now        func() time.Time

	selected string
	quitting bool
}

// NewModel builds the browser over the given store.
func NewModel(opts Options) Model {
	si := textinput.New()
	si.Placeholder = "filter paths..."
	si.CharLimit = 200

	scope := history.ScopeGlobal
	if opts.ProjectScope != "" && !opts.StartGlobal {
		scope = opts.ProjectScope
	}

	tsFormat := opts.TimestampFormat
	if tsFormat == "" {
		tsFormat = "2006-01-02 @ 15:04:05"
	}

	m := Model{
		store:         opts.Store,
		projectScope:  opts.ProjectScope,
		scope:         scope,
		searchInput:   si,
		width:         120,
		height:        30,
		showPreview:   opts.ShowPreview,
		removeMissing: opts.RemoveMissing,
		tsShow:        opts.TimestampShow,
		tsRelative:    opts.TimestampRelative,
		tsFormat:      tsFormat,
		now:           time.Now,
	}
	m.refresh()
	return m
}

// Selected returns the path chosen with enter, empty if the browser was
// dismissed.
func (m Model) Selected() string {
	return m.selected
}

// refresh re-reads the current scope from the store.
func (m *Model) refresh() {
	m.entries = m.store.List(m.scope)
	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.filtered = nil
	search := strings.ToLower(m.searchInput.Value())

	for _, e := range m.entries {
		if search != "" && !strings.Contains(strings.ToLower(e.Path), search) {
			continue
		}
		m.filtered = append(m.filtered, e)
	}

	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.clampOffset()
	m.loadPreview()
}

// loadPreview reads the head of the highlighted file. A definitively
// missing file is flagged, and removed from the history when configured.
func (m *Model) loadPreview() {
	m.previewPath = ""
	m.previewLines = nil
	m.previewMiss = false

	if !m.showPreview || len(m.filtered) == 0 {
		return
	}

	path := m.filtered[m.cursor].Path
	m.previewPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.previewMiss = true
			if m.removeMissing {
				m.store.Remove(m.scope, path)
			}
		}
		return
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > previewLineCount {
		lines = lines[:previewLineCount]
	}
	m.previewLines = lines
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case RefreshMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.updateList(msg)
		case modeSearch:
			return m.updateSearch(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
			m.loadPreview()
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.clampOffset()
			m.loadPreview()
		}

	case "home", "g":
		m.cursor = 0
		m.clampOffset()
		m.loadPreview()

	case "end", "G":
		m.cursor = max(0, len(m.filtered)-1)
		m.clampOffset()
		m.loadPreview()

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.clampOffset()
		m.loadPreview()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.filtered) {
			m.cursor = max(0, len(m.filtered)-1)
		}
		m.clampOffset()
		m.loadPreview()

	case "enter":
		if len(m.filtered) > 0 {
			m.selected = m.filtered[m.cursor].Path
			m.quitting = true
			return m, tea.Quit
		}

	case "x", "delete":
		if len(m.filtered) > 0 {
			m.store.Remove(m.scope, m.filtered[m.cursor].Path)
			m.refresh()
		}

	case "/":
		m.searchInput.Focus()
		m.mode = modeSearch

	case "tab":
		if m.projectScope != "" {
			if m.scope == history.ScopeGlobal {
				m.scope = m.projectScope
			} else {
				m.scope = history.ScopeGlobal
			}
			m.cursor = 0
			m.offset = 0
			m.refresh()
		}
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searchInput.Blur()
		m.mode = modeList
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("File History")
	info := dimStyle.Render(fmt.Sprintf("  [%s]  %d files", m.scopeLabel(), len(m.filtered)))
	b.WriteString(title + info + "\n")

	b.WriteString(m.renderHeader() + "\n")

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.filtered[i], i == m.cursor) + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	if m.showPreview {
		b.WriteString(m.renderPreview())
	}

	switch m.mode {
	case modeSearch:
		b.WriteString(statusBarStyle.Render("Filter: ") + m.searchInput.View())
	default:
		b.WriteString(m.renderHelp())
	}

	return b.String()
}

func (m Model) scopeLabel() string {
	if m.scope == history.ScopeGlobal {
		return "global"
	}
	return "project"
}

func (m Model) renderHeader() string {
	cols := []string{pad("Last access", m.timeColWidth()), "Path"}
	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(e history.Entry, selected bool) string {
	stamp := pad(m.formatStamp(e), m.timeColWidth())

	path := e.Path
	maxPath := m.width - m.timeColWidth() - 4
	if maxPath > 8 {
		runes := []rune(path)
		if len(runes) > maxPath {
			path = "..." + string(runes[len(runes)-maxPath+3:])
		}
	}

	row := stamp + " " + path
	if selected {
		return selectedStyle.Render(" " + row)
	}
	return " " + row
}

func (m Model) formatStamp(e history.Entry) string {
	if !m.tsShow || e.LastAccess.IsZero() {
		return ""
	}
	if m.tsRelative {
		return ApproximateAge(e.LastAccess.Time, m.now(), 2) + " ago"
	}
	return e.LastAccess.Format(m.tsFormat)
}

func (m Model) timeColWidth() int {
	if !m.tsShow {
		return 0
	}
	if m.tsRelative {
		return 24
	}
	if w := len(m.tsFormat) + 2; w > 12 {
		return w
	}
	return 12
}

func (m Model) renderPreview() string {
	if m.previewPath == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(previewTitleStyle.Render(m.previewPath) + "\n")
	if m.previewMiss {
		b.WriteString(missingStyle.Render("  file no longer exists") + "\n")
		return b.String()
	}
	for _, line := range m.previewLines {
		b.WriteString(previewStyle.Render("  "+line) + "\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	help := "  Enter: select  /: filter  x: delete  q: quit"
	if m.projectScope != "" {
		help = "  Enter: select  /: filter  Tab: scope  x: delete  q: quit"
	}
	return helpStyle.Render(help)
}

func (m Model) visibleRows() int {
	rows := m.height - 4
	if m.showPreview {
		rows -= previewLineCount + 1
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
