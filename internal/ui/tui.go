// Package ui provides the terminal interface.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nibzard/todos-go/internal/logging"
	"github.com/nibzard/todos-go/internal/todo"
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	save     func() error
	logger   *log.Logger
	dataPath string
}

// WithSave sets a callback invoked after every mutation.
func WithSave(save func() error) TUIOption {
	return func(c *tuiConfig) {
		c.save = save
	}
}

// WithLogger sets the logger for UI events.
func WithLogger(logger *log.Logger) TUIOption {
	return func(c *tuiConfig) {
		c.logger = logger
	}
}

// WithDataPath sets the file path shown in the footer.
func WithDataPath(path string) TUIOption {
	return func(c *tuiConfig) {
		c.dataPath = path
	}
}

// RunTUI starts the TUI over store and blocks until the user quits or ctx
// is cancelled.
func RunTUI(ctx context.Context, store *todo.Store, opts ...TUIOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newTUIModel(store, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// filter selects which tasks the list shows.
type filter int

const (
	filterAll filter = iota
	filterReady
	filterBlocked
	filterDone
)

func (f filter) String() string {
	switch f {
	case filterReady:
		return "ready"
	case filterBlocked:
		return "blocked"
	case filterDone:
		return "done"
	default:
		return "all"
	}
}

func (f filter) match(v todo.TaskView) bool {
	switch f {
	case filterReady:
		return !v.Done && !v.IsBlocked
	case filterBlocked:
		return !v.Done && v.IsBlocked
	case filterDone:
		return v.Done
	default:
		return true
	}
}

type tuiModel struct {
	store    *todo.Store
	save     func() error
	log      *log.Logger
	dataPath string

	views    []todo.TaskView
	cursor   int
	filter   filter
	input    []rune
	editing  bool
	showHelp bool
	status   string
}

func newTUIModel(store *todo.Store, opts ...TUIOption) *tuiModel {
	c := &tuiConfig{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	m := &tuiModel{
		store:    store,
		save:     c.save,
		log:      c.logger,
		dataPath: c.dataPath,
	}
	m.refresh()
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.editing {
		m.updateInput(key)
		return m, nil
	}

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "a", "i", "tab":
		m.editing = true
		m.status = ""
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.views)-1 {
			m.cursor++
		}
	case " ", "x":
		m.toggleSelected()
	case "d", "delete":
		m.deleteSelected()
	case "r", "f5":
		m.refresh()
	case "h", "?":
		m.showHelp = !m.showHelp
	case "0":
		m.setFilter(filterAll)
	case "1":
		m.setFilter(filterReady)
	case "2":
		m.setFilter(filterBlocked)
	case "3":
		m.setFilter(filterDone)
	}
	return m, nil
}

func (m *tuiModel) updateInput(key tea.KeyMsg) {
	switch key.Type {
	case tea.KeyEnter:
		m.submit()
	case tea.KeyEsc, tea.KeyTab:
		m.editing = false
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, key.Runes...)
	}
}

// submit parses the input line and creates a task from it.
func (m *tuiModel) submit() {
	draft, ok := todo.ParseDraft(string(m.input), m.store)
	if !ok {
		m.status = "nothing to add"
		return
	}
	id, err := m.store.Create(draft.Input())
	if err != nil {
		m.status = err.Error()
		return
	}
	m.input = m.input[:0]
	m.status = fmt.Sprintf("added #%d", id)
	m.log.Info("tui: task added", "id", id)
	m.persist()
	m.refresh()
	m.selectID(id)
}

func (m *tuiModel) toggleSelected() {
	v, ok := m.selected()
	if !ok {
		return
	}
	found, err := m.store.ToggleGated(v.ID)
	if !found {
		m.status = fmt.Sprintf("task #%d not found", v.ID)
		m.refresh()
		return
	}
	if err != nil {
		m.status = fmt.Sprintf("task #%d is blocked", v.ID)
		m.refresh()
		return
	}
	m.status = ""
	m.persist()
	m.refresh()
	m.selectID(v.ID)
}

func (m *tuiModel) deleteSelected() {
	v, ok := m.selected()
	if !ok {
		return
	}
	if m.store.Delete(v.ID) {
		m.status = fmt.Sprintf("deleted #%d", v.ID)
		m.log.Info("tui: task deleted", "id", v.ID)
		m.persist()
	}
	m.refresh()
}

func (m *tuiModel) persist() {
	if m.save == nil {
		return
	}
	if err := m.save(); err != nil {
		m.log.Error("tui: save failed", "error", err)
		m.status = "save failed: " + err.Error()
	}
}

func (m *tuiModel) setFilter(f filter) {
	m.filter = f
	m.refresh()
}

// refresh reloads the visible views and clamps the cursor.
func (m *tuiModel) refresh() {
	m.views = m.views[:0]
	for _, v := range m.store.List() {
		if m.filter.match(v) {
			m.views = append(m.views, v)
		}
	}
	if m.cursor >= len(m.views) {
		m.cursor = len(m.views) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *tuiModel) selected() (todo.TaskView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.views) {
		return todo.TaskView{}, false
	}
	return m.views[m.cursor], true
}

func (m *tuiModel) selectID(id int) {
	for i, v := range m.views {
		if v.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.dataPath)
		return b.String()
	}

	writeOverview(&b, m.store.List())
	m.writeInput(&b)

	if m.filter != filterAll {
		b.WriteString(fmt.Sprintf("Filter: %s (0 to clear)\n\n", m.filter))
	}
	if len(m.views) == 0 {
		b.WriteString("  No tasks.\n")
	}
	for i, v := range m.views {
		marker := "  "
		if i == m.cursor && !m.editing {
			marker = "> "
		}
		b.WriteString(marker + FormatLine(v) + "\n")
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}
	writeFooter(&b, m.dataPath)
	return b.String()
}

func (m *tuiModel) writeInput(b *strings.Builder) {
	if m.editing {
		b.WriteString("New task: " + string(m.input) + "_\n")
		b.WriteString("  enter to add, esc to cancel, (#1, #2) to add prerequisites\n\n")
		return
	}
	b.WriteString("Press a to add a task\n\n")
}

func writeTitle(b *strings.Builder) {
	title := "todos"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeOverview(b *strings.Builder, views []todo.TaskView) {
	var ready, blocked, done int
	for _, v := range views {
		switch {
		case v.Done:
			done++
		case v.IsBlocked:
			blocked++
		default:
			ready++
		}
	}
	b.WriteString(fmt.Sprintf("  Ready: %d  Blocked: %d  Done: %d\n\n", ready, blocked, done))
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  a, i, tab    Add a task\n")
	b.WriteString("  up/k down/j  Move\n")
	b.WriteString("  space, x     Toggle done\n")
	b.WriteString("  d            Delete\n")
	b.WriteString("  r, F5        Refresh\n")
	b.WriteString("  1 2 3        Show ready, blocked or done\n")
	b.WriteString("  0            Clear filter\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
}

func writeFooter(b *strings.Builder, dataPath string) {
	if dataPath != "" {
		b.WriteString(fmt.Sprintf("Press h for help | q to quit | %s\n", dataPath))
		return
	}
	b.WriteString("Press h for help | q to quit\n")
}

// FormatLine renders one task as "[x] #1 description (#2, #3) BLOCKED".
func FormatLine(v todo.TaskView) string {
	check := "[ ]"
	if v.Done {
		check = "[x]"
	}
	line := fmt.Sprintf("%s #%d %s", check, v.ID, v.Description)
	if len(v.DependsOn) > 0 {
		refs := make([]string, len(v.DependsOn))
		for i, id := range v.DependsOn {
			refs[i] = fmt.Sprintf("#%d", id)
		}
		line += " (" + strings.Join(refs, ", ") + ")"
	}
	if v.IsBlocked && !v.Done {
		line += " BLOCKED"
	}
	return line
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
