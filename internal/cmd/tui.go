package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"dbnav/pkg/catalog"
	"dbnav/pkg/config"
)

var (
	pathColor  = lipgloss.Color("3")
	infoColor  = lipgloss.Color("244")
	errorColor = lipgloss.Color("1")
)

var (
	pathStyle  = lipgloss.NewStyle().Foreground(pathColor)
	infoStyle  = lipgloss.NewStyle().Foreground(infoColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)
)

type dbItem struct{ name string }

func (d dbItem) Title() string       { return d.name }
func (d dbItem) Description() string { return "database" }
func (d dbItem) FilterValue() string { return d.name }

type tableItem struct{ name string }

func (t tableItem) Title() string       { return t.name }
func (t tableItem) Description() string { return "table" }
func (t tableItem) FilterValue() string { return t.name }

// tablesLoadedMsg carries the result of a table listing. back marks a
// return from the rows level, which restores the previous selection
// instead of jumping to the top.
type tablesLoadedMsg struct {
	db    string
	names []string
	back  bool
	err   error
}

// rowsLoadedMsg carries the fetched content of one table.
type rowsLoadedMsg struct {
	db    string
	table string
	docs  []catalog.Document
	err   error
}

// browseModel drives the three navigation levels. Exactly one remote
// call is in flight at a time; while loading, key input is dropped so a
// transition either fully applies (mode, names and list together in the
// message handler) or not at all.
type browseModel struct {
	store catalog.Store
	opts  config.Options
	log   *zap.Logger

	mode      string // "databases", "tables", or "rows"
	databases list.Model
	tables    list.Model
	rows      viewport.Model

	dbName     string // open database, valid in "tables" and "rows"
	tableName  string // open table, valid in "rows"
	tableIndex int    // table selection to restore when leaving "rows"
	rowCount   int

	loading   bool
	status    string
	statusErr bool
	width     int
	height    int
}

func newBrowseModel(store catalog.Store, databases []string, opts config.Options, log *zap.Logger) browseModel {
	// Default size avoids zero-height rendering before the first resize
	// event arrives.
	defaultWidth, defaultHeight := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if w > 0 {
			defaultWidth = w
		}
		if h > 0 {
			defaultHeight = h
		}
	}

	delegate := newItemDelegate(opts.Compact)
	dl := list.New(toDBItems(databases), delegate, defaultWidth, defaultHeight-2)
	dl.SetShowTitle(false)
	dl.SetFilteringEnabled(true)
	dl.SetShowHelp(false)
	dl.SetShowStatusBar(false)

	tl := list.New(nil, delegate, defaultWidth, defaultHeight-2)
	tl.SetFilteringEnabled(true)
	tl.SetShowHelp(false)
	tl.SetShowStatusBar(false)
	tl.Styles.Title = pathStyle

	vp := viewport.New(defaultWidth, defaultHeight-2)

	return browseModel{
		store:     store,
		opts:      opts,
		log:       log,
		mode:      "databases",
		databases: dl,
		tables:    tl,
		rows:      vp,
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

func newItemDelegate(compact bool) list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	if compact {
		d.SetHeight(1)
		d.SetSpacing(0)
		d.ShowDescription = false
		return d
	}
	d.SetHeight(2)
	d.SetSpacing(0)
	d.ShowDescription = true
	return d
}

func toDBItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, n := range names {
		items[i] = dbItem{name: n}
	}
	return items
}

func toTableItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, n := range names {
		items[i] = tableItem{name: n}
	}
	return items
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.databases.SetSize(msg.Width, msg.Height-2)
		m.tables.SetSize(msg.Width, msg.Height-2)
		m.rows.Width = msg.Width
		m.rows.Height = msg.Height - 2
		return m, nil

	case tablesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			// Failed transition: level, names and rendered list all stay
			// as they were.
			m.setError(msg.err)
			return m, nil
		}
		m.dbName = msg.db
		m.mode = "tables"
		m.tables.SetItems(toTableItems(msg.names))
		m.tables.Title = "/" + msg.db
		if msg.back {
			m.tables.Select(clamp(m.tableIndex, 0, len(msg.names)-1))
		} else {
			m.tables.Select(0)
		}
		m.setInfo("")
		if len(msg.names) == 0 {
			m.setInfo("no tables")
		}
		m.log.Debug("opened database", zap.String("db", msg.db), zap.Int("tables", len(msg.names)))
		return m, nil

	case rowsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.mode = "rows"
		m.tableName = msg.table
		m.rowCount = len(msg.docs)
		m.rows.SetContent(docsContent(msg.docs))
		m.rows.GotoTop()
		m.setInfo("")
		m.log.Debug("opened table", zap.String("table", msg.db+"."+msg.table), zap.Int("rows", m.rowCount))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// A fetch suspends the loop: no input until it resolves.
		if m.loading {
			return m, nil
		}
		// While filtering, route every key through the active list: the
		// list itself accepts the filter on Enter and cancels it on Esc,
		// and the full item set stays underneath.
		if m.mode == "databases" && m.databases.FilterState() == list.Filtering {
			m.databases, cmd = m.databases.Update(msg)
			return m, cmd
		}
		if m.mode == "tables" && m.tables.FilterState() == list.Filtering {
			m.tables, cmd = m.tables.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "esc":
			// An applied filter is cleared first; popping a level takes a
			// second Esc.
			if m.mode == "databases" && m.databases.FilterState() == list.FilterApplied {
				m.databases, cmd = m.databases.Update(msg)
				return m, cmd
			}
			if m.mode == "tables" && m.tables.FilterState() == list.FilterApplied {
				m.tables, cmd = m.tables.Update(msg)
				return m, cmd
			}
			return m.goBack()
		case "enter", "right":
			return m.confirm()
		}
	}

	if m.mode == "databases" {
		m.databases, cmd = m.databases.Update(msg)
		return m, cmd
	}
	if m.mode == "tables" {
		m.tables, cmd = m.tables.Update(msg)
		return m, cmd
	}
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

// confirm drills one level down from the current selection.
func (m browseModel) confirm() (tea.Model, tea.Cmd) {
	switch m.mode {
	case "databases":
		item, ok := m.databases.SelectedItem().(dbItem)
		if !ok {
			return m, nil
		}
		m.loading = true
		m.setInfo("Loading tables...")
		return m, m.loadTablesCmd(item.name, false)
	case "tables":
		item, ok := m.tables.SelectedItem().(tableItem)
		if !ok {
			// Empty table list: confirm resolves to nothing and is a no-op.
			return m, nil
		}
		m.tableIndex = m.tables.Index()
		m.loading = true
		m.setInfo("Loading rows...")
		return m, m.loadRowsCmd(m.dbName, item.name)
	}
	return m, nil
}

// goBack pops one level; at the top it quits.
func (m browseModel) goBack() (tea.Model, tea.Cmd) {
	switch m.mode {
	case "databases":
		return m, tea.Quit
	case "tables":
		// The top-level list was fetched once at startup and is reused;
		// its selection survived untouched.
		m.mode = "databases"
		m.setInfo("")
		return m, nil
	default:
		// Returning to the table level re-lists instead of trusting a
		// cache taken before the store may have changed.
		m.loading = true
		m.setInfo("Loading tables...")
		return m, m.loadTablesCmd(m.dbName, true)
	}
}

func (m *browseModel) setInfo(s string) {
	m.status = s
	m.statusErr = false
}

func (m *browseModel) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.log.Warn("transition aborted", zap.Error(err))
}

func (m browseModel) loadTablesCmd(db string, back bool) tea.Cmd {
	store, timeout := m.store, m.opts.QueryTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		names, err := store.ListTables(ctx, db)
		return tablesLoadedMsg{db: db, names: names, back: back, err: err}
	}
}

func (m browseModel) loadRowsCmd(db, table string) tea.Cmd {
	store, timeout := m.store, m.opts.QueryTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		docs, err := store.FetchRows(ctx, db, table)
		return rowsLoadedMsg{db: db, table: table, docs: docs, err: err}
	}
}

func docsContent(docs []catalog.Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(string(d))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m browseModel) View() string {
	switch m.mode {
	case "databases":
		header := m.statusLine("enter open • / filter • esc quit")
		return fmt.Sprintf("%s\n%s", header, m.databases.View())
	case "tables":
		header := m.statusLine("enter open • / filter • esc back")
		return fmt.Sprintf("%s\n%s", header, m.tables.View())
	default:
		path := pathStyle.Render(m.dbName + "/" + m.tableName)
		if m.statusErr || m.loading {
			// The status line takes a row from the viewport so the frame
			// keeps the same height either way.
			vp := m.rows
			if vp.Height > 0 {
				vp.Height--
			}
			line := infoStyle.Render(m.status)
			if m.statusErr {
				line = errorStyle.Render(m.status)
			}
			return fmt.Sprintf("%s\n%s\n%s", path, line, vp.View())
		}
		return fmt.Sprintf("%s\n%s", path, m.rows.View())
	}
}

// statusLine shows the current error or load progress, falling back to
// key hints.
func (m browseModel) statusLine(hints string) string {
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	if m.status != "" {
		return infoStyle.Render(m.status)
	}
	return infoStyle.Render(hints)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
