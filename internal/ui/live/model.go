// Package live is a terminal view of modules arriving at the consumer index.
package live

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/implindex/internal/consumer"
	"github.com/zjrosen/implindex/internal/keys"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/pubsub"
)

const (
	moduleColWidth = 32
	countColWidth  = 9
	eventColWidth  = 9
	seqColWidth    = 6
	chromeHeight   = 7 // title, footer, help line and frame
)

type row struct {
	module  string
	records int
	event   pubsub.EventType
	seq     int
}

// Model shows one table row per module, updated as intake events arrive.
type Model struct {
	events *pubsub.ContinuousListener[consumer.ModuleEvent]
	logs   <-chan log.LogEvent
	ctx    context.Context

	title   string
	keys    keys.KeyMap
	help    help.Model
	table   table.Model
	rows    []row
	byName  map[string]int
	lastLog string
	width   int
	height  int
}

// New creates a live view of index. Modules already in the index are shown
// immediately; later arrivals are streamed from the index's broker.
func New(ctx context.Context, index *consumer.Index, title string) Model {
	km := keys.DefaultKeyMap()
	m := Model{
		events: pubsub.NewContinuousListener(ctx, index.Broker()),
		logs:   log.Subscribe(ctx),
		ctx:    ctx,
		title:  title,
		keys:   km,
		help:   help.New(),
		byName: make(map[string]int),
		table: table.New(
			table.WithColumns(columns(moduleColWidth)),
			table.WithFocused(true),
			table.WithHeight(10),
			table.WithKeyMap(km.TableKeyMap()),
		),
	}
	for i, idx := range index.Modules() {
		m.upsert(row{module: idx.Name(), records: idx.Len(), event: pubsub.CreatedEvent, seq: i + 1})
	}
	m.refresh()
	return m
}

func columns(moduleWidth int) []table.Column {
	return []table.Column{
		{Title: "#", Width: seqColWidth},
		{Title: "Module", Width: moduleWidth},
		{Title: "Records", Width: countColWidth},
		{Title: "Event", Width: eventColWidth},
	}
}

// Init starts listening for module and log events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.events.Listen()}
	if m.logs != nil {
		cmds = append(cmds, pubsub.ListenCmd(m.ctx, m.logs))
	}
	return tea.Batch(cmds...)
}

// Update handles intake events, log lines, resizes and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		moduleWidth := max(12, msg.Width-seqColWidth-countColWidth-eventColWidth-12)
		m.table.SetColumns(columns(moduleWidth))
		m.table.SetHeight(max(3, msg.Height-chromeHeight))
		m.refresh()
		return m, nil

	case pubsub.Event[consumer.ModuleEvent]:
		ev := msg.Payload
		m.upsert(row{module: ev.Module, records: ev.Records, event: msg.Type, seq: ev.Seq})
		m.refresh()
		log.Debug(log.CatUI, "row updated", "module", ev.Module, "event", msg.Type)
		return m, m.events.Listen()

	case pubsub.Event[string]:
		m.lastLog = strings.TrimSpace(msg.Payload)
		return m, pubsub.ListenCmd(m.ctx, m.logs)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// upsert adds a row for a new module or updates the existing one in place.
func (m *Model) upsert(r row) {
	if i, ok := m.byName[r.module]; ok {
		m.rows[i] = r
		return
	}
	m.byName[r.module] = len(m.rows)
	m.rows = append(m.rows, r)
}

func (m *Model) refresh() {
	moduleWidth := m.table.Columns()[1].Width
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		event := createdStyle.Render(string(r.event))
		if r.event == pubsub.UpdatedEvent {
			event = updatedStyle.Render(string(r.event))
		}
		rows[i] = table.Row{
			strconv.Itoa(r.seq),
			runewidth.Truncate(r.module, moduleWidth, "…"),
			strconv.Itoa(r.records),
			event,
		}
	}
	m.table.SetRows(rows)
}

// Rows returns the module names in table order.
func (m Model) Rows() []string {
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.module
	}
	return out
}

// View renders the table with a title and footer.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(frameStyle.Render(m.table.View()))
	b.WriteString("\n")

	total := 0
	for _, r := range m.rows {
		total += r.records
	}
	footer := fmt.Sprintf("%d modules · %d records", len(m.rows), total)
	b.WriteString(footerStyle.Render(footer))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	if m.lastLog != "" {
		width := m.width
		if width <= 0 {
			width = 80
		}
		b.WriteString("\n")
		b.WriteString(footerStyle.Render(runewidth.Truncate(m.lastLog, width, "…")))
	}
	return b.String()
}
