// Package inspector is a bubbletea/lipgloss terminal browser for an
// already-encoded Fleece document. It walks the document through the
// read-only fleece/value navigator without re-parsing it into Go
// values, the same way the teacher's cmd/run walks a loaded component
// through its own accessor layer rather than a decoded intermediate
// tree.
package inspector

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/couchbaselabs/fleece-go/fleece"
	"github.com/couchbaselabs/fleece-go/fleece/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	scalarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// row is one line of an expanded container: either a dict entry
// (key set) or an array element (index only).
type row struct {
	key   string
	index int
	val   value.Value
}

// frame is one level of the navigation stack: the container being
// browsed, and where the cursor was left when it was entered.
type frame struct {
	rows     []row
	selected int
}

type model struct {
	err    error
	stack  []frame
	cursor int
}

// Run starts the interactive browser over doc, an already-finished
// Fleece document's bytes.
func Run(doc []byte) error {
	m, err := newModel(doc)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newModel(doc []byte) (*model, error) {
	root, err := value.Root(doc)
	if err != nil {
		return nil, fmt.Errorf("inspector: %w", err)
	}
	m := &model{}
	rows, err := rowsFor(root)
	if err != nil {
		return &model{err: err}, nil
	}
	m.stack = []frame{{rows: rows}}
	return m, nil
}

// rowsFor expands a container Value into its display rows. A scalar
// Value yields a single synthetic row so it can still be shown at the
// top level.
func rowsFor(v value.Value) ([]row, error) {
	switch v.Type() {
	case fleece.TagArray:
		arr, err := v.AsArray()
		if err != nil {
			return nil, err
		}
		rows := make([]row, arr.Count())
		for i := range rows {
			elem, err := arr.Get(i)
			if err != nil {
				return nil, err
			}
			rows[i] = row{index: i, val: elem}
		}
		return rows, nil
	case fleece.TagDict:
		d, err := v.AsDict()
		if err != nil {
			return nil, err
		}
		var rows []row
		err = d.Iterate(func(key string, val value.Value) bool {
			rows = append(rows, row{key: key, val: val})
			return true
		})
		if err != nil {
			return nil, err
		}
		return rows, nil
	default:
		return []row{{val: v}}, nil
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.err != nil || len(m.stack) == 0 {
		return m, nil
	}

	top := &m.stack[len(m.stack)-1]

	switch keyMsg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if top.selected > 0 {
			top.selected--
		}

	case "down", "j":
		if top.selected < len(top.rows)-1 {
			top.selected++
		}

	case "enter", "l", "right":
		if top.selected >= len(top.rows) {
			break
		}
		cur := top.rows[top.selected].val
		if cur.Type() != fleece.TagArray && cur.Type() != fleece.TagDict {
			break
		}
		rows, err := rowsFor(cur)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.stack = append(m.stack, frame{rows: rows})

	case "esc", "backspace", "h", "left":
		if len(m.stack) > 1 {
			m.stack = m.stack[:len(m.stack)-1]
		}
	}

	return m, nil
}

func (m *model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)) + "\n"
	}
	if len(m.stack) == 0 {
		return "empty document\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("fleece inspect"))
	b.WriteString(fmt.Sprintf("  depth %d\n\n", len(m.stack)-1))

	top := m.stack[len(m.stack)-1]
	if len(top.rows) == 0 {
		b.WriteString("(empty)\n")
	}
	for i, r := range top.rows {
		cursor := "  "
		line := formatRow(r)
		if i == top.selected {
			cursor = "> "
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter/l descend • esc/h back • q quit"))
	return b.String()
}

func formatRow(r row) string {
	label := fmt.Sprintf("[%d]", r.index)
	if r.key != "" {
		label = keyStyle.Render(r.key)
	}
	return fmt.Sprintf("%s: %s", label, describe(r.val))
}

// describe renders a compact one-line preview of v, expanding
// containers to their kind and count rather than their contents.
func describe(v value.Value) string {
	switch v.Type() {
	case fleece.TagArray:
		arr, err := v.AsArray()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return fmt.Sprintf("array(%d)", arr.Count())
	case fleece.TagDict:
		d, err := v.AsDict()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return fmt.Sprintf("dict(%d)", d.Count())
	case fleece.TagSpecial:
		if v.IsNull() {
			return scalarStyle.Render("null")
		}
		b, err := v.AsBool()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return scalarStyle.Render(fmt.Sprintf("%v", b))
	case fleece.TagString:
		s, err := v.AsString()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return scalarStyle.Render(fmt.Sprintf("%q", s))
	case fleece.TagBinary:
		b, err := v.AsBytes()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return scalarStyle.Render(fmt.Sprintf("<%d bytes>", len(b)))
	case fleece.TagFloat:
		f, err := v.AsFloat64()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return scalarStyle.Render(fmt.Sprintf("%g", f))
	case fleece.TagShortInt, fleece.TagInt:
		n, err := v.AsInt64()
		if err != nil {
			return errorStyle.Render(err.Error())
		}
		return scalarStyle.Render(fmt.Sprintf("%d", n))
	default:
		return errorStyle.Render("unknown")
	}
}
