package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/metadata"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func browseCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit fields interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("browse needs a terminal; use get, set or array instead")
			}
			var base heapbind.Addr
			if addr != "" {
				var err error
				if base, err = parseAddr(addr); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			p := tea.NewProgram(newBrowseModel(s, base), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "object address for instance fields")
	return cmd
}

type browseState int

const (
	stateSelectClass browseState = iota
	stateSelectField
	stateEditField
)

type fieldRow struct {
	info  heapbind.FieldInfo
	kind  kind.Kind
	value string
	err   error
}

type browseModel struct {
	err      error
	s        *session
	class    *binding.Class
	status   string
	classes  []*metadata.ClassInfo
	rows     []fieldRow
	input    textinput.Model
	addr     heapbind.Addr
	selected int
	fieldIdx int
	state    browseState
}

func newBrowseModel(s *session, addr heapbind.Addr) *browseModel {
	return &browseModel{
		s:       s,
		addr:    addr,
		classes: s.img.Classes(),
		state:   stateSelectClass,
	}
}

func (m *browseModel) Init() tea.Cmd { return nil }

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)
	if m.state == stateEditField {
		if isKey {
			switch key.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.state = stateSelectField
				return m, nil
			case "enter":
				m.commitEdit()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if !isKey {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "r":
		if m.state == stateSelectField {
			m.refresh()
		}
	case "esc":
		if m.state == stateSelectField {
			m.state = stateSelectClass
			m.rows, m.err, m.status = nil, nil, ""
		}
	case "enter":
		switch m.state {
		case stateSelectClass:
			m.openClass()
		case stateSelectField:
			m.startEdit()
		}
	}
	return m, nil
}

func (m *browseModel) move(d int) {
	switch m.state {
	case stateSelectClass:
		m.selected = clamp(m.selected+d, len(m.classes))
	case stateSelectField:
		m.fieldIdx = clamp(m.fieldIdx+d, len(m.rows))
	}
}

func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *browseModel) openClass() {
	if len(m.classes) == 0 {
		return
	}
	c := m.classes[m.selected]
	cls, err := m.s.b.Class(c.Module, c.Namespace, c.Name)
	if err != nil {
		m.err = err
		return
	}
	m.class, m.err, m.status = cls, nil, ""
	m.rows = m.rows[:0]
	for _, f := range c.Fields() {
		m.rows = append(m.rows, fieldRow{info: f, kind: kind.FromWIT(f.Type)})
	}
	m.fieldIdx = 0
	m.state = stateSelectField
	m.refresh()
}

// refresh rereads every field; values are never cached between views.
func (m *browseModel) refresh() {
	for i := range m.rows {
		r := &m.rows[i]
		r.value, r.err = formatField(m.accessor(r), r.info.Name, r.kind)
	}
}

func (m *browseModel) accessor(r *fieldRow) fieldValue {
	return accessorFor(m.class, r.info.Static, m.addr)
}

func (m *browseModel) startEdit() {
	if len(m.rows) == 0 {
		return
	}
	r := m.rows[m.fieldIdx]
	ti := textinput.New()
	ti.Prompt = r.info.Name + ": "
	ti.Placeholder = r.kind.String()
	ti.SetValue(r.value)
	ti.Width = 40
	ti.Focus()
	m.input = ti
	m.state = stateEditField
}

func (m *browseModel) commitEdit() {
	r := &m.rows[m.fieldIdx]
	err := setField(m.accessor(r), r.info.Name, r.kind, strings.TrimSpace(m.input.Value()))
	m.state = stateSelectField
	if err != nil {
		m.status = errorStyle.Render(err.Error())
		return
	}
	m.status = valueStyle.Render("wrote " + r.info.Name)
	m.refresh()
}

func (m *browseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("heapbind"))
	if m.addr != 0 {
		b.WriteString(fmt.Sprintf(" @0x%x", uint64(m.addr)))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	switch m.state {
	case stateSelectClass:
		b.WriteString("Select a class:\n\n")
		for i, c := range m.classes {
			line := fmt.Sprintf("%s %s", nameStyle.Render(c.QualifiedName()), typeStyle.Render("["+c.Module+"]"))
			writeRow(&b, i == m.selected, line)
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectField, stateEditField:
		b.WriteString(fmt.Sprintf("%s\n\n", nameStyle.Render(m.class.Name())))
		for i, r := range m.rows {
			line := fmt.Sprintf("%-16s %s = ", r.info.Name, typeStyle.Render(r.kind.String()))
			if r.info.Static {
				line = "static " + line
			}
			if r.err != nil {
				line += errorStyle.Render(r.err.Error())
			} else {
				line += valueStyle.Render(r.value)
			}
			writeRow(&b, i == m.fieldIdx, line)
		}
		b.WriteString("\n")
		if m.state == stateEditField {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter write • esc cancel"))
		} else {
			if m.status != "" {
				b.WriteString(m.status)
				b.WriteString("\n\n")
			}
			b.WriteString(helpStyle.Render("↑/↓ select • enter edit • r reload • esc back • q quit"))
		}
	}
	return b.String()
}

func writeRow(b *strings.Builder, selected bool, line string) {
	if selected {
		b.WriteString(selectedStyle.Render("> " + line))
	} else {
		b.WriteString("  " + line)
	}
	b.WriteString("\n")
}
