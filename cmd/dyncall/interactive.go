package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmgate/dyncall/marshal"
	"github.com/wasmgate/dyncall/wasix"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectRoutine modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	tb       *testbed
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	strict   bool
	state    modelState
}

func newInteractiveModel(tb *testbed) *interactiveModel {
	return &interactiveModel{
		tb:     tb,
		strict: true,
		state:  stateSelectRoutine,
	}
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectRoutine && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectRoutine && m.selected < len(m.tb.routines)-1 {
				m.selected++
			}

		case "s":
			if m.state == stateSelectRoutine {
				m.strict = !m.strict
			}

		case "r":
			if m.state == stateSelectRoutine {
				return m, m.reflectRoutine
			}

		case "f":
			if m.state == stateSelectRoutine {
				return m, m.freeClosure
			}

		case "enter":
			switch m.state {
			case stateSelectRoutine:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callRoutine
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callRoutine

			case stateShowResult:
				m.state = stateSelectRoutine
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectRoutine
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectRoutine
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	r := m.tb.routines[m.selected]
	m.inputs = make([]textinput.Model, len(r.args))
	for i, t := range r.args {
		ti := textinput.New()
		ti.Placeholder = t.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 24
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callRoutine() tea.Msg {
	r := m.tb.routines[m.selected]

	args := make([]marshal.RawValue, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseValue(strings.TrimSpace(input.Value()), r.args[i])
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		args[i] = v
	}

	results, err := m.tb.invoke(r, args, m.strict)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: formatValues(results)}
}

func (m *interactiveModel) reflectRoutine() tea.Msg {
	r := m.tb.routines[m.selected]
	h, err := m.tb.closureFor(r)
	if err != nil {
		return callResultMsg{err: err}
	}
	sig, err := m.tb.reflect(h)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("handle %d: %s", h, sig)}
}

func (m *interactiveModel) freeClosure() tea.Msg {
	r := m.tb.routines[m.selected]
	h, ok := m.tb.handles[r.name]
	if !ok {
		return callResultMsg{result: "no closure allocated"}
	}
	errno := m.tb.sys.ClosureFree(h)
	delete(m.tb.handles, r.name)
	if errno != wasix.ErrnoSuccess {
		return callResultMsg{err: fmt.Errorf("closure_free: %s", errno)}
	}
	return callResultMsg{result: fmt.Sprintf("freed handle %d", h)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Closure Testbed"))
	if m.strict {
		b.WriteString(" strict")
	} else {
		b.WriteString(" non-strict")
	}
	tbl := m.tb.sys.Table()
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %d/%d closures", tbl.Len(), tbl.Cap())))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectRoutine:
		b.WriteString("Select a routine:\n\n")
		for i, r := range m.tb.routines {
			line := m.formatRoutine(r)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • r reflect • f free • s strict • q quit"))

	case stateInputArgs:
		r := m.tb.routines[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(r.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(r.args[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		r := m.tb.routines[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(r.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatRoutine(r routine) string {
	line := funcStyle.Render(r.name) + "(" + typeStyle.Render(r.args.String()) + ")"
	if len(r.results) > 0 {
		line += " -> " + typeStyle.Render(r.results.String())
	}
	if h, ok := m.tb.handles[r.name]; ok {
		line += helpStyle.Render(fmt.Sprintf("  [handle %d]", h))
	}
	return line
}

func runInteractive(tb *testbed) error {
	p := tea.NewProgram(newInteractiveModel(tb), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
