package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	zeroCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	defaultInteractiveTimeout = 5 * time.Second
	defaultTapeCells          = 16
)

type interactiveModel struct {
	loadErr  error
	err      error
	rt       *runtime.Runtime
	result   *runtime.Result
	opts     options
	output   string
	inputs   []textinput.Model
	focusIdx int
	elapsed  time.Duration
	state    modelState
}

type modelState int

const (
	stateEdit modelState = iota
	stateRunning
	stateShowResult
)

const (
	fieldProgram = iota
	fieldInput
)

func newInteractiveModel(opts options, source string) *interactiveModel {
	program := textinput.New()
	program.Prompt = "program: "
	program.Placeholder = "+[>,.<]"
	program.Width = 60
	program.SetValue(source)
	program.Focus()

	input := textinput.New()
	input.Prompt = "input:   "
	input.Placeholder = "bytes fed to ,"
	input.Width = 60

	return &interactiveModel{
		opts:   opts,
		inputs: []textinput.Model{program, input},
		state:  stateEdit,
	}
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
}

type runResultMsg struct {
	err     error
	result  *runtime.Result
	output  string
	elapsed time.Duration
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadRuntime)
}

func (m *interactiveModel) loadRuntime() tea.Msg {
	rt, err := runtime.New(context.Background(), &runtime.Config{EOFValue: int32(m.opts.eof)})
	return loadedMsg{rt: rt, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state == stateShowResult {
				return m, m.quit()
			}

		case "enter":
			switch m.state {
			case stateEdit:
				if m.rt == nil {
					return m, nil
				}
				m.state = stateRunning
				return m, m.runProgram(m.inputs[fieldProgram].Value(), m.inputs[fieldInput].Value())
			case stateShowResult:
				m.edit()
				return m, nil
			}

		case "tab":
			if m.state == stateEdit {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateEdit:
				return m, m.quit()
			case stateShowResult:
				m.edit()
				return m, nil
			}
		}

	case loadedMsg:
		m.rt = msg.rt
		m.loadErr = msg.err

	case runResultMsg:
		m.result = msg.result
		m.output = msg.output
		m.elapsed = msg.elapsed
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateEdit {
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

func (m *interactiveModel) edit() {
	m.state = stateEdit
	m.err = nil
	m.result = nil
	m.output = ""
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.rt != nil {
		m.rt.Close(context.Background())
	}
	return tea.Quit
}

func (m *interactiveModel) runProgram(source, input string) tea.Cmd {
	rt := m.rt
	opts := m.opts
	return func() tea.Msg {
		timeout := opts.timeout
		if timeout <= 0 {
			timeout = defaultInteractiveTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, err := compilerConfig(opts)
		if err != nil {
			return runResultMsg{err: err}
		}
		data, err := compiler.Compile([]byte(source), cfg)
		if err != nil {
			return runResultMsg{err: err}
		}

		var out bytes.Buffer
		start := time.Now()
		res, err := rt.Run(ctx, data, strings.NewReader(input), &out)
		return runResultMsg{
			err:     err,
			result:  res,
			output:  out.String(),
			elapsed: time.Since(start),
		}
	}
}

func (m *interactiveModel) View() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.loadErr))
	}

	if m.rt == nil {
		return "Starting runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Brainfuck Runner"))
	b.WriteString("\n\n")

	switch m.state {
	case stateEdit:
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc quit"))

	case stateRunning:
		b.WriteString("Running...")

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(labelStyle.Render("output: "))
			b.WriteString(resultStyle.Render(printable(m.output)))
			b.WriteString("\n")
			b.WriteString(labelStyle.Render("status: "))
			b.WriteString(fmt.Sprintf("%d", m.result.Status))
			b.WriteString(helpStyle.Render(fmt.Sprintf("  (%d in, %d out, %s)",
				m.result.BytesRead, m.result.BytesWritten, m.elapsed.Round(time.Microsecond))))
			b.WriteString("\n")
			b.WriteString(labelStyle.Render("tape:   "))
			b.WriteString(renderCells(m.result.Tape, m.tapeCells()))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) tapeCells() int {
	if m.opts.tape > 0 {
		return m.opts.tape
	}
	return defaultTapeCells
}

func renderCells(tape []byte, n int) string {
	if n > len(tape) {
		n = len(tape)
	}
	cells := make([]string, n)
	for i, c := range tape[:n] {
		style := cellStyle
		if c == 0 {
			style = zeroCellStyle
		}
		cells[i] = style.Render(fmt.Sprintf("%3d", c))
	}
	return strings.Join(cells, " ")
}

// printable keeps program output from driving the terminal.
func printable(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\n':
			b.WriteString("⏎")
		case c < 0x20 || c >= 0x7f:
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// loadSource reads a Brainfuck file into a single line for editing.
// Non-command bytes are comments, so folding newlines is safe.
func loadSource(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.EqualFold(filepath.Ext(path), ".wasm") {
		return "", fmt.Errorf("interactive mode edits Brainfuck source, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return strings.Join(strings.Fields(string(data)), " "), nil
}

func runInteractive(opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	source, err := loadSource(opts.file)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newInteractiveModel(opts, source), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
