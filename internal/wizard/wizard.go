// Package wizard is the interactive first-run form behind `cinesync setup`.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned by Run when the user leaves the form.
var ErrAborted = errors.New("setup aborted")

var (
	Primary   = lipgloss.Color("#AA5CC3")
	Secondary = lipgloss.Color("#00A4DC")
	FgPrimary = lipgloss.Color("#FFFFFF")
	FgMuted   = lipgloss.Color("#888888")
	ErrColor  = lipgloss.Color("#FF5555")
)

type step int

const (
	stepForm step = iota
	stepConfirm
	stepDone
)

type field struct {
	label string
	hint  string
	input textinput.Model
}

// Model is the bubbletea model of the setup form.
type Model struct {
	banner   string
	fields   []field
	focused  int
	step     step
	problems []string
	answers  Answers
	aborted  bool
}

const (
	fieldMoviesWatch = iota
	fieldMoviesTarget
	fieldSeriesWatch
	fieldSeriesTarget
	fieldWorkingDirectory
	fieldAPIKey
)

// New returns a form pre-filled with initial. banner is printed above it.
func New(initial Answers, banner string) Model {
	newInput := func(value, placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Width = 60
		ti.CharLimit = 500
		ti.SetValue(value)
		ti.PromptStyle = lipgloss.NewStyle().Foreground(Secondary)
		ti.TextStyle = lipgloss.NewStyle().Foreground(FgPrimary)
		return ti
	}

	apiKey := newInput(initial.TMDbAPIKey, "TMDb v3 API key")
	apiKey.CharLimit = 100
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	m := Model{
		banner: banner,
		fields: []field{
			{label: "Movies watch directory", hint: "where finished movie downloads land", input: newInput(initial.MoviesWatch, "e.g. /mnt/downloads/movies")},
			{label: "Movies target directory", hint: "the library the links are built in", input: newInput(initial.MoviesTarget, "e.g. /srv/media/Movies")},
			{label: "Series watch directory", hint: "leave both series fields empty to skip", input: newInput(initial.SeriesWatch, "e.g. /mnt/downloads/tv")},
			{label: "Series target directory", input: newInput(initial.SeriesTarget, "e.g. /srv/media/TV")},
			{label: "Working directory", hint: "config, registry and logs", input: newInput(initial.WorkingDirectory, "e.g. ~/.config/cinesync")},
			{label: "TMDb API key", hint: "optional; without it folders carry no external id", input: apiKey},
		},
	}
	m.fields[0].input.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}

		switch m.step {
		case stepForm:
			if model, cmd, handled := m.handleFormKeys(msg.String()); handled {
				return model, cmd
			}
		case stepConfirm:
			return m.handleConfirmKeys(msg.String())
		}
	}

	if m.step != stepForm {
		return m, nil
	}
	var cmd tea.Cmd
	m.fields[m.focused].input, cmd = m.fields[m.focused].input.Update(msg)
	return m, cmd
}

func (m Model) handleFormKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "tab", "down":
		cmd := m.focus(m.focused + 1)
		return m, cmd, true
	case "shift+tab", "up":
		cmd := m.focus(m.focused - 1)
		return m, cmd, true
	case "enter":
		if m.focused < len(m.fields)-1 {
			cmd := m.focus(m.focused + 1)
			return m, cmd, true
		}
		m.answers = m.collect()
		m.problems = m.answers.Problems()
		if len(m.problems) == 0 {
			m.step = stepConfirm
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) handleConfirmKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.answers.RunFirstScan = true
		m.step = stepDone
		return m, tea.Quit
	case "n", "N", "enter":
		m.answers.RunFirstScan = false
		m.step = stepDone
		return m, tea.Quit
	case "b", "backspace":
		m.step = stepForm
		cmd := m.focus(m.focused)
		return m, cmd
	}
	return m, nil
}

// focus moves the cursor to field i, wrapping at both ends.
func (m *Model) focus(i int) tea.Cmd {
	n := len(m.fields)
	i = ((i % n) + n) % n
	m.fields[m.focused].input.Blur()
	m.focused = i
	return m.fields[i].input.Focus()
}

func (m Model) collect() Answers {
	value := func(i int) string {
		return strings.TrimSpace(m.fields[i].input.Value())
	}
	return Answers{
		MoviesWatch:      value(fieldMoviesWatch),
		MoviesTarget:     value(fieldMoviesTarget),
		SeriesWatch:      value(fieldSeriesWatch),
		SeriesTarget:     value(fieldSeriesTarget),
		WorkingDirectory: value(fieldWorkingDirectory),
		TMDbAPIKey:       value(fieldAPIKey),
	}
}

func (m Model) View() string {
	var b strings.Builder

	if m.banner != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(Primary).Bold(true).Render(m.banner))
		b.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(FgMuted)

	switch m.step {
	case stepForm:
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("First-time setup") + "\n")
		b.WriteString(muted.Render("tab/↓ next • shift+tab/↑ previous • enter on the last field to continue • esc to quit") + "\n\n")

		for i, f := range m.fields {
			label := f.label
			if i == m.focused {
				label = lipgloss.NewStyle().Foreground(Secondary).Bold(true).Render("› " + label)
			} else {
				label = "  " + label
			}
			b.WriteString(label + "\n")
			b.WriteString("  " + f.input.View() + "\n")
			if f.hint != "" {
				b.WriteString("  " + muted.Render(f.hint) + "\n")
			}
			b.WriteString("\n")
		}

		for _, p := range m.problems {
			b.WriteString(lipgloss.NewStyle().Foreground(ErrColor).Render("✗ "+p) + "\n")
		}

	case stepConfirm:
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Configuration ready") + "\n\n")
		if m.answers.MoviesWatch != "" {
			fmt.Fprintf(&b, "  Movies  %s → %s\n", m.answers.MoviesWatch, m.answers.MoviesTarget)
		}
		if m.answers.SeriesWatch != "" {
			fmt.Fprintf(&b, "  Series  %s → %s\n", m.answers.SeriesWatch, m.answers.SeriesTarget)
		}
		fmt.Fprintf(&b, "  Working directory  %s\n\n", m.answers.WorkingDirectory)
		b.WriteString("Link everything already in the watch directories now? [y/N] ")
		b.WriteString(muted.Render("(b to go back)") + "\n")

	case stepDone:
		b.WriteString("Saving configuration...\n")
	}

	return b.String()
}

// Result returns the captured answers; ok is false when the form was
// aborted.
func (m Model) Result() (Answers, bool) {
	return m.answers, !m.aborted && m.step == stepDone
}

// Run shows the form on the terminal and returns the answers.
func Run(initial Answers, banner string) (Answers, error) {
	final, err := tea.NewProgram(New(initial, banner)).Run()
	if err != nil {
		return Answers{}, fmt.Errorf("setup form: %w", err)
	}
	answers, ok := final.(Model).Result()
	if !ok {
		return Answers{}, ErrAborted
	}
	return answers, nil
}
