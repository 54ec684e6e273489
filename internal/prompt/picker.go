package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// Picker is a full-screen arrow-key chooser for terminals.
type Picker struct {
	in  io.Reader
	out io.Writer
}

// NewPicker builds a picker reading keys from in and drawing to out.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

// Choose implements Chooser.
func (p *Picker) Choose(ctx context.Context, title string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrCancelled
	}
	program := tea.NewProgram(
		newPickerModel(title, candidates),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
	)
	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || m.cancelled || m.choice == "" {
		return "", ErrCancelled
	}
	return m.choice, nil
}

type pickerModel struct {
	title      string
	candidates []string
	cursor     int
	choice     string
	cancelled  bool
}

func newPickerModel(title string, candidates []string) pickerModel {
	return pickerModel{title: title, candidates: candidates}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyUp, tea.KeyShiftTab:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown, tea.KeyTab:
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		m.choice = m.candidates[m.cursor]
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "j":
			if m.cursor < len(m.candidates)-1 {
				m.cursor++
			}
		case "q":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.choice != "" || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, candidate := range m.candidates {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render(">"))
			b.WriteString(selectedStyle.Render(candidate))
		} else {
			b.WriteString(" ")
			b.WriteString(itemStyle.Render(candidate))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down to move, enter to select, q to cancel"))
	b.WriteString("\n")
	return b.String()
}
