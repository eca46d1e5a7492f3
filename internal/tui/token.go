package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxTokenLen matches the bot token length limit.
const maxTokenLen = 256

// ErrNoToken is returned when the user aborts token entry.
var ErrNoToken = errors.New("no token provided")

type tokenModel struct {
	input   textinput.Model
	hint    string
	token   string
	aborted bool
}

func newTokenModel(hint string) tokenModel {
	input := textinput.New()
	input.Placeholder = "123456:ABC-DEF..."
	input.CharLimit = maxTokenLen
	input.Width = 60
	input.EchoMode = textinput.EchoPassword
	input.Focus()
	return tokenModel{input: input, hint: hint}
}

func (m tokenModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m tokenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.token = strings.TrimSpace(m.input.Value())
			if m.token == "" {
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m tokenModel) View() string {
	s := styleTitle.Render("botscope") + "\n\n"
	s += "Enter a bot token to start the session:\n\n  " + m.input.View() + "\n"
	if m.hint != "" {
		s += "\n" + styleError.Render("  "+m.hint) + "\n"
	}
	s += styleDimmed.Render("\n  enter:connect  esc:quit")
	return s
}

// PromptToken runs a standalone token entry screen and returns the entered
// token. hint, when non-empty, is shown as an error from a previous attempt.
func PromptToken(hint string) (string, error) {
	final, err := tea.NewProgram(newTokenModel(hint)).Run()
	if err != nil {
		return "", err
	}
	m := final.(tokenModel)
	if m.aborted || m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}
