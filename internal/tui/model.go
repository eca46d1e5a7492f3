// Package tui implements the terminal interface: a Bubble Tea model with
// screens for session status, discovered chats, the live monitor, analytics,
// raw update inspection, webhook management and test messages. It renders
// exclusively from snapshots; all mutation happens in the app core.
package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/edgard/botscope/internal/app"
	"github.com/edgard/botscope/internal/archive"
	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
)

// Screen identifies the active view.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenChats
	ScreenHistory
	ScreenMonitor
	ScreenAnalytics
	ScreenRaw
	ScreenWebhook
	ScreenCompose
	ScreenHelp
)

// commandTimeout bounds UI-initiated API calls.
const commandTimeout = 15 * time.Second

// RefreshMsg asks the model to re-snapshot the session state. The app core
// sends it through the program after every applied batch.
type RefreshMsg struct{}

type errMsg struct{ err error }

type sentMsg struct{ msg *telegram.Message }

type webhookInfoMsg struct{ info telegram.WebhookInfo }

type webhookChangedMsg struct{ action string }

type historyMsg struct {
	chatID int64
	msgs   []archive.Message
}

// Model is the root Bubble Tea model.
type Model struct {
	core *app.App
	keys KeyMap

	width  int
	height int
	screen Screen

	chats   []registry.Chat
	chatIdx int

	historyChat registry.Chat
	history     []archive.Message

	paused        bool
	pausedEntries []app.RingEntry

	rawIdx int

	chatInput   textinput.Model
	threadInput textinput.Model
	msgInput    textinput.Model
	urlInput    textinput.Model
	focusIdx    int

	status    string
	statusErr bool
}

// New creates the root model over the session core.
func New(core *app.App) Model {
	chatInput := textinput.New()
	chatInput.Placeholder = "chat id"
	chatInput.CharLimit = 20
	chatInput.Width = 24

	threadInput := textinput.New()
	threadInput.Placeholder = "topic thread id (optional)"
	threadInput.CharLimit = 12
	threadInput.Width = 28

	msgInput := textinput.New()
	msgInput.Placeholder = "message text"
	msgInput.CharLimit = app.MaxMessageLen
	msgInput.Width = 60

	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com/hook"
	urlInput.CharLimit = 512
	urlInput.Width = 60

	return Model{
		core:        core,
		keys:        DefaultKeyMap(),
		chatInput:   chatInput,
		threadInput: threadInput,
		msgInput:    msgInput,
		urlInput:    urlInput,
	}
}

// Init performs no startup IO; the session core is already running.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RefreshMsg:
		m.refreshChats()
		return m, nil

	case errMsg:
		m.status = msg.err.Error()
		m.statusErr = true
		return m, nil

	case sentMsg:
		m.status = "message delivered"
		m.statusErr = false
		m.screen = ScreenHome
		return m, nil

	case webhookInfoMsg:
		m.status = "webhook state refreshed"
		m.statusErr = false
		return m, nil

	case webhookChangedMsg:
		m.status = "webhook " + msg.action
		m.statusErr = false
		return m, nil

	case historyMsg:
		m.history = msg.msgs
		m.screen = ScreenHistory
		return m, nil
	}

	return m, nil
}

func (m *Model) refreshChats() {
	m.chats = m.core.Registry().Chats()
	if m.chatIdx >= len(m.chats) {
		m.chatIdx = max(0, len(m.chats)-1)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text-entry screens capture most keys.
	if m.screen == ScreenCompose || m.screen == ScreenWebhook {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Home), key.Matches(msg, m.keys.Escape):
		m.screen = ScreenHome
		return m, nil

	case key.Matches(msg, m.keys.Chats):
		m.refreshChats()
		m.screen = ScreenChats
		return m, nil

	case key.Matches(msg, m.keys.Monitor):
		m.screen = ScreenMonitor
		m.paused = false
		return m, nil

	case key.Matches(msg, m.keys.Analytics):
		m.screen = ScreenAnalytics
		return m, nil

	case key.Matches(msg, m.keys.Raw):
		m.screen = ScreenRaw
		m.rawIdx = 0
		return m, nil

	case key.Matches(msg, m.keys.Webhook):
		m.screen = ScreenWebhook
		m.focusIdx = 0
		m.urlInput.Focus()
		return m, nil

	case key.Matches(msg, m.keys.Compose):
		// Composing from the chat list targets the selected chat.
		if m.screen == ScreenChats && m.chatIdx < len(m.chats) {
			m.chatInput.SetValue(strconv.FormatInt(m.chats[m.chatIdx].ID, 10))
		}
		m.screen = ScreenCompose
		m.focusIdx = 0
		m.chatInput.Focus()
		m.threadInput.Blur()
		m.msgInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.screen = ScreenHelp
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		if m.screen == ScreenMonitor {
			m.paused = !m.paused
			if m.paused {
				m.pausedEntries = m.core.MonitorEntries()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshWebhookCmd()

	case key.Matches(msg, m.keys.Down):
		return m.moveSelection(1), nil

	case key.Matches(msg, m.keys.Up):
		return m.moveSelection(-1), nil

	case key.Matches(msg, m.keys.Enter):
		if m.screen == ScreenChats && len(m.chats) > 0 {
			m.historyChat = m.chats[m.chatIdx]
			return m, m.loadHistoryCmd(m.historyChat.ID)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) moveSelection(delta int) Model {
	switch m.screen {
	case ScreenChats:
		if n := len(m.chats); n > 0 {
			m.chatIdx = (m.chatIdx + delta + n) % n
		}
	case ScreenRaw:
		if n := len(m.core.RawEntries()); n > 0 {
			m.rawIdx = (m.rawIdx + delta + n) % n
		}
	}
	return m
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.screen = ScreenHome
		m.blurInputs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.screen == ScreenCompose {
			m.focusIdx = (m.focusIdx + 1) % 3
			m.chatInput.Blur()
			m.threadInput.Blur()
			m.msgInput.Blur()
			switch m.focusIdx {
			case 0:
				m.chatInput.Focus()
			case 1:
				m.threadInput.Focus()
			default:
				m.msgInput.Focus()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.screen == ScreenCompose {
			return m, m.sendTestCmd()
		}
		return m, m.setWebhookCmd()

	case key.Matches(msg, m.keys.Clear):
		if m.screen == ScreenWebhook && !m.urlInput.Focused() {
			return m, m.clearWebhookCmd()
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case ScreenCompose:
		switch m.focusIdx {
		case 0:
			m.chatInput, cmd = m.chatInput.Update(msg)
		case 1:
			m.threadInput, cmd = m.threadInput.Update(msg)
		default:
			m.msgInput, cmd = m.msgInput.Update(msg)
		}
	case ScreenWebhook:
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) blurInputs() {
	m.chatInput.Blur()
	m.threadInput.Blur()
	m.msgInput.Blur()
	m.urlInput.Blur()
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func (m Model) loadHistoryCmd(chatID int64) tea.Cmd {
	core := m.core
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		msgs, err := core.History(ctx, chatID)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg{chatID: chatID, msgs: msgs}
	}
}

func (m Model) refreshWebhookCmd() tea.Cmd {
	core := m.core
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		info, err := core.RefreshWebhook(ctx)
		if err != nil {
			return errMsg{err}
		}
		return webhookInfoMsg{info: info}
	}
}
