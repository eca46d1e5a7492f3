package tui

import (
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	errBadChatID   = errors.New("chat id must be an integer")
	errBadThreadID = errors.New("thread id must be an integer")
)

func (m Model) sendTestCmd() tea.Cmd {
	core := m.core
	chatRaw := strings.TrimSpace(m.chatInput.Value())
	threadRaw := strings.TrimSpace(m.threadInput.Value())
	text := m.msgInput.Value()

	return func() tea.Msg {
		chatID, err := strconv.ParseInt(chatRaw, 10, 64)
		if err != nil {
			return errMsg{errBadChatID}
		}
		var threadID int64
		if threadRaw != "" {
			threadID, err = strconv.ParseInt(threadRaw, 10, 64)
			if err != nil {
				return errMsg{errBadThreadID}
			}
		}

		ctx, cancel := commandContext()
		defer cancel()
		msg, err := core.SendTestMessage(ctx, chatID, text, threadID)
		if err != nil {
			return errMsg{err}
		}
		return sentMsg{msg: msg}
	}
}

func (m Model) setWebhookCmd() tea.Cmd {
	core := m.core
	target := strings.TrimSpace(m.urlInput.Value())

	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		if err := core.SetWebhook(ctx, target, false); err != nil {
			return errMsg{err}
		}
		return webhookChangedMsg{action: "registered"}
	}
}

func (m Model) clearWebhookCmd() tea.Cmd {
	core := m.core
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		if err := core.ClearWebhook(ctx, false); err != nil {
			return errMsg{err}
		}
		return webhookChangedMsg{action: "cleared"}
	}
}
