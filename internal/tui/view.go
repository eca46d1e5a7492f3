package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/edgard/botscope/internal/app"
	"github.com/edgard/botscope/internal/telegram"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.screen {
	case ScreenChats:
		body = m.viewChats()
	case ScreenHistory:
		body = m.viewHistory()
	case ScreenMonitor:
		body = m.viewMonitor()
	case ScreenAnalytics:
		body = m.viewAnalytics()
	case ScreenRaw:
		body = m.viewRaw()
	case ScreenWebhook:
		body = m.viewWebhook()
	case ScreenCompose:
		body = m.viewCompose()
	case ScreenHelp:
		body = m.viewHelp()
	default:
		body = m.viewHome()
	}

	sections := []string{
		m.viewStatusBar(),
		body,
	}
	if m.status != "" {
		line := styleOK.Render(m.status)
		if m.statusErr {
			line = styleError.Render(m.status)
		}
		sections = append(sections, line)
	}
	sections = append(sections, m.viewFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewStatusBar() string {
	bot := m.core.Bot()
	st := m.core.PollerStatus()

	identity := styleTitle.Render("botscope")
	if bot.Username != "" {
		identity += styleDimmed.Render("  @" + bot.Username)
	}

	state := string(st.State)
	if st.Fatal {
		state = "token rejected"
	}
	degraded := st.ConsecutiveFailures > 0
	stateStr := lipgloss.NewStyle().Foreground(stateColor(string(st.State), degraded, st.Fatal)).Render(state)

	extras := ""
	if degraded {
		extras = styleDimmed.Render(fmt.Sprintf("  failures=%d", st.ConsecutiveFailures))
	}
	if m.core.Webhook() != nil && m.core.Webhook().Active() {
		extras += styleDimmed.Render("  [webhook mode]")
	}

	return identity + "  " + stateStr + extras
}

func (m Model) viewFooter() string {
	switch m.screen {
	case ScreenChats:
		return styleDimmed.Render("  j/k:navigate  enter:history  t:test msg  h:home  q:quit")
	case ScreenMonitor:
		return styleDimmed.Render("  p:pause  h:home  q:quit")
	case ScreenRaw:
		return styleDimmed.Render("  j/k:navigate  h:home  q:quit")
	case ScreenWebhook:
		return styleDimmed.Render("  enter:register  x:clear  f:refresh  esc:back")
	case ScreenCompose:
		return styleDimmed.Render("  tab:next field  enter:send  esc:back")
	case ScreenHistory, ScreenAnalytics, ScreenHelp:
		return styleDimmed.Render("  esc:back  q:quit")
	default:
		return styleDimmed.Render("  c:chats  m:monitor  a:analytics  r:raw  w:webhook  t:test msg  ?:help  q:quit")
	}
}

func (m Model) viewHome() string {
	bot := m.core.Bot()
	st := m.core.PollerStatus()
	snap := m.core.Analytics().Snapshot()

	var b strings.Builder
	b.WriteString(styleHeader.Render("Session") + "\n")
	b.WriteString(fmt.Sprintf("  bot        %s (id %d)\n", bot.DisplayName(), bot.ID))
	b.WriteString(fmt.Sprintf("  state      %s\n", st.State))
	if st.LastError != "" {
		b.WriteString("  last error " + styleError.Render(truncate(st.LastError, 70)) + "\n")
	}
	if st.NextRetryUnix > 0 {
		b.WriteString(fmt.Sprintf("  next retry %s\n", time.Unix(st.NextRetryUnix, 0).Format("15:04:05")))
	}
	b.WriteString(fmt.Sprintf("  events     %d  (decode failures %d)\n", snap.Total, snap.DecodeFailures))
	b.WriteString(fmt.Sprintf("  chats      %d\n", m.core.Registry().Len()))

	if hook := m.core.Webhook(); hook != nil {
		if info, known := hook.Info(); known && info.URL != "" {
			b.WriteString("\n" + styleHeader.Render("Webhook") + "\n")
			b.WriteString("  url        " + truncate(info.URL, 70) + "\n")
			b.WriteString(fmt.Sprintf("  pending    %d\n", info.PendingUpdateCount))
		}
	}

	return styleBox.Render(b.String())
}

func (m Model) viewChats() string {
	var lines []string
	lines = append(lines, styleHeader.Render("Discovered chats"))

	if len(m.chats) == 0 {
		lines = append(lines, styleDimmed.Render("  no chats seen yet"))
		return strings.Join(lines, "\n")
	}

	for i, c := range m.chats {
		prefix := "  "
		style := lipgloss.NewStyle()
		if i == m.chatIdx {
			prefix = "> "
			style = styleSelected
		}
		seen := "never"
		if c.LastSeenUnix > 0 {
			seen = time.Unix(c.LastSeenUnix, 0).Format("Jan 02 15:04")
		}
		line := fmt.Sprintf("%s%-11s %-32s %6d msgs  %s",
			prefix, c.Kind, truncate(c.DisplayName(), 32), c.MessageCount, seen)
		if len(c.Topics) > 0 {
			line += styleDimmed.Render(fmt.Sprintf("  %d topics", len(c.Topics)))
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewHistory() string {
	var lines []string
	lines = append(lines, styleHeader.Render("History: "+m.historyChat.DisplayName()))

	if len(m.history) == 0 {
		lines = append(lines, styleDimmed.Render("  no archived messages for this chat"))
		return strings.Join(lines, "\n")
	}

	for _, msg := range m.history {
		who := msg.Username
		if who == "" && msg.UserID != 0 {
			who = fmt.Sprintf("user %d", msg.UserID)
		}
		ts := msg.Timestamp.Format("Jan 02 15:04")
		lines = append(lines, fmt.Sprintf("  %s  %-16s %s",
			styleDimmed.Render(ts), truncate(who, 16), truncate(msg.Content, 60)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewMonitor() string {
	entries := m.core.MonitorEntries()
	if m.paused {
		entries = m.pausedEntries
	}

	title := "Live monitor"
	if m.paused {
		title += styleDimmed.Render("  [paused]")
	}

	var lines []string
	lines = append(lines, styleHeader.Render(title))
	if len(entries) == 0 {
		lines = append(lines, styleDimmed.Render("  waiting for updates..."))
		return strings.Join(lines, "\n")
	}

	// Newest at the bottom, terminal style.
	for _, e := range entries {
		lines = append(lines, renderEventLine(e))
	}
	return strings.Join(lines, "\n")
}

func renderEventLine(e app.RingEntry) string {
	ts := e.ReceivedAt.Format("15:04:05")

	if e.Result.Err != nil {
		return fmt.Sprintf("  %s  %s %s",
			styleDimmed.Render(ts),
			styleError.Render("undecodable"),
			styleDimmed.Render(truncate(string(e.Result.Err.Raw), 50)))
	}

	ev := e.Result.Event
	kind := string(ev.Kind)
	if ev.Kind == telegram.KindUnrecognized && ev.RawKind != "" {
		kind = ev.RawKind + "?"
	}
	kindStr := lipgloss.NewStyle().Foreground(kindColor(string(ev.Kind))).Render(fmt.Sprintf("%-20s", kind))

	where := ""
	if ev.Chat != nil {
		where = truncate(ev.Chat.DisplayName(), 20)
	}
	who := ""
	if ev.From != nil {
		who = truncate(ev.From.DisplayName(), 14)
	}

	return fmt.Sprintf("  %s  %s %-20s %-14s %s",
		styleDimmed.Render(ts), kindStr, where, who, truncate(ev.Text, 40))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
