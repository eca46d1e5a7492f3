package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edgard/botscope/internal/app"
)

// histogramBarWidth is the maximum width of one hourly bar.
const histogramBarWidth = 30

func (m Model) viewAnalytics() string {
	snap := m.core.Analytics().Snapshot()

	var b strings.Builder
	b.WriteString(styleHeader.Render("Analytics") + "\n")
	b.WriteString(fmt.Sprintf("  total events      %d\n", snap.Total))
	b.WriteString(fmt.Sprintf("  decode failures   %d\n", snap.DecodeFailures))
	b.WriteString(fmt.Sprintf("  without timestamp %d\n", snap.NoTimestamp))

	b.WriteString("\n" + styleHeader.Render("By kind") + "\n")
	if len(snap.PerKind) == 0 {
		b.WriteString(styleDimmed.Render("  nothing yet") + "\n")
	}
	for i, kc := range snap.PerKind {
		if i >= 10 {
			b.WriteString(styleDimmed.Render(fmt.Sprintf("  ... and %d more kinds", len(snap.PerKind)-i)) + "\n")
			break
		}
		b.WriteString(fmt.Sprintf("  %-24s %6d\n", kc.Kind, kc.Count))
	}

	b.WriteString("\n" + styleHeader.Render("Top chats") + "\n")
	for i, cc := range snap.PerChat {
		if i >= 10 {
			break
		}
		name := fmt.Sprintf("chat %d", cc.ChatID)
		if chat, ok := m.core.Registry().Get(cc.ChatID); ok {
			name = chat.DisplayName()
		}
		b.WriteString(fmt.Sprintf("  %-32s %6d\n", truncate(name, 32), cc.Count))
	}

	b.WriteString("\n" + styleHeader.Render("Activity by hour (UTC)") + "\n")
	b.WriteString(renderHistogram(snap.Hourly))

	return b.String()
}

func renderHistogram(hourly [24]int64) string {
	var peak int64
	for _, n := range hourly {
		if n > peak {
			peak = n
		}
	}

	var b strings.Builder
	for h, n := range hourly {
		bar := ""
		if peak > 0 && n > 0 {
			w := int(n * histogramBarWidth / peak)
			if w == 0 {
				w = 1
			}
			bar = strings.Repeat("█", w)
		}
		b.WriteString(fmt.Sprintf("  %02d %s %d\n", h, styleOK.Render(bar), n))
	}
	return b.String()
}

func (m Model) viewRaw() string {
	entries := m.core.RawEntries()

	var lines []string
	lines = append(lines, styleHeader.Render("Raw updates"))
	if len(entries) == 0 {
		lines = append(lines, styleDimmed.Render("  nothing captured yet"))
		return strings.Join(lines, "\n")
	}

	idx := m.rawIdx
	if idx >= len(entries) {
		idx = len(entries) - 1
	}

	for i, e := range entries {
		prefix := "  "
		style := styleDimmed
		if i == idx {
			prefix = "> "
			style = styleSelected
		}
		label := fmt.Sprintf("#%d", e.Seq)
		if e.Result.Err != nil {
			label += " undecodable"
		} else {
			label += fmt.Sprintf(" update %d %s", e.Result.Event.UpdateID, e.Result.Event.Kind)
		}
		lines = append(lines, style.Render(prefix+label))
	}

	lines = append(lines, "")
	lines = append(lines, styleBox.Render(renderRawBody(entries[idx])))
	return strings.Join(lines, "\n")
}

func renderRawBody(e app.RingEntry) string {
	raw := []byte(e.Result.Event.Raw)
	if e.Result.Err != nil {
		raw = e.Result.Err.Raw
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Undecodable records are shown as-is.
		return truncate(string(raw), 2000)
	}
	return truncate(pretty.String(), 2000)
}

func (m Model) viewWebhook() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Webhook") + "\n\n")

	hook := m.core.Webhook()
	if hook == nil {
		b.WriteString(styleDimmed.Render("  webhook controller unavailable") + "\n")
		return b.String()
	}

	if info, known := hook.Info(); known {
		if info.URL == "" {
			b.WriteString("  current: " + styleDimmed.Render("none (polling)") + "\n")
		} else {
			b.WriteString("  current: " + info.URL + "\n")
			b.WriteString(fmt.Sprintf("  pending: %d\n", info.PendingUpdateCount))
			if info.LastErrorMessage != "" {
				b.WriteString("  last error: " + styleError.Render(truncate(info.LastErrorMessage, 60)) + "\n")
			}
		}
	} else {
		b.WriteString("  current: " + styleDimmed.Render("unknown, press f to refresh") + "\n")
	}

	b.WriteString("\n  new url: " + m.urlInput.View() + "\n")
	b.WriteString(styleDimmed.Render("\n  registering a webhook suspends polling until it is cleared"))
	return b.String()
}

func (m Model) viewCompose() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Send test message") + "\n\n")
	b.WriteString("  chat id: " + m.chatInput.View() + "\n")
	b.WriteString("  thread:  " + m.threadInput.View() + "\n")
	b.WriteString("  text:    " + m.msgInput.View() + "\n")
	return b.String()
}

func (m Model) viewHelp() string {
	rows := [][2]string{
		{"h / esc", "home screen"},
		{"c", "discovered chats; enter opens archived history"},
		{"m", "live monitor; p pauses the feed"},
		{"a", "analytics: kinds, chats, hourly histogram"},
		{"r", "raw update inspector"},
		{"w", "webhook management"},
		{"t", "send a test message"},
		{"f", "refresh webhook state from the API"},
		{"j / k", "move selection"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(styleHeader.Render("Keys") + "\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", r[0], r[1]))
	}
	return b.String()
}
