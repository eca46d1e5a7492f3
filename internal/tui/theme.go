package tui

import "github.com/charmbracelet/lipgloss"

// Update kind colors.
var (
	colorMessage  = lipgloss.Color("#3b82f6")
	colorEdited   = lipgloss.Color("#06b6d4")
	colorChannel  = lipgloss.Color("#a855f7")
	colorCallback = lipgloss.Color("#d97706")
	colorMember   = lipgloss.Color("#22c55e")
	colorOther    = lipgloss.Color("#9ca3af")
	colorBroken   = lipgloss.Color("#dc2626")
)

// Poller state colors.
var (
	colorPolling  = lipgloss.Color("#16a34a")
	colorDegraded = lipgloss.Color("#d97706")
	colorIdle     = lipgloss.Color("#4b5563")
	colorFatal    = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	colorBorder = lipgloss.Color("#4b5563")
	colorDimmed = lipgloss.Color("#6b7280")
	colorBright = lipgloss.Color("#f9fafb")
	colorAccent = lipgloss.Color("#a855f7")
)

// Reusable styles.
var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleDimmed   = lipgloss.NewStyle().Foreground(colorDimmed)
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleError    = lipgloss.NewStyle().Foreground(colorBroken)
	styleOK       = lipgloss.NewStyle().Foreground(colorPolling)
	styleBox      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// kindColor maps an update kind to its display color.
func kindColor(kind string) lipgloss.Color {
	switch kind {
	case "message", "business_message":
		return colorMessage
	case "edited_message", "edited_business_message":
		return colorEdited
	case "channel_post", "edited_channel_post":
		return colorChannel
	case "callback_query", "inline_query", "chosen_inline_result":
		return colorCallback
	case "my_chat_member", "chat_member", "chat_join_request":
		return colorMember
	default:
		return colorOther
	}
}

// stateColor maps a poller state to its display color.
func stateColor(state string, degraded, fatal bool) lipgloss.Color {
	if fatal {
		return colorFatal
	}
	if degraded {
		return colorDegraded
	}
	switch state {
	case "polling":
		return colorPolling
	default:
		return colorIdle
	}
}
