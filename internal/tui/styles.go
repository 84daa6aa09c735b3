package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/livecaphq/livecap/internal/transcript"
)

// Base styles for livecap TUI components
var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Success style for positive feedback
	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Error style for error messages
	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// Warning style for warnings
	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and descriptions
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	styleSpeaker = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	styleCaption = lipgloss.NewStyle().
			Foreground(ColorText)
)

const logoASCII = `
 _ _
| (_)_   _____  ___ __ _ _ __
| | \ \ / / _ \/ __/ _` + "`" + ` | '_ \
| | |\ V /  __/ (_| (_| | |_) |
|_|_| \_/ \___|\___\__,_| .__/
                        |_|   `

// Logo returns the livecap ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// RenderEntry formats one transcript line for the terminal viewer.
func RenderEntry(e transcript.Entry) string {
	ts := StyleSubtle.Render(e.Timestamp.Format("15:04:05"))
	who := styleSpeaker.Render(speakerLabel(e.Sender))
	text := styleCaption.Render(e.Text)
	if e.Partial {
		text = StyleMuted.Render(e.Text)
	}
	return ts + " " + who + " " + text
}

func speakerLabel(s transcript.Sender) string {
	switch s {
	case transcript.SenderSpeaker:
		return "host"
	default:
		return string(s)
	}
}
