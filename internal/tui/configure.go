package tui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/livecaphq/livecap/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionSession       ConfigSection = "session"
	SectionCapture       ConfigSection = "capture"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the TUI configuration wizard.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			return &ConfigureResult{Config: cfg}, nil

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionTranscription:
			if err := editTranscription(cfg); err != nil {
				continue
			}

		case SectionSession:
			if err := editSession(cfg); err != nil {
				continue
			}

		case SectionCapture:
			if err := editCapture(cfg); err != nil {
				continue
			}

		case SectionNotifications:
			if err := editNotifications(cfg); err != nil {
				continue
			}
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(fmt.Sprintf("Transcription (%s)", cfg.Transcription.Provider), SectionTranscription),
		huh.NewOption(fmt.Sprintf("Session (%s)", sessionLabel(cfg)), SectionSession),
		huh.NewOption(fmt.Sprintf("Capture (silence: %s)", cfg.Capture.Silence.Policy), SectionCapture),
		huh.NewOption(fmt.Sprintf("Notifications (%s)", notificationsLabel(cfg)), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func sessionLabel(cfg *config.Config) string {
	if cfg.Session.ID == "" {
		return "not set"
	}
	return cfg.Session.ID
}

func notificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "off"
	}
	return cfg.Notifications.Type
}

func editTranscription(cfg *config.Config) error {
	provider := cfg.Transcription.Provider
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Speech-to-text provider").
				Options(
					huh.NewOption("Inference server (raw WAV endpoint)", "inference"),
					huh.NewOption("OpenAI Whisper API", "openai"),
				).
				Value(&provider),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Transcription.Provider = provider

	switch provider {
	case "inference":
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Endpoint URL").
					Description("POST target accepting audio/wav").
					Placeholder("http://localhost:8000/transcribe").
					Value(&cfg.Transcription.Endpoint).
					Validate(required("endpoint")),
				huh.NewInput().
					Title("Bearer token (optional)").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.Transcription.Token),
			),
		).WithTheme(getTheme())
	case "openai":
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API key").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.Transcription.Token).
					Validate(required("API key")),
				huh.NewInput().
					Title("Model").
					Placeholder("whisper-1").
					Value(&cfg.Transcription.Model),
				huh.NewInput().
					Title("Base URL (optional, for compatible APIs)").
					Value(&cfg.Transcription.Endpoint),
			),
		).WithTheme(getTheme())
	}
	return form.Run()
}

func editSession(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session name").
				Description("Viewers join with this name").
				Value(&cfg.Session.ID).
				Validate(required("session name")),
			huh.NewInput().
				Title("Relay server URL").
				Placeholder("http://localhost:9000").
				Value(&cfg.Session.RelayURL),
			huh.NewInput().
				Title("Display name (shown to the host when joining)").
				Value(&cfg.Session.DisplayName),
		),
	).WithTheme(getTheme())
	return form.Run()
}

func editCapture(cfg *config.Config) error {
	policy := cfg.Capture.Silence.Policy
	threshold := strconv.FormatFloat(cfg.Capture.Silence.Threshold, 'f', -1, 64)
	margin := strconv.FormatFloat(cfg.Capture.Silence.Margin, 'f', -1, 64)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Silence gating").
				Description("Skip transcription of silent chunks").
				Options(
					huh.NewOption("Off (send everything)", "off"),
					huh.NewOption("Fixed threshold", "fixed"),
					huh.NewOption("Adaptive (calibrates to ambient noise)", "adaptive"),
				).
				Value(&policy),
			huh.NewInput().
				Title("Fixed threshold (mean amplitude)").
				Value(&threshold).
				Validate(parseableFloat),
			huh.NewInput().
				Title("Adaptive margin (multiple of ambient level)").
				Value(&margin).
				Validate(parseableFloat),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Capture.Silence.Policy = policy
	if v, err := strconv.ParseFloat(threshold, 64); err == nil {
		cfg.Capture.Silence.Threshold = v
	}
	if v, err := strconv.ParseFloat(margin, 64); err == nil {
		cfg.Capture.Silence.Margin = v
	}
	return nil
}

func editNotifications(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&cfg.Notifications.Enabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&cfg.Notifications.Type),
		),
	).WithTheme(getTheme())
	return form.Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func parseableFloat(s string) error {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	return nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
