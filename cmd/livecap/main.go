package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livecaphq/livecap/internal/bus"
	"github.com/livecaphq/livecap/internal/config"
	"github.com/livecaphq/livecap/internal/daemon"
	"github.com/livecaphq/livecap/internal/deps"
	"github.com/livecaphq/livecap/internal/notify"
	"github.com/livecaphq/livecap/internal/relay"
	"github.com/livecaphq/livecap/internal/session"
	"github.com/livecaphq/livecap/internal/tui"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "livecap",
	Short: "Live captions from your microphone, shared with approved viewers",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		joinCmd(),
		relayCmd(),
		toggleCmd(),
		clearCmd(),
		approveCmd(),
		rejectCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			printStatus("pw-record (microphone capture)", deps.CheckPipeWire())
			printStatus("notify-send (desktop notifications)", deps.CheckNotifySend())
			return nil
		},
	}
}

func printStatus(name string, s deps.Status) {
	if !s.Installed {
		fmt.Printf("[ ] %s: not found\n", name)
		return
	}
	line := fmt.Sprintf("[x] %s: %s", name, s.Path)
	if s.Version != "" {
		line += " (" + s.Version + ")"
	}
	fmt.Println(line)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the caption host daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				if errors.Is(err, config.ErrConfigNotFound) {
					fmt.Println("No configuration found. Run: livecap configure")
				}
				return err
			}
			cfg := manager.GetConfig()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			d := daemon.New(manager, notify.ForType(cfg.Notifications.Type, cfg.Notifications.Enabled))
			return d.Run()
		},
	}
}

func joinCmd() *cobra.Command {
	var relayURL string
	var displayName string

	cmd := &cobra.Command{
		Use:   "join <session>",
		Short: "Join a caption session as a viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(args[0], relayURL, displayName)
		},
	}

	cmd.Flags().StringVar(&relayURL, "relay", "", "relay server URL (defaults to the configured one)")
	cmd.Flags().StringVar(&displayName, "name", "", "name shown to the host")

	return cmd
}

func runJoin(rawSession, relayURL, displayName string) error {
	if relayURL == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("no relay URL: pass --relay or run livecap configure")
		}
		relayURL = cfg.Session.RelayURL
		if displayName == "" {
			displayName = cfg.Session.DisplayName
		}
	}
	if relayURL == "" {
		return fmt.Errorf("no relay URL: pass --relay or set session.relay_url")
	}

	selfID, err := session.LoadIdentity()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	sessionID := relay.NormalizeSessionID(rawSession)
	channel := relay.NewWSChannel(relayURL, sessionID, selfID)
	coord := session.NewGuestNamed(channel, selfID, displayName, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := coord.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", sessionID, err)
	}
	defer coord.Close()

	viewer := tui.NewViewer(coord, sessionID)
	if err := viewer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func relayCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a relay server for caption sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := relay.NewServer()
			log.Printf("relay: listening on %s", addr)
			return http.ListenAndServe(addr, srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")

	return cmd
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start or stop captioning",
		RunE:  sendCmd(bus.CmdToggle, "toggle captioning"),
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the shared transcript",
		RunE:  sendCmd(bus.CmdClear, "clear transcript"),
	}
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve",
		Short: "Approve the pending join request",
		RunE:  sendCmd(bus.CmdApprove, "approve request"),
	}
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject",
		Short: "Reject the pending join request",
		RunE:  sendCmd(bus.CmdReject, "reject request"),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get session and capture status",
		RunE:  sendCmd(bus.CmdStatus, "get status"),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE:  sendCmd(bus.CmdVersion, "get version"),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon and end the session",
		RunE:  sendCmd(bus.CmdQuit, "stop daemon"),
	}
}

func sendCmd(command byte, action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := bus.SendCommand(command)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", action, err)
		}
		fmt.Print(resp)
		return nil
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for livecap.
This will guide you through setting up:
- The speech-to-text backend (inference server or OpenAI)
- Session name and relay server
- Silence gating and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.DefaultConfig()
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps(result.Config)

	return nil
}

func showNextSteps(cfg *config.Config) {
	fmt.Println("Next Steps:")
	step := 1
	if cfg.Session.Backend == "websocket" {
		fmt.Printf("%d. Make sure a relay is reachable at %s (or run: livecap relay)\n", step, cfg.Session.RelayURL)
		step++
	}
	fmt.Printf("%d. Start the host daemon: livecap serve\n", step)
	step++
	fmt.Printf("%d. Start captioning: livecap toggle\n", step)
	step++
	fmt.Printf("%d. Viewers join with: livecap join %s --relay <url>\n", step, cfg.Session.ID)
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}
