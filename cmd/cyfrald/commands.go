package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/cyfral-controller/internal/hardware"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/config"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/database"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/mqtt"
	"github.com/nerrad567/cyfral-controller/internal/intercom"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "CYFRAL_CONFIG"
	sendTimeout       = 15 * time.Second
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cyfrald",
		Short: "Run the Cyfral intercom controller.",
		Long: `Runs the intercom controller daemon.

The daemon samples the call line, drives the sound, handset and door button
relays, and publishes call, sound mode and auto-open state over MQTT. Commands
arrive on the MQTT control topic or the optional local HTTP API.

The configuration path comes from --config, then $CYFRAL_CONFIG, then
configs/config.yaml.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, resolveConfigPath(configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	root.AddCommand(
		newSendCmd(&configPath),
		newMigrateCmd(&configPath),
		newRTCSyncCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath applies flag, then environment, then default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cyfrald %s (commit %s, built %s)\n", version, commit, date) //nolint:errcheck // terminal output
		},
	}
}

func newSendCmd(configPath *string) *cobra.Command {
	names := make([]string, 0, len(intercom.Commands()))
	for _, c := range intercom.Commands() {
		names = append(names, c.String())
	}

	return &cobra.Command{
		Use:   "send COMMAND",
		Short: "Publish a command to a running controller over MQTT.",
		Long: `Publishes COMMAND to the control topic of the configured broker, exactly
as a home automation system would. Names are case-insensitive.

Commands: ` + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
			defer cancel()
			return sendCommand(ctx, cmd, cfg.MQTT, args[0])
		},
	}
}

// commandSender is the part of *mqtt.Client used by send.
type commandSender interface {
	Connect(ctx context.Context) error
	SendCommand(command string) error
	Close() error
}

// senderFactory is swapped in tests.
var senderFactory = func(cfg config.MQTTConfig) commandSender {
	return mqtt.New(cfg, mqtt.WithoutAvailability())
}

func sendCommand(ctx context.Context, cmd *cobra.Command, cfg config.MQTTConfig, name string) error {
	command, err := intercom.ParseCommand(strings.ToUpper(name))
	if err != nil {
		return err
	}

	sender := senderFactory(cfg)
	if err := sender.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer sender.Close() //nolint:errcheck // best effort on exit

	if err := sender.SendCommand(command.String()); err != nil {
		return fmt.Errorf("sending %s: %w", command, err)
	}

	topic := mqtt.NewTopics(cfg.TopicPrefix).Control()
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", command, topic) //nolint:errcheck // terminal output
	return nil
}

func newRTCSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rtc-sync",
		Short: "Write the system time into the DS1307 real-time clock.",
		Long: `Copies the current system time, in the configured device timezone, into
the DS1307 on the configured I2C bus and reads it back.

Run it once after the system clock has been synchronised (for example by NTP)
so the controller keeps correct mute hours across power cuts without network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigPath(*configPath))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return syncRTC(cmd, cfg, time.Now)
		},
	}
}

// rtcOpener is swapped in tests.
var rtcOpener = func(cfg config.RTCConfig, loc *time.Location) (rtc, func() error, error) {
	dev, closeBus, err := hardware.OpenRTC(cfg, loc)
	if err != nil {
		return nil, nil, err
	}
	return dev, closeBus, nil
}

type rtc interface {
	SetTime(t time.Time) error
	CurrentTime() (time.Time, error)
}

func syncRTC(cmd *cobra.Command, cfg *config.Config, now func() time.Time) error {
	if !cfg.Hardware.RTC.Enabled {
		return fmt.Errorf("hardware.rtc.enabled is false")
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving timezone: %w", err)
	}

	dev, closeBus, err := rtcOpener(cfg.Hardware.RTC, loc)
	if err != nil {
		return err
	}
	defer closeBus() //nolint:errcheck // best effort on exit

	want := now().In(loc)
	if err := dev.SetTime(want); err != nil {
		return fmt.Errorf("writing RTC: %w", err)
	}
	got, err := dev.CurrentTime()
	if err != nil {
		return fmt.Errorf("reading back RTC: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "RTC set to %s\n", got.Format(time.RFC3339)) //nolint:errcheck // terminal output
	return nil
}

func newMigrateCmd(configPath *string) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the event journal schema.",
		Long: `Applies, reverts or lists event journal migrations against the database
named in the configuration. The daemon applies pending migrations on start,
so "up" is only needed to prepare a database ahead of time.`,
	}

	for _, action := range []struct {
		use, short string
	}{
		{"up", "Apply every pending migration."},
		{"down", "Revert the most recently applied migration."},
		{"status", "List applied and pending migrations."},
	} {
		migrate.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(resolveConfigPath(*configPath))
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				return runMigration(cmd.Context(), cmd.OutOrStdout(), cfg.Database, cmd.Name())
			},
		})
	}
	return migrate
}

func runMigration(ctx context.Context, out io.Writer, cfg config.DatabaseConfig, action string) error {
	if cfg.Path == "" {
		return fmt.Errorf("database.path is not set")
	}
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // best effort on exit

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return err
		}
	}
	return printMigrationStatus(ctx, out, db)
}

func printMigrationStatus(ctx context.Context, out io.Writer, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range applied {
		fmt.Fprintf(w, "applied\t%s\t%s\n", r.Version, r.AppliedAt.UTC().Format(time.RFC3339)) //nolint:errcheck // terminal output
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending\t%s\t%s\n", m.Version, m.Name) //nolint:errcheck // terminal output
	}
	return w.Flush()
}
