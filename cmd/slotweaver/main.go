package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/slotweaver/internal/profile"
	"github.com/hrygo/slotweaver/store"
	"github.com/hrygo/slotweaver/store/db"
)

var (
	v          = profile.NewViper()
	configFile string

	instanceProfile *profile.Profile
	logger          *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "slotweaver",
	Short: "Slotweaver - calendar-aware time planner",
	Long: `Slotweaver finds free time in a calendar and places events into it:
a weekly minutes budget, a recurring habit or a single task.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadProfile()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("mode", "dev", `mode of the instance: "prod", "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", `database driver: "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("timezone", "UTC", "IANA timezone plans are evaluated in")
	flags.String("log-format", "text", `log format: "text" or "json"`)
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("ranker", "none", `single-task ranker: "none", "rules" or "llm"`)

	for _, key := range []string{"mode", "data", "driver", "dsn", "timezone", "log-format", "log-level", "ranker"} {
		if err := v.BindPFlag(strings.ReplaceAll(key, "-", "_"), flags.Lookup(key)); err != nil {
			panic(err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadProfile loads and validates the profile, then installs the logger.
func loadProfile() error {
	p, err := profile.Load(v, configFile)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "invalid profile")
	}
	instanceProfile = p
	logger = newLogger(p)
	slog.SetDefault(logger)
	return nil
}

func newLogger(p *profile.Profile) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if p.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With(slog.String("mode", p.Mode))
}

// openStore opens and migrates the calendar store of the loaded profile.
// The caller closes it.
func openStore(ctx context.Context) (*store.Store, error) {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	s := store.New(driver, instanceProfile)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "failed to migrate store")
	}
	return s, nil
}

// calendarOrDefault returns id, or the profile's default calendar.
func calendarOrDefault(id string) string {
	if id != "" {
		return id
	}
	return instanceProfile.DefaultCalendar
}
