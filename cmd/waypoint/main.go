// Command waypoint walks flow definitions headlessly and inspects the state
// persisted for a user.
//
// Settings come from flags, WAYPOINT_* environment variables and an optional
// config file, in that order of precedence:
//
//	waypoint walk flows.yaml onboarding --branch 1
//	WAYPOINT_STORE=sqlite WAYPOINT_DSN=file:waypoint.db waypoint inspect --events
package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

// cli carries the resolved settings shared by every subcommand.
type cli struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:          "waypoint",
		Short:        "Walk guided flows and inspect their persisted state",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("store", "memory", "state backend: memory, sqlite, postgres or redis")
	flags.String("dsn", "", "data source name or redis URL of the state backend")
	flags.String("scope", "default", "user scope the state belongs to")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	for _, name := range []string{"store", "dsn", "scope", "log-level"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newWalkCmd(c), newInspectCmd(c), newResetCmd(c))
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.v.SetEnvPrefix("WAYPOINT")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)
	return nil
}

func (c *cli) backendSettings() backendSettings {
	return backendSettings{
		Kind:  c.v.GetString("store"),
		DSN:   c.v.GetString("dsn"),
		Scope: c.v.GetString("scope"),
	}
}
