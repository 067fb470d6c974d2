package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Arthur-Pio/axelor-open-platform/internal/config"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type rootOptions struct {
	configPath string
	logLevel   string
	actor      string
	settings   config.Settings
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "realm",
		Short:         "Authentication realm and persistence bootstrap",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.settings = settings
			level := opts.logLevel
			if level == "" {
				level = settings.Get("log.level")
			}
			obs.Configure(obs.Config{Level: level, Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("REALM_CONFIG"), "path to the YAML settings file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")
	root.PersistentFlags().StringVar(&opts.actor, "actor", "cli", "identity recorded as created_by/updated_by on writes")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newAccountCmd(opts),
		newGroupCmd(opts),
		newVerifyCmd(opts),
		newAuthzCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "realm:", err)
		os.Exit(1)
	}
}
