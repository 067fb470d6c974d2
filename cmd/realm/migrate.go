package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Arthur-Pio/axelor-open-platform/internal/migrate"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
	"github.com/Arthur-Pio/axelor-open-platform/internal/persistence"
)

type migrateOptions struct {
	dir   string
	seeds string
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	mo := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the auth_group / auth_user schema",
	}
	cmd.PersistentFlags().StringVar(&mo.dir, "dir", "", "migrations directory (defaults to the embedded set)")
	cmd.PersistentFlags().StringVar(&mo.seeds, "seeds", "", "seeds directory (defaults to the embedded set)")

	run := func(action func(ctx context.Context, m *migrate.Manager, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), opts, mo, func(m *migrate.Manager) error {
				return action(cmd.Context(), m, cmd)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, m *migrate.Manager, _ *cobra.Command) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, m *migrate.Manager, _ *cobra.Command) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, m *migrate.Manager, cmd *cobra.Command) error {
				applied, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, name := range applied {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the default groups",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, m *migrate.Manager, _ *cobra.Command) error {
				return m.Seed(ctx)
			}),
		},
	)
	return cmd
}

// withMigrator opens the default connection without schema management and hands it to fn.
func withMigrator(ctx context.Context, opts *rootOptions, mo *migrateOptions, fn func(*migrate.Manager) error) error {
	settings := opts.settings.With("db.default.ddl", "none")
	mgr, err := persistence.New(settings, persistence.WithAutoscan(false), persistence.WithAutostart(false))
	if err != nil {
		return err
	}
	defer mgr.Close()
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	db, err := mgr.SQLDB(ctx)
	if err != nil {
		return err
	}

	migrations := migrate.Embedded()
	if mo.dir != "" {
		migrations = os.DirFS(mo.dir)
	}
	seeds := migrate.EmbeddedSeeds()
	if mo.seeds != "" {
		seeds = os.DirFS(mo.seeds)
	}
	return fn(migrate.NewManager(db, migrations, seeds, migrate.WithLogger(obs.WithComponent("migrate"))))
}
