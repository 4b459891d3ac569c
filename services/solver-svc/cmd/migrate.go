package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jimmyskull/goblin.2.8b18-sub000/migrations"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/database"
)

var errNoDatabase = errors.New("database is not enabled or not reachable")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run history schema",
	}

	withMigrator := func(fn func(ctx context.Context, cmd *cobra.Command, m *database.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if a.db == nil {
				return errNoDatabase
			}
			if err := a.db.HealthCheck(cmd.Context()); err != nil {
				return err
			}
			m, err := database.NewMigrator(a.db.Pool(), migrations.Postgres())
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd.Context(), cmd, m)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, _ *cobra.Command, m *database.Migrator) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, _ *cobra.Command, m *database.Migrator) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, m *database.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED\tFILE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return w.Flush()
			}),
		},
	)
	return cmd
}
