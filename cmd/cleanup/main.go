package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"image4marketing/internal/adapter/repo"
	"image4marketing/internal/infra"
)

// counter is a table that can be counted and emptied.
type counter interface {
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type tables struct {
	images   counter
	sessions counter
	users    interface {
		Count(ctx context.Context) (int64, error)
	}
}

var flagDryRun bool

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every generated image and editing session",
		Long: `cleanup empties the images and sessions tables to free database quota.
User accounts are kept. Run with --dry-run to only print the current counts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			logger := infra.NewLogger("cli").With().Str("cmd", "cleanup").Logger()
			pool, err := infra.NewDBPool(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			sql := infra.NewSQLRunner(pool, logger)
			return runCleanup(ctx, cmd.OutOrStdout(), tables{
				images:   repo.NewImageRepository(sql),
				sessions: repo.NewSessionRepository(sql),
				users:    repo.NewUserRepository(sql),
			}, flagDryRun)
		},
	}
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "only report how many rows would be deleted")
	return cmd
}

// runCleanup deletes images before sessions so the foreign keys hold at
// every step.
func runCleanup(ctx context.Context, out io.Writer, t tables, dryRun bool) error {
	images, err := t.images.Count(ctx)
	if err != nil {
		return fmt.Errorf("count images: %w", err)
	}
	sessions, err := t.sessions.Count(ctx)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	users, err := t.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	fmt.Fprintf(out, "images: %d\nsessions: %d\nusers: %d\n", images, sessions, users)
	if dryRun {
		fmt.Fprintln(out, "dry run: nothing deleted")
		return nil
	}

	deletedImages, err := t.images.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	deletedSessions, err := t.sessions.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	fmt.Fprintf(out, "deleted %d images and %d sessions, kept %d users\n", deletedImages, deletedSessions, users)
	return nil
}
