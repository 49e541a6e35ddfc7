package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BradenHooton/loginguard/internal/app"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/spf13/cobra"
)

type cli struct {
	actor   string
	verbose bool
	out     io.Writer
}

// withApp loads configuration, connects, and runs fn against the wired services
func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, c.logger())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "guardctl",
		Short:         "Operator CLI for the login guard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.actor, "actor", defaultActor(), "Actor recorded in audit logs")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log at debug level to stderr")

	root.AddCommand(
		newMigrateCmd(c),
		newUnlockCmd(c),
		newLockCmd(c),
		newCleanupCmd(c),
		newNotifyTestCmd(c),
		newConfigCmd(c),
		newTokenCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
