package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/app"
	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/BradenHooton/loginguard/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app.App) error {
					if err := migrations.Up(cmd.Context(), a.DB.Pool); err != nil {
						return err
					}
					fmt.Fprintln(c.out, "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app.App) error {
					return migrations.Status(cmd.Context(), a.DB.Pool)
				})
			},
		},
	)
	return cmd
}

func newUnlockCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <email>",
		Short: "Clear the lock on an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := services.NormalizeIdentity(args[0])
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Lockouts.Unlock(cmd.Context(), email, c.actor); err != nil {
					return err
				}
				return c.print(map[string]any{"email": email, "unlocked": true})
			})
		},
	}
}

func newLockCmd(c *cli) *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "lock <email>",
		Short: "Lock an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := services.NormalizeIdentity(args[0])
			return c.withApp(cmd.Context(), func(a *app.App) error {
				lock, err := a.Lockouts.Lock(cmd.Context(), email, time.Duration(minutes)*time.Minute, c.actor)
				if err != nil {
					return err
				}
				return c.print(lock)
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Lock duration in minutes (default: configured lockout duration)")
	return cmd
}

func newCleanupCmd(c *cli) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete login attempts older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				var deleted int64
				var err error
				if days == 0 {
					deleted, err = a.Retention.PurgeConfigured(cmd.Context(), c.actor)
				} else {
					deleted, err = a.Retention.PurgeOlderThan(cmd.Context(), c.actor, days)
				}
				if err != nil {
					return fmt.Errorf("%w (deleted %d before stopping)", err, deleted)
				}
				return c.print(map[string]any{"deleted_count": deleted})
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Delete attempts older than this many days (default: configured retention)")
	return cmd
}

func newNotifyTestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to every configured channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Notifications.SendTest(cmd.Context(), c.actor); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "test notification sent")
				return nil
			})
		},
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the security settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings with the bot token masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				cfg, err := a.SecurityCfg.Get(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(cfg.Masked())
			})
		},
	})
	return cmd
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		tokenType string
		scopes    string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	mint := &cobra.Command{
		Use:   "mint <subject>",
		Short: "Mint a signed bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, cfg.Auth.DefaultTokenTTL)
			token, expiresAt, err := tm.GenerateToken(args[0], tokenType, splitScopes(scopes), ttl)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"token": token, "expires_at": expiresAt})
		},
	}
	mint.Flags().StringVar(&tokenType, "type", models.TokenTypeService, "Token type: service|admin")
	mint.Flags().StringVar(&scopes, "scopes", models.ScopeGuardAttempts, "Comma-separated scopes")
	mint.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: JWT_DEFAULT_TTL)")
	cmd.AddCommand(mint)
	return cmd
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
