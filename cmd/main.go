package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/experiments-backend/internal/app"
	"github.com/yungbote/experiments-backend/internal/platform/envutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "experiments",
		Short:         app.ServiceBanner,
		Version:       app.ServiceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(issueTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			log.Info("Loading environment variables...")
			cfg := app.LoadConfig(log)
			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start()
			return application.Run(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			svc, err := app.OpenDB(log, app.LoadConfig(log))
			if err != nil {
				return err
			}
			defer svc.Close()
			log.Info("Migrations complete", "driver", svc.Driver())
			return nil
		},
	}
}

func issueTokenCmd() *cobra.Command {
	var (
		clientID int64
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an API token for a client using JWT_SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := services.NewJWTCredentials(envutil.String("JWT_SECRET_KEY", ""))
			if err != nil {
				return err
			}
			tok, err := signer.Issue(clientID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&clientID, "client-id", 0, "client id to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (0 = no expiry)")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}
