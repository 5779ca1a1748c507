package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"linkcamp/internal/common"
	"linkcamp/internal/config"
	"linkcamp/internal/wire"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "linkcamp",
		Short:         "Campus social feed backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP, realtime and health servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	cmd.AddCommand(tokenCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "linkcamp version %s (build: %s)\n", Version, BuildTime)
		},
	})
	return cmd
}

func tokenCmd() *cobra.Command {
	var email, uid string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a local HS256 token for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.ValidateEmail(email); err != nil {
				return err
			}
			cfg := config.LoadConfig()
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if uid == "" {
				uid = uuid.NewString()
			}
			token, err := common.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL).GenerateToken(uid, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email the token is issued for")
	cmd.Flags().StringVar(&uid, "uid", "", "subject claim (random when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := wire.InitializeApplication(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()
	log := app.Log

	lis, err := net.Listen("tcp", ":"+app.Config.Server.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen on health port %s: %w", app.Config.Server.GRPCHealthPort, err)
	}
	go func() {
		if err := app.Health.Serve(lis); err != nil {
			log.Error("grpc health server stopped", "error", err)
		}
	}()
	app.Health.Probe(ctx)
	go app.Health.Watch(ctx, 15*time.Second)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.HTTP.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			app.Health.Shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	}

	app.Health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.HTTP.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}
