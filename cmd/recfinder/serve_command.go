package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/recfinder/internal/api"
	"github.com/sydlexius/recfinder/internal/config"
	"github.com/sydlexius/recfinder/internal/metrics"
	"github.com/sydlexius/recfinder/internal/watcher"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return fmt.Errorf("invalid port: %d", port)
				}
				cfg.Server.Port = port
			}
			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("listening on port %d: %w", cfg.Server.Port, err)
			}
			return ctx.serve(cmd.Context(), cfg, ln, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config)")
	return cmd
}

// serve runs the API on ln until ctx is canceled, then shuts down gracefully.
func (c *commandContext) serve(ctx context.Context, cfg *config.Config, ln net.Listener, stderr io.Writer) error {
	m := metrics.New()
	svc, err := c.newService(cfg, m)
	if err != nil {
		ln.Close() //nolint:errcheck
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		Service:           svc,
		Metrics:           m.Handler(),
		Logger:            c.logger,
		BasePath:          cfg.Server.BasePath,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		TrustProxy:        cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Handler:           router.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A recommendation can fetch hundreds of documents.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if path := c.configPath(); path != "" {
		w := watcher.NewService(path, c.reloadLogging(path, stderr), c.logger)
		go w.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("base_path", cfg.Server.BasePath),
			slog.Int("workers", cfg.Filter.Workers),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	c.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// reloadLogging re-reads the config file and applies its logging section.
// Other settings need a restart.
func (c *commandContext) reloadLogging(path string, stderr io.Writer) watcher.ReloadFunc {
	return func(context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		next := loggingConfig(cfg, stderr)
		if c.logManager.Reconfigure(next) {
			c.logger.Info("logging handler rebuilt", slog.String("logging", next.String()))
		} else {
			c.logger.Info("log level updated", slog.String("level", next.Level))
		}
		return nil
	}
}
