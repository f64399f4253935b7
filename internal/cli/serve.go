package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, a, err := opts.load()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.HTTP.ListenAddr = listenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(server.Config{
				ListenAddr:            cfg.HTTP.ListenAddr,
				MaxUploadBytes:        cfg.HTTP.MaxUploadBytes,
				TrustForwardedHeaders: cfg.HTTP.TrustForwardedHeaders,
				AllowedOrigins:        cfg.HTTP.AllowedOrigins,
				Logger:                a.Logger,
			}, a.Scans, a.Limiter)
			httpSrv := srv.HTTPServer()

			if err := a.Start(); err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
				errCh <- httpSrv.ListenAndServe()
			}()

			var serveErr error
			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					serveErr = fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn("http shutdown", logging.Err(err))
			}
			if err := a.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn("application shutdown", logging.Err(err))
			}
			return serveErr
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "override http.listen_addr")
	return cmd
}
