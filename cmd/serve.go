package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mandirickels/Chemical-Inventory-Creator/internal/extraction"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/handlers"
	"github.com/mandirickels/Chemical-Inventory-Creator/internal/session"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inventory web API",
		Long: `Starts the JSON API used by the inventory web client.

Clients upload label images, start an extraction batch, poll the session
state, edit records, look chemicals up and download the spreadsheet.`,
		Example: `  # Start server on default port 8888
  cheminv serve

  # Start server on custom port
  cheminv serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			svc, err := extraction.NewService(cfg.ExtractionOptions())
			if err != nil {
				return err
			}
			sess := session.New(svc, cfg.Concurrency)

			handler := handlers.New(cmd.Context(), sess, handlers.Options{
				MaxUploadMB:    cfg.MaxUploadMB,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Inventory API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"provider", svc.Provider(),
					"model", svc.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
