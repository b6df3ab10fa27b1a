package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/handlers"
	"github.com/diva-haus/tryon/internal/janitor"
	"github.com/diva-haus/tryon/internal/storage"
	"github.com/diva-haus/tryon/internal/tryon"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the virtual try-on HTTP service",
		Long: `Starts the try-on API on the specified port.

The API accepts a person photo (upload, stored URL, or base64) plus a
product id, runs the configured AI provider, and returns the preview
result envelope.`,
		Example: `  # Start server on default port 8888
  tryon serve

  # Start server on custom port
  tryon serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			var products catalog.Lookup
			if cfg.DB.Host != "" {
				pg, err := catalog.OpenPostgres(cmd.Context(), cfg.DSN())
				if err != nil {
					return err
				}
				defer pg.Close()
				products = pg
			} else {
				slog.Warn("No catalog database configured, using empty in-memory catalog")
				products = catalog.NewMemory()
			}

			service := tryon.NewService(tryon.NewSelector(cfg, store, products))
			handler := handlers.New(service)

			// Prune expired temp uploads in the background (local disk only)
			if local, ok := store.(*storage.Local); ok {
				j, err := janitor.New(local, cfg.JanitorSchedule, cfg.TempMaxAge)
				if err != nil {
					return err
				}
				j.Start()
				defer j.Stop()
			}

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/tryon", handler.HandleTryOn)
			mux.HandleFunc("/api/providers", handler.HandleProviders)
			if local, ok := store.(*storage.Local); ok {
				mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir))))
			}
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Try-on service available", "addr", addr, "provider", cfg.Provider)
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
