package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ambientctx/internal/collector"
)

var servePort int

// readyTimeout bounds /v1/context/ready when the client gives no timeout.
const readyTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the published context over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCollector(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		// The first pass starts with the server, like a page load.
		env.Collector.Start(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Collector, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("session", env.SessionID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter exposes the collector's publication surface over HTTP.
func newRouter(c *collector.Collector, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/context", func(w http.ResponseWriter, _ *http.Request) {
			uc, ok := c.Latest()
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "context not ready"})
				return
			}
			writeJSON(w, http.StatusOK, uc)
		})

		r.Get("/context/ready", func(w http.ResponseWriter, req *http.Request) {
			timeout := readyTimeout
			if raw := req.URL.Query().Get("timeout"); raw != "" {
				d, err := time.ParseDuration(raw)
				if err != nil || d <= 0 {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeout"})
					return
				}
				timeout = d
			}

			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()

			uc, err := c.Wait(ctx)
			if err != nil {
				writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "context not ready"})
				return
			}
			writeJSON(w, http.StatusOK, uc)
		})

		r.Post("/collect", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, c.Collect(req.Context()))
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
