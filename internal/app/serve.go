package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/server"
	"github.com/kobzarvs/qdraft/internal/store"
)

const shutdownTimeout = 5 * time.Second

func (a *App) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document store over HTTP",
		Long: `Serve exposes the configured store:

  GET    /documents/          list names
  GET    /documents/{name}    fetch (?format=json|yaml)
  PUT    /documents/{name}    validate and save
  DELETE /documents/{name}    remove
  GET    /metrics             Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st store.Store) error {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				handler := server.NewHandler(st, reg,
					server.WithDecodeOptions(a.decodeOptions()...),
					server.WithFormat(a.defaultFormat()))
				if !cmd.Flags().Changed("addr") {
					addr = a.cfg.Server.Addr
				}
				return serve(cmd.Context(), &http.Server{Addr: addr, Handler: handler}, func(addr string) {
					fmt.Fprintf(cmd.OutOrStdout(), "serving documents on %s\n", addr)
				})
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address; defaults to [server] addr")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, started func(addr string)) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		started(srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("http server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "error", err)
			return srv.Close()
		}
		return nil
	}
}
