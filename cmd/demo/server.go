package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/comalice/hfsm/internal/production"
)

const shutdownTimeout = 5 * time.Second

// newRouter exposes metrics and the live tree of h.
//
//	GET /healthz     liveness
//	GET /metrics     Prometheus exposition of h.registry
//	GET /graph       Graphviz DOT of the active tree and observed transitions
//	GET /graph.json  the same as JSON
//	GET /variables   shared variables of the root machine
func newRouter(h *host) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Get("/graph", func(w http.ResponseWriter, r *http.Request) {
		var dot string
		if err := h.exec(r.Context(), func() { dot = h.vis.ExportDOT(h.root) }); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.Write([]byte(dot))
	})
	r.Get("/graph.json", func(w http.ResponseWriter, r *http.Request) {
		var (
			data []byte
			err  error
		)
		if xerr := h.exec(r.Context(), func() { data, err = h.vis.ExportJSON(h.root) }); xerr != nil {
			http.Error(w, xerr.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	r.Get("/variables", func(w http.ResponseWriter, r *http.Request) {
		var node production.Node
		if err := h.exec(r.Context(), func() { node = production.Snapshot(h.root) }); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, node.Variables)
	})
	return r
}

// serve runs the diagnostics server on addr until ctx is done.
func serve(ctx context.Context, addr string, h *host) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		h.log.Info("diagnostics server listening", zap.String("addr", addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		h.log.Warn("graceful shutdown did not complete", zap.Duration("timeout", shutdownTimeout), zap.Error(err))
		return srv.Close()
	}
	h.log.Info("diagnostics server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
