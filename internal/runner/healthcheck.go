package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vk/kwgraph/internal/ctxlog"
)

// progress counts the runs of the current sweep.
type progress struct {
	total  atomic.Int64
	done   atomic.Int64
	failed atomic.Int64
}

func (p *progress) start(total int) {
	p.total.Store(int64(total))
	p.done.Store(0)
	p.failed.Store(0)
}

func (p *progress) finish() { p.done.Add(1) }
func (p *progress) fail()   { p.failed.Add(1) }

type progressReport struct {
	Status string `json:"status"`
	Runs   int64  `json:"runs"`
	Done   int64  `json:"done"`
	Failed int64  `json:"failed"`
}

func (p *progress) report() progressReport {
	return progressReport{Status: "ok", Runs: p.total.Load(), Done: p.done.Load(), Failed: p.failed.Load()}
}

// healthHandler reports sweep progress as JSON.
func (r *Runner) healthHandler(w http.ResponseWriter, req *http.Request) {
	r.logger.Debug("Health check endpoint hit.", "remote_addr", req.RemoteAddr, "path", req.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(r.progress.report()); err != nil {
		r.logger.Error("Health check response failed.", "error", err)
	}
}

// startHealthcheckServer serves /health until the returned function is
// called.
func (r *Runner) startHealthcheckServer(ctx context.Context, port int) (stop func()) {
	logger := ctxlog.FromContext(ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", r.healthHandler)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("Health check server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Health check server shutdown failed.", "error", err)
		}
	}
}
