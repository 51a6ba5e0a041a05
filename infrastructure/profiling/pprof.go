// Package profiling serves the runtime pprof endpoints on a private address.
package profiling

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
)

const readHeaderTimeout = 5 * time.Second

// Handler returns a mux with the /debug/pprof/ endpoints.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start serves Handler on addr until ctx is done. An empty addr disables
// profiling. Bind to localhost: the endpoints expose process internals.
func Start(ctx context.Context, addr string, log logger.Logger) {
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		//nolint:contextcheck // ctx is already cancelled
		_ = srv.Shutdown(context.Background())
	}()
}
