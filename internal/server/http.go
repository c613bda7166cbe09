// Package server exposes the index over HTTP next to the Telegram webhook.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoindex/internal/indexer"
)

// ChartRenderer draws a computed index.
type ChartRenderer interface {
	RenderResult(res *indexer.Result) ([]byte, error)
}

// Options configure the mux. Webhook and Renderer are optional.
type Options struct {
	Service  indexer.Service
	Renderer ChartRenderer
	Defaults indexer.Defaults
	Webhook  http.HandlerFunc
	// Timeout bounds one index computation.
	Timeout time.Duration
	Logger  log.Logger
}

// NewHTTPMux registers the API, health, metrics and webhook routes.
func NewHTTPMux(opts Options) *http.ServeMux {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	api := &indexAPI{
		svc:      opts.Service,
		renderer: opts.Renderer,
		defaults: opts.Defaults,
		timeout:  opts.Timeout,
		errors:   newErrorProcessor(opts.Logger),
	}

	mux := http.NewServeMux()
	if opts.Webhook != nil {
		mux.HandleFunc("/telegram/webhook", opts.Webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/index", api.serveJSON)
	if opts.Renderer != nil {
		mux.HandleFunc("/api/index.png", api.servePNG)
	}
	return mux
}

// NewServer wraps mux in an http.Server listening on addr.
func NewServer(addr string, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Shutdown stops srv, waiting at most timeout for open requests.
func Shutdown(srv *http.Server, timeout time.Duration, logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = level.Error(logger).Log("msg", "http shutdown", "err", err)
	}
}

type indexAPI struct {
	svc      indexer.Service
	renderer ChartRenderer
	defaults indexer.Defaults
	timeout  time.Duration
	errors   *errorProcessor
}

func (a *indexAPI) compute(w http.ResponseWriter, r *http.Request) (*indexer.Result, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	req, err := decodeIndexRequest(r, a.defaults)
	if err != nil {
		a.errors.Encode(w, r, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	res, err := a.svc.Compute(ctx, req)
	if err != nil {
		a.errors.Encode(w, r, err)
		return nil, false
	}
	return res, true
}

func (a *indexAPI) serveJSON(w http.ResponseWriter, r *http.Request) {
	res, ok := a.compute(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, encodeResult(res))
}

func (a *indexAPI) servePNG(w http.ResponseWriter, r *http.Request) {
	res, ok := a.compute(w, r)
	if !ok {
		return
	}
	img, err := a.renderer.RenderResult(res)
	if err != nil {
		a.errors.Encode(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
