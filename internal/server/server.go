// Package server exposes a document store over HTTP.
//
// Documents are validated on the way in: a PUT body is converted to a
// content state and back, so stored documents are always canonical.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/store"
)

const maxBodySize = 8 << 20

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	saved    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qdraft_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "qdraft_http_request_duration_seconds",
			Help: "HTTP request latency by route",
		}, []string{"route"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qdraft_documents_saved_total",
			Help: "Documents accepted and written to the store",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.saved)
	return m
}

// Server serves documents from a store.
type Server struct {
	store   store.Store
	decode  []encoding.Option
	format  encoding.Format
	metrics *metrics
}

type Option func(*Server)

// WithDecodeOptions sets the options used to validate uploaded documents.
func WithDecodeOptions(opts ...encoding.Option) Option {
	return func(s *Server) { s.decode = opts }
}

// WithFormat sets the response format used when a request names none.
func WithFormat(f encoding.Format) Option {
	return func(s *Server) { s.format = f }
}

// NewHandler builds the router. Metrics are registered on reg and served
// from /metrics.
func NewHandler(st store.Store, reg *prometheus.Registry, opts ...Option) http.Handler {
	s := &Server{
		store:   st,
		format:  encoding.FormatJSON,
		metrics: newMetrics(reg),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.instrument, middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.list)
		r.Get("/{name}", s.get)
		r.Put("/{name}", s.put)
		r.Delete("/{name}", s.delete)
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		logger.Named("server").Debugw("request",
			"method", r.Method, "path", r.URL.Path, "code", sw.code, "elapsed", time.Since(start))
	})
}

// responseFormat picks the format from ?format=, then the first
// recognized Accept entry, then the server default.
func (s *Server) responseFormat(r *http.Request) (encoding.Format, error) {
	if v := r.URL.Query().Get("format"); v != "" {
		return encoding.ParseFormat(v)
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if f, ok := mediaFormat(part); ok {
			return f, nil
		}
	}
	return s.format, nil
}

// requestFormat reads the body format from Content-Type, JSON by default.
func requestFormat(r *http.Request) encoding.Format {
	if f, ok := mediaFormat(r.Header.Get("Content-Type")); ok {
		return f
	}
	return encoding.FormatJSON
}

func mediaFormat(value string) (encoding.Format, bool) {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return encoding.FormatYAML, true
	case "application/json":
		return encoding.FormatJSON, true
	}
	return "", false
}

func contentType(f encoding.Format) string {
	if f == encoding.FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	format, err := s.responseFormat(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	data, err := encoding.Marshal(raw, format)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Write(data)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	raw, err := canonicalize(data, requestFormat(r), s.decode)
	if err != nil {
		logger.Named("server").Warnw("rejected document", "name", name, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.store.Save(r.Context(), name, raw); err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.saved.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canonicalize decodes a document, validates it through the content model
// and re-encodes it.
func canonicalize(data []byte, f encoding.Format, opts []encoding.Option) (raw *encoding.RawContentState, err error) {
	defer invariant.Recover(&err)
	in, err := encoding.Unmarshal(data, f)
	if err != nil {
		return nil, err
	}
	cs, err := encoding.ConvertFromRaw(in, opts...)
	if err != nil {
		return nil, err
	}
	if err := cs.ValidateEntities(); err != nil {
		return nil, err
	}
	return encoding.ConvertToRaw(cs), nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Named("server").Errorw("store request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
