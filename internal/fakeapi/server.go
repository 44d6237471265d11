package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"placeholder-cli/internal/resource"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes a Store over the demo REST contract.
type Server struct {
	store    *Store
	log      *zap.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	router   chi.Router
}

func NewServer(store *Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:    store,
		log:      log,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placeholder",
			Subsystem: "fakeapi",
			Name:      "requests_total",
			Help:      "Requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "placeholder",
			Subsystem: "fakeapi",
			Name:      "request_duration_seconds",
			Help:      "Request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	s.registry.MustRegister(s.requests, s.duration)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.instrument)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Route("/{resource}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Patch("/{id}", s.handlePatch)
		r.Put("/{id}", s.handleReplace)
		r.Delete("/{id}", s.handleDelete)
		r.Get("/{id}/{child}", s.handleNested)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// nestedOwner maps a child collection under parent to the child's owner field
// (/posts/1/comments -> postId).
func nestedOwner(parent, child string) (string, bool) {
	spec, ok := resource.Lookup(child)
	if !ok || spec.Owner == nil || spec.Owner.Resource != parent {
		return "", false
	}
	return spec.Owner.Field, true
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "resource")
	if _, ok := resource.Lookup(name); !ok {
		writeError(w, http.StatusNotFound, "unknown resource "+strconv.Quote(name))
		return "", false
	}
	return name, true
}

func recordParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "invalid id")
		return 0, false
	}
	return id, true
}

func parseQuery(r *http.Request) (Query, error) {
	q := Query{Eq: map[string]string{}}
	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		v := vs[len(vs)-1]
		switch {
		case k == "_limit":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return q, errors.New("_limit must be a non-negative integer")
			}
			q.Limit = n
		case k == "_start":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return q, errors.New("_start must be a non-negative integer")
			}
			q.Start = n
		case strings.HasPrefix(k, "_"):
			// Other json-server style operators are not supported; ignore them.
		default:
			if !ValidField(k) {
				return q, errors.New("invalid filter field " + strconv.Quote(k))
			}
			q.Eq[k] = v
		}
	}
	return q, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.list(w, r, name, q)
}

func (s *Server) handleNested(w http.ResponseWriter, r *http.Request) {
	parent, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, ok := recordParam(w, r)
	if !ok {
		return
	}
	child := chi.URLParam(r, "child")
	field, ok := nestedOwner(parent, child)
	if !ok {
		writeError(w, http.StatusNotFound, "no "+child+" under "+parent)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Eq[field] = strconv.Itoa(id)
	s.list(w, r, child, q)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, name string, q Query) {
	recs, err := s.store.List(r.Context(), name, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, ok := recordParam(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), name, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	body, ok := readObject(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Create(r.Context(), name, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	s.rewrite(w, r, s.store.Patch)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	s.rewrite(w, r, s.store.Replace)
}

func (s *Server) rewrite(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, resource string, id int, body map[string]any) (map[string]any, error)) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, ok := recordParam(w, r)
	if !ok {
		return
	}
	body, ok := readObject(w, r)
	if !ok {
		return
	}
	rec, err := op(r.Context(), name, id, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	id, ok := recordParam(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), name, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	s.log.Error("store error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil || body == nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
