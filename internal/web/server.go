package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/christian-lee/bililive/internal/logger"
	"github.com/christian-lee/bililive/internal/metrics"
	"github.com/christian-lee/bililive/internal/resolver"
)

// StreamResolver is the part of *resolver.Client the API serves.
type StreamResolver interface {
	GetRoomInfo(ctx context.Context, roomID int64) (*resolver.RoomInfo, error)
	GetStreamInfo(ctx context.Context, roomID int64, opts ...resolver.InfoOption) *resolver.StreamInfo
}

// Server is the read-only HTTP API over the resolver.
type Server struct {
	mu       sync.RWMutex
	resolver StreamResolver
	addr     string
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewServer(r StreamResolver, addr string, m *metrics.Metrics, log *slog.Logger) *Server {
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{resolver: r, addr: addr, metrics: m, log: log}
}

// UpdateResolver swaps the resolver used by subsequent requests (hot reload).
func (s *Server) UpdateResolver(r StreamResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = r
	s.log.Info("web: resolver updated")
}

func (s *Server) current() StreamResolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver
}

// Router builds the chi router with request logging and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(s.log))
	r.Use(s.metrics.Middleware)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Route("/api/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", s.handleRoom)
		r.Get("/streams", s.handleStreams)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("web: stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	info, err := s.current().GetRoomInfo(r.Context(), roomID)
	if err != nil {
		s.log.Warn("web: room info failed", "room", roomID, "err", err)
		writeError(w, http.StatusBadGateway, "failed to get room info: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	opts, err := streamOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := s.current().GetStreamInfo(r.Context(), roomID, opts...)
	switch {
	case !info.Failed():
		s.metrics.IncLookup(metrics.OutcomeOK)
		writeJSON(w, http.StatusOK, info)
	case errors.Is(info.Err(), resolver.ErrNotLive):
		s.metrics.IncLookup(metrics.OutcomeNotLive)
		writeJSON(w, http.StatusConflict, info)
	default:
		s.metrics.IncLookup(metrics.OutcomeError)
		writeJSON(w, http.StatusBadGateway, info)
	}
}

func roomIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func streamOptions(r *http.Request) ([]resolver.InfoOption, error) {
	q := r.URL.Query()
	var opts []resolver.InfoOption

	if v := q.Get("qn"); v != "" {
		qn, err := strconv.Atoi(v)
		if err != nil || qn <= 0 {
			return nil, errors.New("invalid qn")
		}
		opts = append(opts, resolver.WithQuality(qn))
	}

	for _, p := range []struct {
		name string
		opt  func(bool) resolver.InfoOption
	}{
		{"urls", resolver.IncludeURLs},
		{"metadata", resolver.IncludeMetadata},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		include, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid " + p.name)
		}
		opts = append(opts, p.opt(include))
	}
	return opts, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON keeps '&' in stream URLs unescaped.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
