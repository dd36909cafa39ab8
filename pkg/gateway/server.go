package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/internal/metrics"
	"github.com/agentdeck/agentdeck/pkg/plugin"
	"github.com/agentdeck/agentdeck/pkg/settings"
)

// Options configures the gateway server.
type Options struct {
	Host               string
	Port               int
	RateLimitPerMinute int
}

// Server is the local HTTP surface the desktop shell talks to.
type Server struct {
	options Options
	logger  zerolog.Logger
	metrics *metrics.Metrics
	host    *plugin.Host
	store   *settings.Store
	hub     *Hub
	limiter *RateLimiter

	server    *http.Server
	startTime time.Time
}

// NewServer creates a gateway server.
func NewServer(options Options, host *plugin.Host, store *settings.Store, hub *Hub, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.Port == 0 {
		options.Port = 4680
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 300
	}

	return &Server{
		options: options,
		logger:  logger.With().Str("component", "gateway").Logger(),
		metrics: m,
		host:    host,
		store:   store,
		hub:     hub,
		limiter: NewRateLimiter(options.RateLimitPerMinute),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("GET /api/plugins", s.instrument("/api/plugins", s.handleListPlugins))
	mux.HandleFunc("POST /api/plugins/{id}/approve", s.instrument("/api/plugins/approve", s.handleApprovePlugin))
	mux.HandleFunc("POST /api/plugins/{id}/commands/{name}", s.instrument("/api/plugins/commands", s.handleInvokeCommand))
	mux.HandleFunc("GET /api/settings", s.instrument("/api/settings", s.handleGetSettings))

	return mux
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.startTime = time.Now()
	s.limiter.StartCleanup(5 * time.Minute)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("Gateway listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed: %w", err)
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.limiter.Stop()
	s.hub.Close()
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("gateway shutdown failed: %w", err)
	}
	s.logger.Info().Msg("Gateway stopped")
	return nil
}

// instrument wraps a handler with rate limiting and request metrics.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)
		if !s.limiter.Allow(addr) {
			w.Header().Set("Retry-After", strconv.Itoa(s.limiter.RetryAfter(addr)))
			s.countRequest(route, http.StatusTooManyRequests)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		s.countRequest(route, rec.status)
		if s.metrics != nil {
			s.metrics.GatewayRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	}
}

func (s *Server) countRequest(route string, status int) {
	if s.metrics != nil {
		s.metrics.GatewayRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"clients":   s.hub.ClientCount(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// pluginView is the wire form of one plugin record.
type pluginView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Version  string   `json:"version,omitempty"`
	Source   string   `json:"source"`
	State    string   `json:"state"`
	Checksum string   `json:"checksum,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (s *Server) handleListPlugins(w http.ResponseWriter, _ *http.Request) {
	records := s.host.Registry().All()
	views := make([]pluginView, 0, len(records))
	for _, record := range records {
		view := pluginView{
			ID:       record.ID,
			Source:   string(record.Source),
			State:    string(record.State),
			Checksum: record.Checksum,
		}
		if record.Manifest != nil {
			view.Name = record.Manifest.Name
			view.Version = record.Manifest.Version
			for _, c := range record.Manifest.Commands {
				view.Commands = append(view.Commands, c.Name)
			}
		}
		if record.LastError != nil {
			view.Error = record.LastError.Error()
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": views})
}

func (s *Server) handleApprovePlugin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.host.Approve(id); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	record, _ := s.host.Registry().Get(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"state":    string(record.State),
		"checksum": record.Checksum,
	})
}

func (s *Server) handleInvokeCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.PathValue("name")

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}

	result, err := s.host.Invoke(r.Context(), id, name, payload)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	loaded, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loaded)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func clientAddr(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		addr = addr[:idx]
	}
	return addr
}
