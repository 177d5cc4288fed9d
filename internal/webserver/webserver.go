package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/db"
	"github.com/zsprackett/cursor-usage/internal/events"
	"github.com/zsprackett/cursor-usage/internal/state"
)

// Refresher triggers an out-of-band refresh cycle. usagepoller.Poller
// satisfies it.
type Refresher interface {
	RequestRefresh()
}

// History serves past snapshots, newest first.
type History interface {
	RecentUsageSnapshots(limit int) ([]db.UsageSnapshot, error)
}

type Server struct {
	state     *state.State
	refresher Refresher
	cfg       config.WebserverConfig
	logger    *slog.Logger

	history History

	mu      sync.Mutex
	clients map[chan events.Event]struct{}
	srv     *http.Server
}

type Option func(*Server)

// WithHistory enables GET /api/history.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

func New(st *state.State, refresher Refresher, cfg config.WebserverConfig, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		state:     st,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger,
		clients:   make(map[chan events.Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	st.OnSettingsChanged(s.settingsChanged)
	return s
}

// Broadcast implements events.Broadcaster.
func (s *Server) Broadcast(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Server) addClient(ch chan events.Event) {
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(ch chan events.Event) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/usage", s.handleUsage)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	mux.HandleFunc("GET /events", s.handleSSE)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /{$}", http.FileServer(staticFiles()))

	if !s.authEnabled() {
		return mux
	}
	return basicAuth(s.cfg.Auth, mux)
}

func (s *Server) authEnabled() bool {
	return s.cfg.Auth.Username != "" && s.cfg.Auth.PasswordHash != ""
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors are logged.
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("webserver: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	s.logger.Info("webserver: listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webserver: serve failed", "err", err)
		}
	}()
	return nil
}

// Shutdown stops a started server. Streaming clients are cut off when ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	rows, err := s.history.RecentUsageSnapshots(limit)
	if err != nil {
		s.logger.Warn("webserver: history query failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []db.UsageSnapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": rows})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresher.RequestRefresh()
	w.WriteHeader(http.StatusAccepted)
}

type settingsResponse struct {
	Language        string  `json:"language"`
	RefreshInterval int64   `json:"refreshInterval"`
	Intervals       []int64 `json:"intervals"`
}

func (s *Server) settings() settingsResponse {
	resp := settingsResponse{
		Language:        s.state.Language().String(),
		RefreshInterval: s.state.Interval().Seconds(),
	}
	for _, i := range config.Intervals() {
		resp.Intervals = append(resp.Intervals, i.Seconds())
	}
	return resp
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Language        *string `json:"language"`
		RefreshInterval *int64  `json:"refreshInterval"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate both before applying either.
	var (
		lang     config.Language
		interval config.Interval
		ok       bool
	)
	if body.Language != nil {
		if lang, ok = config.LookupLanguage(*body.Language); !ok {
			http.Error(w, fmt.Sprintf("unknown language %q", *body.Language), http.StatusBadRequest)
			return
		}
	}
	if body.RefreshInterval != nil {
		if interval, ok = config.LookupInterval(*body.RefreshInterval); !ok {
			http.Error(w, fmt.Sprintf("unsupported refresh interval %d", *body.RefreshInterval), http.StatusBadRequest)
			return
		}
	}

	if body.Language != nil && lang != s.state.Language() {
		s.state.SetLanguage(lang)
	}
	if body.RefreshInterval != nil && interval != s.state.Interval() {
		s.state.SetInterval(interval)
	}

	writeJSON(w, http.StatusOK, s.settings())
}

// settingsChanged forwards every preference change, from any display layer,
// to stream clients.
func (s *Server) settingsChanged(lang config.Language, interval config.Interval) {
	s.Broadcast(events.Event{
		Type:     events.TypeSettingsChanged,
		Language: lang.String(),
		Interval: interval.Seconds(),
	})
}

// currentEvent is what a stream client sees first on connect.
func (s *Server) currentEvent() events.Event {
	snap := s.state.Snapshot()
	return events.Event{Type: events.TypeUsageUpdated, Snapshot: &snap}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", 500)
		return
	}

	ch := make(chan events.Event, 16)
	s.addClient(ch)
	defer s.removeClient(ch)

	writeSSE(w, flusher, s.currentEvent())

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			writeSSE(w, flusher, e)
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, f http.Flusher, e events.Event) {
	data, _ := json.Marshal(e)
	fmt.Fprintf(w, "data: %s\n\n", data)
	f.Flush()
}
