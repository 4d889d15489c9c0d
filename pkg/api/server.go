package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/orderflow/params"
	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/runner"
	"github.com/uhyunpark/orderflow/pkg/storage"
)

// DefaultMaxCount caps a single POST /generate.
const DefaultMaxCount = 1_000_000

type Options struct {
	AllowedOrigins []string
	MaxCount       int
	Logger         *zap.SugaredLogger
}

// Server handles REST API and WebSocket connections
type Server struct {
	store    storage.RunStore
	router   *mux.Router
	hub      *Hub
	logger   *zap.SugaredLogger
	origins  []string
	maxCount int
}

// NewServer creates a new API server. store may be nil, which disables
// persistence and the /runs endpoints answer 404.
func NewServer(store storage.RunStore, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = DefaultMaxCount
	}

	s := &Server{
		store:    store,
		router:   mux.NewRouter(),
		hub:      NewHub(opts.Logger),
		logger:   opts.Logger,
		origins:  opts.AllowedOrigins,
		maxCount: opts.MaxCount,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")

	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/events", s.handleGetRunEvents).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Run-ID"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Hub exposes the WebSocket hub so callers can run it alongside Start.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_server_starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Count > s.maxCount {
		respondError(w, http.StatusBadRequest, "count too large", "max "+strconv.Itoa(s.maxCount))
		return
	}
	mode := runner.Mode(req.Mode)
	if mode == runner.ModeBars {
		// bar files live on the server host; not exposed over HTTP
		respondError(w, http.StatusBadRequest, "unsupported mode", req.Mode)
		return
	}

	prepared, err := runner.Prepare(r.Context(), runner.Request{
		Mode:    mode,
		Symbols: req.Symbols,
		Count:   req.Count,
		Seed:    params.SeedOrNow(req.Seed),
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid configuration", err.Error())
		return
	}

	var store storage.RunStore
	if req.Persist && s.store != nil {
		store = s.store
		w.Header().Set("X-Run-ID", prepared.RunID)
	}
	w.Header().Set("Content-Type", "text/csv")

	csvw := flow.NewCSVWriter(w)
	_, err = prepared.Run(r.Context(), csvw, store, s.logger)
	if err == nil {
		err = csvw.Flush()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warnw("generate_stream_failed", "run_id", prepared.RunID, "err", err)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, []RunInfo{})
		return
	}
	runs, err := s.store.ListRuns()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	response := make([]RunInfo, len(runs))
	for i, rec := range runs {
		response[i] = toRunInfo(rec)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	respondJSON(w, toRunInfo(rec))
}

func (s *Server) handleGetRunEvents(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offset", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}

	events, err := s.store.LoadEvents(rec.ID, offset, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load events", err.Error())
		return
	}
	response := make([]EventInfo, len(events))
	for i, ev := range events {
		response[i] = toEventInfo(ev)
	}
	respondJSON(w, response)
}

func (s *Server) loadRun(w http.ResponseWriter, id string) (storage.RunRecord, bool) {
	if s.store == nil {
		respondError(w, http.StatusNotFound, "run not found", "persistence disabled")
		return storage.RunRecord{}, false
	}
	rec, err := s.store.LoadRun(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "run not found", id)
		return storage.RunRecord{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load run", err.Error())
		return storage.RunRecord{}, false
	}
	return rec, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the live feed)
// ==============================

// BroadcastEvent pushes ev to clients subscribed to "events" or
// "events:<SYMBOL>".
func (s *Server) BroadcastEvent(ev flow.Event) {
	s.hub.BroadcastToChannels(WSMessage{Type: "event", Data: toEventInfo(ev)}, "events", "events:"+ev.Symbol)
}

// EventSink adapts BroadcastEvent for feed.Start.
func (s *Server) EventSink() flow.Sink {
	return flow.SinkFunc(func(ev flow.Event) error {
		s.BroadcastEvent(ev)
		return nil
	})
}

// ==============================
// Helper Functions
// ==============================

func toRunInfo(rec storage.RunRecord) RunInfo {
	return RunInfo{
		ID:         rec.ID,
		Mode:       rec.Mode,
		Symbols:    rec.Symbols,
		Seed:       rec.Seed,
		Requested:  rec.Requested,
		Events:     rec.Stats.Events,
		LiveOrders: rec.Stats.LiveOrders,
		Digest:     rec.Stats.Digest,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New(key + " must not be negative")
	}
	return n, nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
