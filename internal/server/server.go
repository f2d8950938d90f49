// Package server exposes the trawled market data over HTTP: price
// aggregates, the stats snapshot and a websocket stream of the latter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"esi-market-trawler/internal/observability"
	"esi-market-trawler/internal/storage"
)

// DefaultStreamInterval is how often the stats websocket pushes a snapshot.
const DefaultStreamInterval = 10 * time.Second

// Server serves the read-only market query API.
type Server struct {
	reader         storage.MarketReader
	stats          storage.StatsStore
	logger         *log.Logger
	now            func() time.Time
	streamInterval time.Duration
	upgrader       websocket.Upgrader
}

// Options configures a Server.
type Options struct {
	Reader storage.MarketReader
	Stats  storage.StatsStore
	Logger *log.Logger

	// StreamInterval overrides DefaultStreamInterval.
	StreamInterval time.Duration

	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}
	interval := opts.StreamInterval
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		reader:         opts.Reader,
		stats:          opts.Stats,
		logger:         logger,
		now:            now,
		streamInterval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prices", s.handlePrices)
	mux.HandleFunc("GET /regions", s.handleAllRegions)
	mux.HandleFunc("GET /region/{regionID}", s.handleRegion)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /stats/stream", s.handleStatsStream)
	mux.HandleFunc("/clean", s.handleClean)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.reader.Prices(r.Context())
	if err != nil {
		s.serverError(w, "list prices", err)
		return
	}
	s.writeJSON(w, prices)
}

func (s *Server) handleAllRegions(w http.ResponseWriter, r *http.Request) {
	prices, err := s.reader.AllRegionalPrices(r.Context())
	if err != nil {
		s.serverError(w, "list regional prices", err)
		return
	}
	s.writeJSON(w, prices)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	region, err := strconv.ParseInt(r.PathValue("regionID"), 10, 32)
	if err != nil {
		http.Error(w, "invalid region id", http.StatusBadRequest)
		return
	}
	prices, err := s.reader.RegionalPrices(r.Context(), int32(region))
	if err != nil {
		s.serverError(w, "list region prices", err)
		return
	}
	s.writeJSON(w, prices)
}

// handleClean removes expired orders and reports how many went away.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	removed, err := s.reader.DeleteExpired(r.Context(), s.now().UTC())
	if err != nil {
		s.serverError(w, "delete expired orders", err)
		return
	}
	s.logger.Printf("Cleaned %d expired orders", removed)
	s.writeJSON(w, map[string]int64{"removed": removed})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	payload, err := s.stats.Latest(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "no stats recorded yet", http.StatusNotFound)
			return
		}
		s.serverError(w, "load stats", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleStatsStream upgrades to a websocket and pushes the latest stats
// snapshot immediately and then on every tick until the client goes away.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so close frames are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		if err := s.pushStats(ctx, conn); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushStats(ctx context.Context, conn *websocket.Conn) error {
	payload, err := s.stats.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		s.logger.Printf("load stats for stream: %v", err)
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("%s: %v", op, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
