package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/db"
	"github.com/thatsimonsguy/light-controller/internal/analog"
	"github.com/thatsimonsguy/light-controller/internal/controllers/telemetrycontroller"
	"github.com/thatsimonsguy/light-controller/internal/model"
)

// Controller is the part of light.Controller the API drives.
type Controller interface {
	SetLightMode(mode model.LightMode)
	LightMode() model.LightMode
	SetTurnMode(mode model.TurnMode)
	TurnMode() model.TurnMode
	Running() bool
}

type Terminal interface {
	Execute(w io.Writer, line string) error
}

type Server struct {
	ctrl     Controller
	terminal Terminal
	samples  analog.Source
	cal      analog.Calibration
	db       *sql.DB

	httpServer *http.Server
}

type ModeResponse struct {
	Mode  string `json:"mode"`
	Value int    `json:"value"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type StatusResponse struct {
	Running   bool   `json:"running"`
	LightMode string `json:"light_mode"`
	TurnMode  string `json:"turn_mode"`
}

type TerminalRequest struct {
	Line string `json:"line"`
}

type TerminalResponse struct {
	Output string `json:"output"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the API. database may be nil, in which case /api/events answers 503.
func NewServer(ctrl Controller, terminal Terminal, samples analog.Source, cal analog.Calibration, database *sql.DB) *Server {
	return &Server{
		ctrl:     ctrl,
		terminal: terminal,
		samples:  samples,
		cal:      cal,
		db:       database,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/light/mode", s.handleLightMode)
	mux.HandleFunc("/api/turn/mode", s.handleTurnMode)
	mux.HandleFunc("/api/analog", s.handleAnalog)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/terminal", s.handleTerminal)
	mux.HandleFunc("/api/events", s.handleEvents)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Start blocks serving the API until Shutdown is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("address", addr).Msg("Starting REST API server")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLightMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode := s.ctrl.LightMode()
		s.writeJSON(w, http.StatusOK, ModeResponse{Mode: mode.String(), Value: int(mode)})
	case http.MethodPut:
		var req ModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		mode, err := model.ParseLightMode(req.Mode)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid light mode. Valid modes: off, on, long")
			return
		}
		s.ctrl.SetLightMode(mode)
		log.Info().Str("mode", mode.String()).Msg("Light mode updated via API")
		w.WriteHeader(http.StatusOK)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleTurnMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode := s.ctrl.TurnMode()
		s.writeJSON(w, http.StatusOK, ModeResponse{Mode: mode.String(), Value: int(mode)})
	case http.MethodPut:
		var req ModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		mode, err := model.ParseTurnMode(req.Mode)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid turn mode. Valid modes: off, left, right, both")
			return
		}
		s.ctrl.SetTurnMode(mode)
		log.Info().Str("mode", mode.String()).Msg("Turn mode updated via API")
		w.WriteHeader(http.StatusOK)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleAnalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reading := telemetrycontroller.Read(s.samples, s.cal)
	s.writeJSON(w, http.StatusOK, analogResponse(reading))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:   s.ctrl.Running(),
		LightMode: s.ctrl.LightMode().String(),
		TurnMode:  s.ctrl.TurnMode().String(),
	})
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TerminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var out bytes.Buffer
	if err := s.terminal.Execute(&out, req.Line); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, TerminalResponse{Output: out.String()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Event journal disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	events, err := db.RecentEvents(s.db, r.URL.Query().Get("kind"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get events")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
