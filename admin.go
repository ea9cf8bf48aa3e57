package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	statsDefaultDays  = 7
	recentEventsLimit = 20
)

// Admin serves the token-protected operator API
type Admin struct {
	auth      *AdminAuth
	hub       *Hub
	world     *World
	analytics *Analytics
	log       *zap.SugaredLogger
}

func NewAdmin(auth *AdminAuth, hub *Hub, analytics *Analytics, logger *zap.SugaredLogger) *Admin {
	return &Admin{
		auth:      auth,
		hub:       hub,
		world:     hub.world,
		analytics: analytics,
		log:       logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// StatsResponse is the body of GET /admin/stats
type StatsResponse struct {
	Clients      int              `json:"clients"`
	Players      int              `json:"players"`
	Ships        int              `json:"ships"`
	Metrics      map[string]any   `json:"metrics"`
	Events       map[string]int   `json:"events,omitempty"`
	RecentEvents []AnalyticsEvent `json:"recent_events,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Error: msg})
}

// handleLogin exchanges admin credentials for a bearer token
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.auth.Enabled() {
		writeError(w, http.StatusNotFound, ErrAdminDisabled.Error())
		return
	}
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := a.auth.Login(req.Username, req.Password, extractIP(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{Token: token})
	case errors.Is(err, ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		a.log.Errorw("admin login error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireAdmin rejects requests without a valid bearer token
func (a *Admin) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.auth.Enabled() {
			writeError(w, http.StatusNotFound, ErrAdminDisabled.Error())
			return
		}
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tok == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := a.auth.ValidateToken(tok); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	days := statsDefaultDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	players, ships := a.world.Counts()
	resp := StatsResponse{
		Clients: a.hub.ClientCount(),
		Players: players,
		Ships:   ships,
		Metrics: a.world.Metrics().Snapshot(),
	}
	var err error
	if resp.Events, err = a.analytics.EventCounts(days); err != nil {
		a.log.Errorw("event counts query failed", "err", err)
	}
	if resp.RecentEvents, err = a.analytics.RecentEvents(recentEventsLimit); err != nil {
		a.log.Errorw("recent events query failed", "err", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Admin) handleShips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.world.Lobby())
}

// handleSnapshot streams the full world state as zstd-compressed JSON
func (a *Admin) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	state := a.world.Snapshot()

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="world.json.zst"`)
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		a.log.Errorw("zstd writer", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(enc).Encode(state); err != nil {
		a.log.Warnw("snapshot write failed", "err", err)
	}
	if err := enc.Close(); err != nil {
		a.log.Warnw("snapshot flush failed", "err", err)
	}
}
