// Package api provides the HTTP API for observing and steering the simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/persistence"
	"github.com/talgya/statecraft/internal/social"
	"github.com/talgya/statecraft/internal/world"
)

// Limits on intervention requests.
const (
	maxMultiplier = 2.0
	maxBoostTurns = 20
	maxSubsidy    = 100_000
)

// Server serves the simulation over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; history endpoints return 503 without it
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	TrustedProxies []string // Peers whose X-Forwarded-For names the client

	once    sync.Once
	hub     *Hub
	limiter *RateLimiter
	handler http.Handler
}

// Handler builds the routes once and subscribes the stream hub to turns.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.hub = NewHub()
		s.Sim.OnTurnComplete(s.hub.Broadcast)
		s.limiter = NewRateLimiter(60, time.Minute)
		s.limiter.TrustProxies(s.TrustedProxies...)

		mux := http.NewServeMux()

		// Public endpoints (GET, read-only).
		mux.HandleFunc("/api/v1/status", s.handleStatus)
		mux.HandleFunc("/api/v1/regions", s.handleRegions)
		mux.HandleFunc("/api/v1/region/", s.handleRegionDetail)
		mux.HandleFunc("/api/v1/nations", s.handleNations)
		mux.HandleFunc("/api/v1/nation/", s.handleNationDetail)
		mux.HandleFunc("/api/v1/prices", s.handlePrices)
		mux.HandleFunc("/api/v1/events", s.handleEvents)
		mux.HandleFunc("/api/v1/history/nation/", s.handleNationHistory)
		mux.HandleFunc("/api/v1/history/price/", s.handlePriceHistory)

		// Websocket feed of turn snapshots.
		mux.HandleFunc("/api/v1/stream", s.handleStream)

		// Admin endpoints (POST, require bearer token).
		mux.HandleFunc("/api/v1/speed", s.admin(s.handleSpeed))
		mux.HandleFunc("/api/v1/policy", s.admin(s.handlePolicy))
		mux.HandleFunc("/api/v1/tax", s.admin(s.handleTax))
		mux.HandleFunc("/api/v1/slider", s.admin(s.handleSlider))
		mux.HandleFunc("/api/v1/relation", s.admin(s.handleRelation))
		mux.HandleFunc("/api/v1/treaty", s.admin(s.handleTreaty))
		mux.HandleFunc("/api/v1/assign", s.admin(s.handleAssign))
		mux.HandleFunc("/api/v1/intervention", s.admin(s.handleIntervention))
		mux.HandleFunc("/api/v1/snapshot", s.admin(s.handleSnapshot))

		s.handler = corsMiddleware(mux)
	})
	return s.handler
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	handler := s.Handler()
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// admin wraps a handler to require bearer token auth on POST requests and
// rate limits them. GET requests pass through.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	limited := RateLimitMiddleware(s.limiter, next)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no STATECRAFT_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		limited(w, r)
	}
}

// requirePost rejects anything but POST.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps simulation errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, engine.ErrUnknownNation), errors.Is(err, engine.ErrUnknownRegion):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientTreasury),
		errors.Is(err, engine.ErrInsufficientInfluence),
		errors.Is(err, engine.ErrHostileRelation):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func queryLimit(r *http.Request, def, most int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= most {
			return n
		}
	}
	return def
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":   "Statecraft",
		"stats":  snap.Stats,
		"health": engine.Triage(snap),
	}
	if s.Eng != nil {
		status["turn"] = s.Eng.Turn()
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	} else {
		status["turn"] = s.Sim.CurrentTurn()
	}
	writeJSON(w, status)
}

type regionSummary struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Position         world.Coord `json:"position"`
	Owner            string      `json:"owner,omitempty"`
	Wealth           int         `json:"wealth"`
	Population       int         `json:"population"`
	Production       int         `json:"production"`
	Infrastructure   float64     `json:"infrastructure"`
	Unrest           float64     `json:"unrest"`
	NormalizedWealth float64     `json:"normalized_wealth"`
}

func (s *Server) summarize(r *world.Region) regionSummary {
	owner, _ := s.Sim.Nations.NationOf(r.ID)
	return regionSummary{
		ID:               r.ID,
		Name:             r.Name,
		Position:         r.Position,
		Owner:            owner,
		Wealth:           r.Economy.Wealth,
		Population:       r.Population.Count,
		Production:       r.Production.Current,
		Infrastructure:   r.Infrastructure.Level,
		Unrest:           r.Population.Unrest,
		NormalizedWealth: s.Sim.Economy.NormalizedWealth(r.ID),
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, func() (any, int) {
		regions := s.Sim.Economy.Regions()
		out := make([]regionSummary, 0, len(regions))
		for _, reg := range regions {
			out = append(out, s.summarize(reg))
		}
		return out, http.StatusOK
	})
}

func (s *Server) handleRegionDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/region/")
	s.writeView(w, func() (any, int) {
		reg, ok := s.Sim.Economy.Region(id)
		if !ok {
			return "region not found", http.StatusNotFound
		}
		owner, _ := s.Sim.Nations.NationOf(id)
		return map[string]any{
			"region":                reg,
			"owner":                 owner,
			"normalized_wealth":     s.Sim.Economy.NormalizedWealth(id),
			"normalized_production": s.Sim.Economy.NormalizedProduction(id),
		}, http.StatusOK
	})
}

func (s *Server) handleNations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Nations)
}

func (s *Server) handleNationDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/nation/")
	s.writeView(w, func() (any, int) {
		n, ok := s.Sim.Nations.Nation(id)
		if !ok {
			return "nation not found", http.StatusNotFound
		}
		return map[string]any{
			"nation":  n,
			"regions": n.RegionIDs(),
		}, http.StatusOK
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Prices)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)
	var events []engine.Event
	s.Sim.View(func() {
		events = s.Sim.Journal.Recent(limit)
	})
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

func (s *Server) handleNationHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history disabled (no database)", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/history/nation/")
	rows, err := s.DB.NationHistory(id, queryLimit(r, 100, 1000))
	if err != nil {
		slog.Error("nation history query failed", "nation", id, "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history disabled (no database)", http.StatusServiceUnavailable)
		return
	}
	resource := strings.TrimPrefix(r.URL.Path, "/api/v1/history/price/")
	rows, err := s.DB.PriceHistory(resource, queryLimit(r, 100, 1000))
	if err != nil {
		slog.Error("price history query failed", "resource", resource, "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Speed < 0 || req.Speed > engine.MaxSpeed {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation           string  `json:"nation"`
		Name             string  `json:"name"`
		Cost             int     `json:"cost"`
		WealthEffect     float64 `json:"wealth_effect"`
		ProductionEffect float64 `json:"production_effect"`
		StabilityEffect  float64 `json:"stability_effect"`
		Turns            int     `json:"turns"`
	}
	if !decode(w, r, &req) {
		return
	}
	p := social.NewPolicy(req.Name, req.Cost, req.WealthEffect, req.ProductionEffect, req.StabilityEffect, req.Turns)
	if err := s.Sim.Update(func() error { return s.Sim.Nations.EnactPolicy(req.Nation, p) }); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("policy enacted", "nation", req.Nation, "policy", p.Name, "id", p.ID)
	writeJSON(w, p)
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation string  `json:"nation"`
		Rate   float64 `json:"rate"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.Update(func() error { return s.Sim.Nations.SetTaxRate(req.Nation, req.Rate) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "nation": req.Nation, "tax_rate": req.Rate})
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation string  `json:"nation"`
		Slider string  `json:"slider"`
		Value  float64 `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	t, err := social.ParsePolicyType(req.Slider)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Sim.Update(func() error { return s.Sim.Nations.SetPolicySlider(req.Nation, t, req.Value) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "nation": req.Nation, "slider": t.String()})
}

type pairRequest struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Delta float64 `json:"delta,omitempty"`
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req pairRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.Update(func() error { return s.Sim.Nations.ModifyRelation(req.A, req.B, req.Delta) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleTreaty(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req pairRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.Update(func() error { return s.Sim.Nations.SignTreaty(req.A, req.B) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Region string `json:"region"`
		Nation string `json:"nation"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.Update(func() error { return s.Sim.Nations.AssignRegion(req.Region, req.Nation) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Type        string  `json:"type"`
		Region      string  `json:"region,omitempty"`
		Nation      string  `json:"nation,omitempty"`
		Amount      int     `json:"amount,omitempty"`
		Multiplier  float64 `json:"multiplier,omitempty"`
		Turns       int     `json:"turns,omitempty"`
		Description string  `json:"description,omitempty"`
		Severity    float64 `json:"severity,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}

	var (
		desc string
		err  error
	)
	switch req.Type {
	case "subsidize":
		if req.Amount > maxSubsidy {
			http.Error(w, fmt.Sprintf("max subsidy is %d", maxSubsidy), http.StatusBadRequest)
			return
		}
		desc, err = s.Sim.SubsidizeRegion(req.Region, req.Amount)
	case "cultivate":
		if req.Multiplier > maxMultiplier {
			http.Error(w, "max multiplier is 2.0", http.StatusBadRequest)
			return
		}
		if req.Turns > maxBoostTurns {
			http.Error(w, fmt.Sprintf("max duration is %d turns", maxBoostTurns), http.StatusBadRequest)
			return
		}
		desc, err = s.Sim.CultivateRegion(req.Region, req.Multiplier, req.Turns)
	case "incite":
		desc, err = s.Sim.IncitePopulace(req.Nation, req.Description, req.Severity)
	default:
		http.Error(w, "unknown intervention type (use: subsidize, cultivate, incite)", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "details": desc})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if s.DB == nil {
		http.Error(w, "snapshots disabled (no database)", http.StatusServiceUnavailable)
		return
	}
	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"turn":    s.Sim.CurrentTurn(),
		"message": "snapshot saved",
	})
}

// writeView encodes the value built by fn under the simulation read lock,
// so live regions and nations are never read mid-turn.
func (s *Server) writeView(w http.ResponseWriter, fn func() (any, int)) {
	var (
		data   []byte
		status int
		err    error
	)
	s.Sim.View(func() {
		var v any
		v, status = fn()
		if status != http.StatusOK {
			data = []byte(fmt.Sprint(v))
			return
		}
		data, err = json.MarshalIndent(v, "", "  ")
	})
	if status != http.StatusOK {
		http.Error(w, string(data), status)
		return
	}
	if err != nil {
		slog.Error("encode response", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(data, '\n'))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
