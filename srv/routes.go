package srv

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"impactx/auth"
	"impactx/metrics"
	"impactx/simulator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Routes wires the websocket endpoint and the REST surface.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/strategies", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, strategyList())
	}))
	mux.HandleFunc("/api/scenario", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.cfg.Scenario)
	}))
	mux.Handle("/api/metrics", metrics.Handler())
	mux.Handle("/api/admin/leaderboard/reset", h.cfg.Auth.RequireAdmin(http.HandlerFunc(h.handleReset)))
	mux.Handle("/simulate", simulator.Handler(h.cfg.Simulator))
	return mux
}

func (h *Hub) wsHandler(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("HUB: upgrade:", err)
		return
	}
	h.HandleWS(conn, token)
}

func (h *Hub) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, buildLeaderboard(h.cfg.Board.Load()))
}

func (h *Hub) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.cfg.Board.Reset(); err != nil {
		log.Printf("LEADERBOARD: reset failed: %v", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	log.Printf("LEADERBOARD: reset by operator from %s", r.RemoteAddr)
	h.broadcastLeaderboard(h.cfg.Board.Load())
	w.WriteHeader(http.StatusNoContent)
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("HUB: write response: %v", err)
	}
}
