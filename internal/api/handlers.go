package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"pong-arena/internal/preview"

	"github.com/go-chi/chi/v5"
)

// statsResponse is the body of GET /api/stats
type statsResponse struct {
	Rooms        int `json:"rooms"`
	PlayingRooms int `json:"playingRooms"`
	Players      int `json:"players"`
	Connections  int `json:"connections"`
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st := h.store.Stats()
	writeJSON(w, statsResponse{
		Rooms:        st.Rooms,
		PlayingRooms: st.PlayingRooms,
		Players:      st.Players,
		Connections:  h.connections(),
	})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.Summaries())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.store.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rm.Snapshot())
}

func (h *routerHandlers) handleRoomPreview(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.store.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	// Render into a buffer so an encode failure can still return a JSON error
	var buf bytes.Buffer
	if err := preview.EncodePNG(&buf, rm.Snapshot()); err != nil {
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
