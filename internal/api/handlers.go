package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"cube-duel/internal/preview"
	"cube-duel/internal/protocol"

	"github.com/go-chi/chi/v5"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// debugHandlers serve the room inspection endpoints of the debug server.
type debugHandlers struct {
	rooms RoomInspector
}

func (d *debugHandlers) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.rooms.Summaries())
}

func (d *debugHandlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !protocol.ValidCode(code) {
		writeError(w, "Invalid room code", http.StatusBadRequest)
		return
	}

	snap, ok := d.rooms.Snapshot(code)
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	// Render fully before writing headers so a failure can still be a 500
	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, snap, d.rooms.Rules()); err != nil {
		log.Printf("❌ Preview render failed for room %s: %v", code, err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// handleStats collects every registered component's counters into one object.
func handleStats(stats map[string]StatsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string]interface{}, len(stats))
		for name, fn := range stats {
			out[name] = fn()
		}
		writeJSON(w, out)
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
