package admin

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// AdminHandlers serves listener diagnostics and control
type AdminHandlers struct {
	service watch.Service
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(service watch.Service) *AdminHandlers {
	if service == nil {
		service = watch.Noop{}
	}
	return &AdminHandlers{service: service}
}

func (h *AdminHandlers) listeners() []watch.Info {
	if in, ok := h.service.(watch.Inspector); ok {
		return in.Listeners()
	}

	ids := h.service.ActiveListeners()
	infos := make([]watch.Info, len(ids))
	for i, id := range ids {
		infos[i] = watch.Info{ID: id}
	}
	return infos
}

// handleListListeners returns every registered listener
func (h *AdminHandlers) handleListListeners(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.listeners())
}

// handleGetListener returns one listener
func (h *AdminHandlers) handleGetListener(w http.ResponseWriter, r *http.Request, id watch.ListenerID) {
	for _, info := range h.listeners() {
		if info.ID == id {
			writeJSONResponse(w, info)
			return
		}
	}
	writeErrorResponse(w, http.StatusNotFound, "listener not found")
}

// handleStopListener stops one listener
func (h *AdminHandlers) handleStopListener(w http.ResponseWriter, r *http.Request, id watch.ListenerID) {
	if !h.service.StopListener(id) {
		writeErrorResponse(w, http.StatusNotFound, "listener not found or already stopped")
		return
	}

	log.Info().Str("listener", string(id)).Str("remote", r.RemoteAddr).Msg("Listener stopped via admin API")
	writeJSONResponse(w, map[string]interface{}{"id": id, "stopped": true})
}

// handleHealth reports whether real-time watching is available
func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	states := make(map[string]int)
	for _, info := range h.listeners() {
		if info.State != "" {
			states[string(info.State)]++
		}
	}

	writeJSONResponse(w, map[string]interface{}{
		"available":        h.service.Available(),
		"active_listeners": len(h.service.ActiveListeners()),
		"states":           states,
	})
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"error": message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
