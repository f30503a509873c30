package handler

import "net/http"

// Stats возвращает сводку для панели администратора.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), caller)
	if err != nil {
		h.fail(w, r, "stats", err)
		return
	}

	respond(w, http.StatusOK, "stats", toStatsResponse(stats))
}
