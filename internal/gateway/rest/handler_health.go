package rest

import "net/http"

type rootResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Status: "ok", Time: h.now().UnixMilli()})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
