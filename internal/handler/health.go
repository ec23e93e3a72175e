package handler

import (
	"net/http"
)

// HandleIndex answers the root path with a plain liveness banner.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is ready !!!!"))
}

// HandleHealth is the machine-readable health check.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
