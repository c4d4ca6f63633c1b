package rest

import (
	"net/http"
	"time"

	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

// devHandler serves the test endpoints. Never mounted in production.
type devHandler struct {
	dev     ports.DevService
	mode    string
	version string
	now     func() time.Time
}

func (h *devHandler) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Message:   "NowShare API is working",
		Timestamp: h.now(),
		Version:   h.version,
		Mode:      h.mode,
	})
}

func (h *devHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.dev.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Database reset"})
}

func (h *devHandler) seed(w http.ResponseWriter, r *http.Request) {
	n, err := h.dev.Seed(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seedResponse{Message: "Demo posts created", Count: n})
}

func (h *devHandler) debug(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dev.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSnapshot(snap))
}
