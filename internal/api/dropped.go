package api

import (
	"net/http"
	"strconv"

	"github.com/mfadel/brontes/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type droppedListResponse struct {
	Dropped []*store.DroppedReport `json:"dropped"`
	Total   int                    `json:"total"`
}

// handleListDropped returns the journal of reports that exhausted their
// delivery retries. Empty when journaling is disabled.
func (s *Server) handleListDropped(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeJSON(w, http.StatusOK, droppedListResponse{Dropped: []*store.DroppedReport{}})
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxListLimit {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	dropped, total, err := s.journal.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list dropped reports", "error", err)
		http.Error(w, "failed to list dropped reports", http.StatusInternalServerError)
		return
	}
	if dropped == nil {
		dropped = []*store.DroppedReport{}
	}
	s.writeJSON(w, http.StatusOK, droppedListResponse{Dropped: dropped, Total: total})
}
