package api

import (
	"net/http"
)

// workerSummary is the JSON shape of one registered executor spec. Handler
// functions are deliberately absent; only tuning metadata is exposed.
type workerSummary struct {
	TaskType              string `json:"task_type"`
	Concurrency           int    `json:"concurrency"`
	PollIntervalMS        int64  `json:"poll_interval_ms"`
	PollTimeoutMS         int64  `json:"poll_timeout_ms"`
	LeaseExtendEnabled    bool   `json:"lease_extend_enabled"`
	LeaseExtendIntervalMS int64  `json:"lease_extend_interval_ms,omitempty"`
}

func (s *Server) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.supervisor.Health())
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	specs := s.supervisor.Specs()
	summaries := make([]workerSummary, 0, len(specs))
	for _, spec := range specs {
		summaries = append(summaries, workerSummary{
			TaskType:              spec.TaskType,
			Concurrency:           spec.Concurrency,
			PollIntervalMS:        spec.PollInterval.Milliseconds(),
			PollTimeoutMS:         spec.PollTimeout.Milliseconds(),
			LeaseExtendEnabled:    spec.LeaseExtendEnabled,
			LeaseExtendIntervalMS: spec.LeaseExtendInterval.Milliseconds(),
		})
	}
	s.writeJSON(w, http.StatusOK, summaries)
}
