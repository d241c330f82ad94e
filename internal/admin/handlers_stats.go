package admin

import (
	"net/http"
	"strconv"

	"github.com/apestel/hardwire/internal/hwerr"
)

// handleStatsDownloads implements GET /admin/api/stats/downloads.
func (s *Server) handleStatsDownloads(w http.ResponseWriter, r *http.Request) {
	totals, err := s.store.DownloadStatsTotals()
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleStatsByPeriod implements
// GET /admin/api/stats/downloads/by_period?period=(day|week|month)&limit=N.
func (s *Server) handleStatsByPeriod(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}
	limit := parseLimit(r, 30)

	rows, err := s.store.DownloadsByPeriod(period, limit)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleStatsRecent implements GET /admin/api/stats/downloads/recent?limit=N.
func (s *Server) handleStatsRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	rows, err := s.store.RecentDownloads(limit)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleStatsStatus implements GET /admin/api/stats/downloads/status.
func (s *Server) handleStatsStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.DownloadStatusCounts()
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
