package storage

import (
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
)

// StartDownload idempotently inserts a download-transaction row. The
// unique index on transaction_id backs the "INSERT OR IGNORE"
// semantics specified in §4.1(b) and §4.4: repeated calls with the
// same transaction id are a no-op after the first.
func (s *Store) StartDownload(transactionID, filePath, requesterIP string, fileSize int64, startedAt time.Time) error {
	row := Download{
		TransactionID: transactionID,
		FilePath:      filePath,
		RequesterIP:   requesterIP,
		Status:        "started",
		FileSize:      fileSize,
		StartedAt:     startedAt,
	}
	err := s.DB.Exec(
		`INSERT OR IGNORE INTO downloads (transaction_id, file_path, requester_ip, status, file_size, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		row.TransactionID, row.FilePath, row.RequesterIP, row.Status, row.FileSize, row.StartedAt,
	).Error
	if err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "insert download transaction", err)
	}
	return nil
}

// FinishDownload finalizes a transaction's status exactly once: the
// guard "WHERE status != 'completed'" means the first completion wins
// and a later partial-range abort cannot downgrade it, as specified in
// §4.4's completion finaliser.
func (s *Store) FinishDownload(transactionID, status string, finishedAt time.Time) error {
	err := s.DB.Exec(
		`UPDATE downloads SET status = ?, finished_at = ? WHERE transaction_id = ? AND status != 'completed'`,
		status, finishedAt, transactionID,
	).Error
	if err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "finalize download transaction", err)
	}
	return nil
}

// DownloadStatsTotals is the aggregate projection behind
// GET /admin/api/stats/downloads.
type DownloadStatsTotals struct {
	TotalDownloads int64 `json:"total_downloads"`
	TotalBytes     int64 `json:"total_bytes"`
	Completed      int64 `json:"completed"`
	Failed         int64 `json:"failed"`
}

// DownloadStatsTotals computes the lifetime totals via straight
// aggregate SQL, grounded on the teacher's analytics.StatsManager
// (SUM/COUNT queries over the store) per §4.1.
func (s *Store) DownloadStatsTotals() (*DownloadStatsTotals, error) {
	var totals DownloadStatsTotals
	if err := s.DB.Model(&Download{}).Count(&totals.TotalDownloads).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "count downloads", err)
	}
	if err := s.DB.Model(&Download{}).Select("COALESCE(SUM(file_size), 0)").Scan(&totals.TotalBytes).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "sum download bytes", err)
	}
	if err := s.DB.Model(&Download{}).Where("status = ?", "completed").Count(&totals.Completed).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "count completed downloads", err)
	}
	if err := s.DB.Model(&Download{}).Where("status = ?", "failed").Count(&totals.Failed).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "count failed downloads", err)
	}
	return &totals, nil
}

// DownloadStatusCounts is the projection behind
// GET /admin/api/stats/downloads/status.
type DownloadStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (s *Store) DownloadStatusCounts() ([]DownloadStatusCount, error) {
	var rows []DownloadStatusCount
	err := s.DB.Model(&Download{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "group downloads by status", err)
	}
	return rows, nil
}

// PeriodStat is one bucket of the by-period projection.
type PeriodStat struct {
	Period string `json:"period"`
	Bytes  int64  `json:"bytes"`
	Count  int64  `json:"count"`
}

// DownloadsByPeriod buckets downloads of every status by day/week/month,
// limited to the most recent `limit` buckets (pagination is by limit
// only, per §4.6 — no cursor, bounded dataset).
func (s *Store) DownloadsByPeriod(period string, limit int) ([]PeriodStat, error) {
	var bucket string
	switch period {
	case "week":
		bucket = "strftime('%Y-%W', started_at)"
	case "month":
		bucket = "strftime('%Y-%m', started_at)"
	default:
		bucket = "strftime('%Y-%m-%d', started_at)"
	}

	var rows []PeriodStat
	err := s.DB.Model(&Download{}).
		Select(bucket+" as period, COALESCE(SUM(file_size),0) as bytes, count(*) as count").
		Group("period").
		Order("period desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "group downloads by period", err)
	}
	return rows, nil
}

// RecentDownloads returns the most recent transactions, ordered as
// specified in §4.1: (finished_at DESC, started_at DESC).
func (s *Store) RecentDownloads(limit int) ([]Download, error) {
	var rows []Download
	err := s.DB.Order("finished_at desc, started_at desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "list recent downloads", err)
	}
	return rows, nil
}
