package storage

import "time"

// IndexedFile is a PersistedFile row: the stable mapping from an
// indexed path to an id that shares can reference even after the
// on-disk file disappears.
type IndexedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"uniqueIndex;size:4096" json:"path"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256,omitempty"`
	Info      string    `json:"info,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (IndexedFile) TableName() string { return "indexed_files" }

// Share is an opaque token grouping an ordered set of IndexedFile rows
// behind an expiration timestamp.
type Share struct {
	ID        string      `gorm:"primaryKey;size:32" json:"id"`
	ExpiresAt int64       `json:"expires_at"` // unix seconds; 0 == never
	CreatedAt time.Time   `json:"created_at"`
	Files     []ShareFile `gorm:"foreignKey:ShareID" json:"-"`
}

func (Share) TableName() string { return "shares" }

// ShareFile is the join row preserving insertion order of files within
// a share via an explicit Position column (GORM has-many ordering is
// not otherwise guaranteed across databases).
type ShareFile struct {
	ShareID       string `gorm:"primaryKey;size:32" json:"share_id"`
	IndexedFileID uint   `gorm:"primaryKey" json:"indexed_file_id"`
	Position      int    `json:"position"`
}

func (ShareFile) TableName() string { return "share_files" }

// Download is one DownloadTransaction row. Status is "started" on
// insert and set to "completed" or "failed" when a response ends;
// once "completed" it is not changed again (see FinishDownload).
type Download struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TransactionID string     `gorm:"uniqueIndex;size:64" json:"transaction_id"`
	FilePath      string     `json:"file_path"`
	RequesterIP   string     `json:"requester_ip"`
	Status        string     `gorm:"index" json:"status"`
	FileSize      int64      `json:"file_size"`
	StartedAt     time.Time  `gorm:"index:idx_download_recent,priority:2" json:"started_at"`
	FinishedAt    *time.Time `gorm:"index:idx_download_recent,priority:1" json:"finished_at,omitempty"`
}

func (Download) TableName() string { return "downloads" }

// Task is a durably persisted unit of background work.
type Task struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	TaskType   string     `json:"task_type"`
	Status     string     `gorm:"index" json:"status"`
	InputData  string     `json:"input_data"`
	OutputData string     `json:"output_data"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// AdminUser is a federated-identity row; authorization is binary (row
// exists => admin).
type AdminUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GoogleID  string    `gorm:"uniqueIndex;size:255" json:"google_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

// DailyDownloadStat is an aggregate row grounded on the teacher's
// analytics.DailyStat (same shape: a date bucket key plus a
// byte/file counter pair). Its table is migrated but no query reads
// or writes it; the by-period stats projection (DownloadsByPeriod)
// aggregates the downloads table directly.
type DailyDownloadStat struct {
	Date  string `gorm:"primaryKey"`
	Bytes int64  `gorm:"default:0"`
	Files int64  `gorm:"default:0"`
}

func (DailyDownloadStat) TableName() string { return "daily_download_stats" }
