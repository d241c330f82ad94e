// Package security carries Hardwire's admin-action audit trail.
//
// Adapted from the teacher's AuditLogger (internal/security/audit.go):
// same append-only JSON-lines file plus a mirrored slog record, minus
// the Wails runtime.EventsEmit UI push (no GUI runtime here) and the
// MCP-specific field names, generalized to "admin actor acted on a
// resource" instead of "MCP client hit an endpoint."
package security

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record: an admin user performed an action with a
// given outcome status.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   uint      `json:"actor_id"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	Details   string    `json:"details"`
}

// AuditLogger appends Entry records to dataDir/logs/audit.log and
// mirrors each one to the structured application logger.
type AuditLogger struct {
	mu      sync.Mutex
	logFile *os.File
	logPath string
	logger  *slog.Logger
}

// NewAuditLogger opens (creating if absent) the audit log under
// dataDir/logs.
func NewAuditLogger(dataDir string, logger *slog.Logger) (*AuditLogger, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(logDir, "audit.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &AuditLogger{logFile: f, logPath: path, logger: logger}, nil
}

// Log records one admin action.
func (a *AuditLogger) Log(actorID uint, action string, status int, details string) {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		ActorID:   actorID,
		Action:    action,
		Status:    status,
		Details:   details,
	}

	a.mu.Lock()
	if a.logFile != nil {
		if b, err := json.Marshal(entry); err == nil {
			a.logFile.Write(append(b, '\n'))
		}
	}
	a.mu.Unlock()

	level := slog.LevelInfo
	if status >= 400 {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "admin: audit", "actor_id", actorID, "action", action, "status", status)
}

// Close releases the underlying log file handle.
func (a *AuditLogger) Close() error {
	if a.logFile == nil {
		return nil
	}
	return a.logFile.Close()
}

// Recent returns up to limit entries, most recent first.
func (a *AuditLogger) Recent(limit int) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, err := os.ReadFile(a.logPath)
	if err != nil {
		return []Entry{}
	}

	lines := strings.Split(string(content), "\n")
	var entries []Entry
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			entries = append(entries, entry)
		}
		if len(entries) >= limit {
			break
		}
	}
	return entries
}
