package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/apestel/hardwire/internal/download"
	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/go-chi/chi/v5"
)

// createTaskRequest is the tagged-union wire format for task
// submission: { "type": "CreateArchive", "data": { ... } }.
type createTaskRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
}

// handleCreateTask implements POST /admin/api/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindValidation, "malformed request body", err))
		return
	}
	if req.Type == "" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "type is required"))
		return
	}

	task, err := s.tasksMgr.Submit(req.Type, string(req.Data))
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}

	s.audit.Log(adminUserFromContext(r).ID, "create_task", http.StatusOK, req.Type)

	writeJSON(w, http.StatusOK, createTaskResponse{TaskID: task.ID})
}

// handleGetTask implements GET /admin/api/tasks/{id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.store.GetTask(id)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleDownloadTaskArtifact implements
// GET /admin/api/tasks/{id}/download: streams the archive produced by
// a Completed CreateArchive task directly, bypassing share resolution
// (authorization here is the bearer token already required by this
// route group). Per §4.5 this is the same engine path as the public
// share-download endpoint, so it hands off to download.ServeFile for
// range handling, transaction bookkeeping, and progress reporting
// instead of re-implementing a second, more limited streamer.
func (s *Server) handleDownloadTaskArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.store.GetTask(id)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	if task.Status != "Completed" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "task has not completed"))
		return
	}

	var output struct {
		ArchivePath string `json:"archive_path"`
	}
	if err := json.Unmarshal([]byte(task.OutputData), &output); err != nil || output.ArchivePath == "" {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "malformed task output", err))
		return
	}

	download.ServeFile(w, r, s.store, s.bus, s.logger, output.ArchivePath, time.Now)
}
