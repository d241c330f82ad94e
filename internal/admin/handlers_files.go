package admin

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/indexer"
	"github.com/apestel/hardwire/internal/integrity"
)

// fileNode mirrors the indexer's File for JSON exposure, sorted for
// stable client rendering.
type fileNode struct {
	Path     string     `json:"path"`
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Size     int64      `json:"size"`
	ModTime  int64      `json:"mod_time"`
	Children []fileNode `json:"children"`
}

func toFileNode(n *indexer.File) fileNode {
	out := fileNode{Path: n.Path, Name: n.Name, IsDir: n.IsDir, Size: n.Size, ModTime: n.ModTime}
	for _, c := range n.Children {
		out.Children = append(out.Children, toFileNode(c))
	}
	if out.Children == nil {
		out.Children = []fileNode{}
	}
	return out
}

// handleListFiles implements GET /admin/api/list_files.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	snap := s.idx.Snapshot()
	sorted := indexer.Sorted(snap.Roots)

	nodes := make([]fileNode, 0, len(sorted))
	for _, n := range sorted {
		nodes = append(nodes, toFileNode(n))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": nodes, "scanned_at": snap.ScanAt})
}

// handleRescan implements POST /admin/api/files/rescan: triggers an
// out-of-band scan without waiting for it to finish.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	s.idx.Rescan()
	s.audit.Log(adminUserFromContext(r).ID, "files.rescan", http.StatusAccepted, "")
	w.WriteHeader(http.StatusAccepted)
}

type createSharedLinkRequest struct {
	FilePaths []string `json:"file_paths"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

type createSharedLinkResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// handleCreateSharedLink implements POST /admin/api/create_shared_link.
// Unknown paths are resolved by stat-ing and inserting them, matching
// the spec's "inserting any unknown paths it can stat" contract.
func (s *Server) handleCreateSharedLink(w http.ResponseWriter, r *http.Request) {
	var req createSharedLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindValidation, "malformed request body", err))
		return
	}
	if len(req.FilePaths) == 0 {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "file_paths must not be empty"))
		return
	}
	if s.cfg.MaxFiles > 0 && len(req.FilePaths) > s.cfg.MaxFiles {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindTooManyFiles, "too many files for one share"))
		return
	}

	fileIDs := make([]uint, 0, len(req.FilePaths))
	for _, path := range req.FilePaths {
		f, err := s.store.IndexedFileByPath(path)
		if err != nil {
			info, statErr := os.Stat(path)
			if statErr != nil || info.IsDir() {
				hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "file does not exist: "+path))
				return
			}
			if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
				hwerr.WriteJSON(w, hwerr.New(hwerr.KindFileSizeLimitExceed, "file exceeds size limit: "+path))
				return
			}
			f, err = s.store.UpsertIndexedFile(path, info.Size(), "")
			if err != nil {
				hwerr.WriteJSON(w, err)
				return
			}
		}
		if s.cfg.MaxFileSize > 0 && f.Size > s.cfg.MaxFileSize {
			hwerr.WriteJSON(w, hwerr.New(hwerr.KindFileSizeLimitExceed, "file exceeds size limit: "+path))
			return
		}
		fileIDs = append(fileIDs, f.ID)
	}

	shareID, err := newShareID()
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "generate share id", err))
		return
	}

	if err := s.store.CreateShare(shareID, fileIDs, req.ExpiresAt); err != nil {
		hwerr.WriteJSON(w, err)
		return
	}

	s.audit.Log(adminUserFromContext(r).ID, "create_shared_link", http.StatusOK, shareID)

	writeJSON(w, http.StatusOK, createSharedLinkResponse{
		ID:        shareID,
		URL:       s.cfg.HostBaseURL + "/s/" + shareID,
		ExpiresAt: req.ExpiresAt,
	})
}

type verifyFileResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// handleVerifyFile implements GET /admin/api/files/{id}/verify: recomputes
// the on-disk file's SHA256 and compares it against the hash recorded at
// index time, surfacing bit rot or an out-of-band file swap.
func (s *Server) handleVerifyFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintParam(r, "id")
	if err != nil {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "invalid file id"))
		return
	}

	f, err := s.store.IndexedFileByID(id)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	if f.SHA256 == "" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "file has no recorded hash to verify against"))
		return
	}

	verifier := integrity.NewFileVerifier()
	if err := verifier.Verify(f.Path, "sha256", f.SHA256); err != nil {
		s.audit.Log(adminUserFromContext(r).ID, "files.verify", http.StatusOK, f.Path+": "+err.Error())
		writeJSON(w, http.StatusOK, verifyFileResponse{Valid: false, Error: err.Error()})
		return
	}

	s.audit.Log(adminUserFromContext(r).ID, "files.verify", http.StatusOK, f.Path)
	writeJSON(w, http.StatusOK, verifyFileResponse{Valid: true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
