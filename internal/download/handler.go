package download

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/progress"
	"github.com/apestel/hardwire/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler serves the public share-download surface.
type Handler struct {
	store  *storage.Store
	bus    *progress.Bus
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a download Handler.
func New(store *storage.Store, bus *progress.Bus, logger *slog.Logger) *Handler {
	return &Handler{store: store, bus: bus, logger: logger, now: time.Now}
}

// Routes mounts the public download endpoints onto r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/s/{share_id}", h.handleLandingPage)
	r.Get("/s/{share_id}/{file_ref}", h.handleDownload)
	r.Head("/s/{share_id}/{file_ref}", h.handleStat)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*storage.ResolvedShare, *storage.IndexedFile, bool) {
	shareID := chi.URLParam(r, "share_id")
	fileRef := chi.URLParam(r, "file_ref")

	resolved, err := h.store.ResolveShare(shareID, h.now())
	if err != nil {
		hwerr.WriteJSON(w, err)
		return nil, nil, false
	}

	file, ok := ResolveFileRef(resolved, fileRef)
	if !ok {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindFileNotFound, "file not found in share"))
		return nil, nil, false
	}
	return resolved, file, true
}

// handleStat implements HEAD /s/{share_id}/{file_ref}: no transaction
// row is created, matching the spec's stat-only contract.
func (h *Handler) handleStat(w http.ResponseWriter, r *http.Request) {
	_, file, ok := h.resolve(w, r)
	if !ok {
		return
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindFileNotFound, "file missing from disk", err))
		return
	}

	setCommonHeaders(w, file.Path, info.Size())
	w.WriteHeader(http.StatusOK)
}

// handleDownload implements GET /s/{share_id}/{file_ref}: resolves the
// share and file, then hands off to ServeFile for the range/transaction
// machinery shared with the admin task-artifact download endpoint.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, file, ok := h.resolve(w, r)
	if !ok {
		return
	}
	ServeFile(w, r, h.store, h.bus, h.logger, file.Path, h.now)
}

// ServeFile streams path through a single Range request, recording a
// download transaction and instrumenting the copy through bus. It is
// the one engine path behind both the public share-download endpoint
// and the admin archive-artifact download endpoint (§4.5: "streams the
// raw archive directly, same engine path as §4.4"), so both get
// identical range handling, transaction bookkeeping, and progress
// reporting instead of each hand-rolling their own.
func ServeFile(w http.ResponseWriter, r *http.Request, store *storage.Store, bus *progress.Bus, logger *slog.Logger, path string, now func() time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindFileNotFound, "file missing from disk", err))
		return
	}
	size := info.Size()

	rng, rerr := ParseRange(r.Header.Get("Range"), size)
	if rerr != nil {
		if hwerr.Is(rerr, hwerr.KindRangeNotSatisfiable) {
			w.Header().Set("Content-Range", UnsatisfiableContentRangeHeader(size))
			hwerr.WriteJSON(w, rerr)
			return
		}
		hwerr.WriteJSON(w, rerr)
		return
	}

	transactionID := r.Header.Get("X-Transaction-Id")
	if transactionID == "" {
		transactionID = uuid.New().String()
	}

	requesterIP := requesterIP(r)
	startedAt := now()
	if err := store.StartDownload(transactionID, path, requesterIP, size, startedAt); err != nil {
		logger.Error("download: failed to start transaction", "transaction_id", transactionID, "error", err)
	}

	f, err := os.Open(path)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindFileNotFound, "cannot open file", err))
		return
	}
	defer f.Close()

	var start, length int64
	status := http.StatusOK
	if rng != nil {
		start = rng.Start
		length = rng.Length()
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", ContentRangeHeader(*rng, size))
	} else {
		length = size
	}

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindFileSystem, "seek failed", err))
			return
		}
	}

	w.Header().Set("X-Transaction-Id", transactionID)
	setCommonHeaders(w, path, size)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", length))
	w.WriteHeader(status)

	reader := progress.NewReader(io.LimitReader(f, length), bus, transactionID, path, length)

	written, copyErr := io.Copy(w, reader)

	finishedAt := now()
	if copyErr != nil || written != length {
		reader.Fail(copyErr)
		if err := store.FinishDownload(transactionID, "failed", finishedAt); err != nil {
			logger.Error("download: failed to finalize transaction", "transaction_id", transactionID, "error", err)
		}
		return
	}
	if err := store.FinishDownload(transactionID, "completed", finishedAt); err != nil {
		logger.Error("download: failed to finalize transaction", "transaction_id", transactionID, "error", err)
	}
}

// handleLandingPage implements GET /s/{share_id}.
func (h *Handler) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "share_id")
	resolved, err := h.store.ResolveShare(shareID, h.now())
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}
	RenderLandingPage(w, shareID, resolved)
}

func setCommonHeaders(w http.ResponseWriter, path string, size int64) {
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", ContentType(path))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
}

func requesterIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host := r.RemoteAddr
	if idx := lastColon(host); idx >= 0 {
		return host[:idx]
	}
	return host
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
