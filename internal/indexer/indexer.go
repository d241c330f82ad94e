// Package indexer periodically materializes a data directory into an
// in-memory tree snapshot, and reconciles the persisted file table
// that shares reference by stable id.
//
// Grounded on the teacher's read-mostly publish pattern in
// internal/engine/manager.go (a pointer swapped under a lock, readers
// never blocking a publish) — generalized here to atomic.Pointer,
// since the snapshot is always replaced wholesale rather than mutated
// in place — and on internal/queue/queue.go's single-slot coalescing
// signal idiom for the rescan trigger channel.
package indexer

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apestel/hardwire/internal/integrity"
	"github.com/apestel/hardwire/internal/storage"
)

// File is a node in the cached tree, mirroring §3's File attributes.
type File struct {
	Path      string
	Name      string
	IsDir     bool
	Size      int64
	CreatedAt int64
	ModTime   int64
	Children  []*File
}

// Snapshot is an immutable forest produced by one indexer pass.
type Snapshot struct {
	Roots   []*File
	ScanAt  time.Time
}

// Indexer owns the background scan loop and the published snapshot.
type Indexer struct {
	root     string
	interval time.Duration
	store    *storage.Store
	logger   *slog.Logger

	snapshot atomic.Pointer[Snapshot]
	rescanCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs an Indexer rooted at dataDir, scanning every interval.
func New(dataDir string, interval time.Duration, store *storage.Store, logger *slog.Logger) *Indexer {
	idx := &Indexer{
		root:     dataDir,
		interval: interval,
		store:    store,
		logger:   logger,
		rescanCh: make(chan struct{}, 1), // single-slot: rapid triggers coalesce
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	idx.snapshot.Store(&Snapshot{Roots: nil, ScanAt: time.Time{}})
	return idx
}

// Start runs the scan loop on its own goroutine until Stop is called.
func (idx *Indexer) Start() {
	go idx.loop()
}

// Stop signals the scan loop to exit and waits for it to finish.
func (idx *Indexer) Stop() {
	close(idx.stopCh)
	<-idx.doneCh
}

// Rescan requests an out-of-band scan; rapid calls coalesce to one.
func (idx *Indexer) Rescan() {
	select {
	case idx.rescanCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the current immutable forest. Callers may hold the
// returned value for their entire request; a scan in progress never
// tears a held read.
func (idx *Indexer) Snapshot() *Snapshot {
	return idx.snapshot.Load()
}

func (idx *Indexer) loop() {
	defer close(idx.doneCh)

	idx.scan()

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-idx.stopCh:
			return
		case <-ticker.C:
			idx.scan()
		case <-idx.rescanCh:
			idx.scan()
		}
	}
}

// scan walks the data root and publishes a new snapshot. A per-path
// error (permission denied, transient I/O) is logged and skipped; a
// root that cannot be opened at all is logged and the scan retried
// next interval without publishing, per §4.2's failure policy.
func (idx *Indexer) scan() {
	info, err := os.Stat(idx.root)
	if err != nil || !info.IsDir() {
		idx.logger.Error("indexer: cannot open data root", "root", idx.root, "error", err)
		return
	}

	roots, err := idx.walk(idx.root)
	if err != nil {
		idx.logger.Error("indexer: scan failed", "root", idx.root, "error", err)
		return
	}

	idx.snapshot.Store(&Snapshot{Roots: roots, ScanAt: time.Now()})
	idx.reconcile(roots)
}

func (idx *Indexer) walk(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var nodes []*File
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			// Symlinks are resolved, but a target outside the data root is skipped.
			root, rootErr := filepath.EvalSymlinks(idx.root)
			target, linkErr := filepath.EvalSymlinks(path)
			rel, relErr := filepath.Rel(root, target)
			if rootErr != nil || linkErr != nil || relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				idx.logger.Warn("indexer: skipping symlink outside data root", "path", path)
				continue
			}
		}
		fi, err := os.Stat(path)
		if err != nil {
			idx.logger.Warn("indexer: skipping path", "path", path, "error", err)
			continue
		}

		node := &File{
			Path:    path,
			Name:    entry.Name(),
			IsDir:   fi.IsDir(),
			ModTime: fi.ModTime().Unix(),
		}

		if fi.IsDir() {
			children, err := idx.walk(path)
			if err != nil {
				idx.logger.Warn("indexer: skipping directory", "path", path, "error", err)
				children = []*File{}
			}
			node.Children = children
		} else {
			node.Size = fi.Size()
			node.Children = []*File{}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// reconcile upserts every observed file path into the persisted table.
// Paths that vanished are left alone (§4.2): a share may still
// reference them, and download will 404 at stream time.
//
// A file seen for the first time has its SHA256 computed once via
// integrity.CalculateHash and stored alongside it; a file already on
// record keeps its existing hash (UpsertIndexedFile only overwrites it
// when given a non-empty value), so a rescan never re-hashes the whole
// tree — only genuinely new paths pay the read cost.
func (idx *Indexer) reconcile(roots []*File) {
	var walk func(n *File)
	walk = func(n *File) {
		if !n.IsDir {
			sum := ""
			if _, err := idx.store.IndexedFileByPath(n.Path); err != nil {
				if h, hashErr := integrity.CalculateHash(n.Path, "sha256"); hashErr == nil {
					sum = h
				} else {
					idx.logger.Warn("indexer: failed to hash new file", "path", n.Path, "error", hashErr)
				}
			}
			if _, err := idx.store.UpsertIndexedFile(n.Path, n.Size, sum); err != nil {
				idx.logger.Error("indexer: failed to upsert indexed file", "path", n.Path, "error", err)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}

// Sorted returns the forest with directories preceding files at each
// level and both groups name-sorted, for consumers that request
// stable output (§4.2: "raw snapshot order is unspecified"). Directory
// nodes are copied, so the input forest is left unmodified.
func Sorted(nodes []*File) []*File {
	out := make([]*File, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	for i, n := range out {
		if n.IsDir {
			cp := *n
			cp.Children = Sorted(n.Children)
			out[i] = &cp
		}
	}
	return out
}
