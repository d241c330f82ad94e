// Package download resolves shares into served files and streams them
// with resumable byte-range semantics over HTTP.
//
// Grounded on the teacher's internal/api/server.go chi-router handler
// idiom (plain http.HandlerFunc methods on a server struct, chi
// URLParam for path segments) and on internal/engine/worker.go's
// Range-header construction for part downloads, inverted here for
// serving rather than fetching ranges.
package download

import (
	"crypto/sha256"
	"encoding/base32"
	"strconv"

	"github.com/apestel/hardwire/internal/storage"
)

// fileRefLength is the number of base32 characters kept from the hash,
// short enough for a URL segment while remaining collision-free within
// the small file counts a single share holds.
const fileRefLength = 10

// FileRef derives a short, stable, deterministic token for a file
// within a share. Per spec this need only be collision-free within
// one share, so it is keyed on (share id, indexed file id).
func FileRef(shareID string, indexedFileID uint) string {
	sum := sha256.Sum256([]byte(shareID + ":" + strconv.FormatUint(uint64(indexedFileID), 10)))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return enc[:fileRefLength]
}

// ResolveFileRef finds the single file in a resolved share matching
// ref. Ambiguity never arises by construction (FileRef is a function
// of the file id), but an absent match is reported distinctly from a
// malformed share so callers can return the right error kind.
func ResolveFileRef(resolved *storage.ResolvedShare, ref string) (*storage.IndexedFile, bool) {
	for i := range resolved.Files {
		f := &resolved.Files[i]
		if FileRef(resolved.Share.ID, f.ID) == ref {
			return f, true
		}
	}
	return nil, false
}
