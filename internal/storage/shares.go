package storage

import (
	"errors"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"gorm.io/gorm"
)

// ResolvedShare is the result of resolving a share token: the share
// metadata plus its ordered member files.
type ResolvedShare struct {
	Share *Share
	Files []IndexedFile
}

// UpsertIndexedFile inserts or refreshes a PersistedFile row by path,
// matching the indexer's reconciliation contract in §4.2: newly seen
// paths are inserted, known paths have size/hash refreshed.
func (s *Store) UpsertIndexedFile(path string, size int64, sha256 string) (*IndexedFile, error) {
	var f IndexedFile
	err := s.DB.Where("path = ?", path).First(&f).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		f = IndexedFile{Path: path, Size: size, SHA256: sha256}
		if err := s.DB.Create(&f).Error; err != nil {
			return nil, hwerr.Wrap(hwerr.KindDatabase, "create indexed file", err)
		}
		return &f, nil
	case err != nil:
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup indexed file", err)
	}

	f.Size = size
	if sha256 != "" {
		f.SHA256 = sha256
	}
	if err := s.DB.Save(&f).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "update indexed file", err)
	}
	return &f, nil
}

// IndexedFileByPath looks up a PersistedFile row by its canonical path,
// returning FileNotFound when no row exists; it never inserts one
// (share creation stats and upserts unknown paths itself).
func (s *Store) IndexedFileByPath(path string) (*IndexedFile, error) {
	var f IndexedFile
	err := s.DB.Where("path = ?", path).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hwerr.New(hwerr.KindFileNotFound, "file not indexed: "+path)
	}
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup indexed file", err)
	}
	return &f, nil
}

// IndexedFileByID looks up a PersistedFile row by its primary key, used
// by the admin integrity-check endpoint to resolve a file's recorded
// path and hash before re-reading it from disk.
func (s *Store) IndexedFileByID(id uint) (*IndexedFile, error) {
	var f IndexedFile
	err := s.DB.Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hwerr.New(hwerr.KindFileNotFound, "file not indexed")
	}
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup indexed file", err)
	}
	return &f, nil
}

// CreateShare atomically inserts a share row plus its ordered join
// rows, per the "share creation is atomic" guarantee in §5.
func (s *Store) CreateShare(id string, fileIDs []uint, expiresAt int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		share := Share{ID: id, ExpiresAt: expiresAt}
		if err := tx.Create(&share).Error; err != nil {
			return hwerr.Wrap(hwerr.KindDatabase, "create share", err)
		}
		for i, fid := range fileIDs {
			row := ShareFile{ShareID: id, IndexedFileID: fid, Position: i}
			if err := tx.Create(&row).Error; err != nil {
				return hwerr.Wrap(hwerr.KindDatabase, "create share file", err)
			}
		}
		return nil
	})
}

// ResolveShare looks up a share by token and returns it together with
// its member files in insertion order, failing ShareNotFound or
// ShareExpired as specified in §4.4.
func (s *Store) ResolveShare(id string, now time.Time) (*ResolvedShare, error) {
	var share Share
	if err := s.DB.Where("id = ?", id).First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hwerr.New(hwerr.KindShareNotFound, "share not found")
		}
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup share", err)
	}

	if share.ExpiresAt != 0 && share.ExpiresAt <= now.Unix() {
		return nil, hwerr.New(hwerr.KindShareExpired, "share expired")
	}

	var joins []ShareFile
	if err := s.DB.Where("share_id = ?", id).Order("position asc").Find(&joins).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "list share files", err)
	}

	ids := make([]uint, len(joins))
	for i, j := range joins {
		ids[i] = j.IndexedFileID
	}

	var files []IndexedFile
	if len(ids) > 0 {
		if err := s.DB.Where("id IN ?", ids).Find(&files).Error; err != nil {
			return nil, hwerr.Wrap(hwerr.KindDatabase, "list indexed files", err)
		}
	}

	// Preserve join order: Find() does not honor the IN-list order.
	byID := make(map[uint]IndexedFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	ordered := make([]IndexedFile, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			ordered = append(ordered, f)
		}
	}

	return &ResolvedShare{Share: &share, Files: ordered}, nil
}
