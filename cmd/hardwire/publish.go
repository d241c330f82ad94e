package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apestel/hardwire/internal/admin"
	"github.com/apestel/hardwire/internal/config"
	"github.com/apestel/hardwire/internal/storage"
)

// runPublishMode implements `-f/--filename <path>`: index one file,
// mint a share, and print its URL, without starting the HTTP server.
// It opens the same database the server uses, so a share minted this
// way is immediately resolvable once the server is (or already is)
// running.
func runPublishMode(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return &cliError{code: 1, msg: fmt.Sprintf("resolve path: %v", err)}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return &cliError{code: 1, msg: fmt.Sprintf("stat file: %v", err)}
	}
	if info.IsDir() {
		return &cliError{code: 1, msg: "-f/--filename must name a file, not a directory"}
	}
	if cfg.MaxFileSizeMB > 0 && info.Size() > cfg.MaxFileSizeMB*1024*1024 {
		return &cliError{code: 1, msg: "file exceeds HARDWIRE_MAX_FILE_SIZE_MB"}
	}

	store, err := storage.Open(storage.Options{
		Path:           cfg.DBPath,
		MaxConnections: cfg.DBMaxConnections,
		MinConnections: cfg.DBMinConnections,
		AcquireTimeout: time.Duration(cfg.DBAcquireTimeout) * time.Second,
	})
	if err != nil {
		return &cliError{code: 2, msg: fmt.Sprintf("open store: %v", err)}
	}
	defer store.Close()

	file, err := store.UpsertIndexedFile(abs, info.Size(), "")
	if err != nil {
		return &cliError{code: 2, msg: fmt.Sprintf("index file: %v", err)}
	}

	shareID, err := admin.NewShareID()
	if err != nil {
		return &cliError{code: 2, msg: fmt.Sprintf("mint share id: %v", err)}
	}

	if err := store.CreateShare(shareID, []uint{file.ID}, 0); err != nil {
		return &cliError{code: 2, msg: fmt.Sprintf("create share: %v", err)}
	}

	fmt.Printf("%s/s/%s\n", cfg.Host, shareID)
	return nil
}
