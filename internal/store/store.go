// Package store persists the account registry and broadcast history across
// restarts as a single snapshot file.
package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// Account is a registered nickname with its password of record. Live
// connections are never persisted.
//
// Passwords are stored in cleartext. This is a known weakness kept for
// compatibility with existing snapshots and clients.
type Account struct {
	Nickname string
	Password string
}

// Snapshot is everything that survives a restart.
type Snapshot struct {
	Accounts []Account
	History  []wire.Message
}

// Gateway reads and writes the snapshot file.
type Gateway struct {
	path   string
	logger *slog.Logger
}

func NewGateway(path string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{path: path, logger: logger}
}

func (g *Gateway) Path() string { return g.path }

// Save writes the accounts record followed by the history record, replacing
// any previous file atomically.
func (g *Gateway) Save(snap Snapshot) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(snap.Accounts); err != nil {
		return fmt.Errorf("store: encode accounts: %w", err)
	}
	if err := enc.Encode(snap.History); err != nil {
		return fmt.Errorf("store: encode history: %w", err)
	}
	if err := atomic.WriteFile(g.path, &buf); err != nil {
		return fmt.Errorf("store: write %s: %w", g.path, err)
	}

	g.logger.Info("snapshot saved",
		"path", g.path,
		"accounts", len(snap.Accounts),
		"history", len(snap.History))
	return nil
}

// Load reads the snapshot. ok is false when no snapshot file exists, which is
// the normal cold-start case.
func (g *Gateway) Load() (snap Snapshot, ok bool, err error) {
	f, err := os.Open(g.path)
	if errors.Is(err, fs.ErrNotExist) {
		g.logger.Info("snapshot not found, starting empty", "path", g.path)
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: open %s: %w", g.path, err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	if err := dec.Decode(&snap.Accounts); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: decode accounts: %w", err)
	}
	if err := dec.Decode(&snap.History); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: decode history: %w", err)
	}

	g.logger.Info("snapshot loaded",
		"path", g.path,
		"accounts", len(snap.Accounts),
		"history", len(snap.History))
	return snap, true, nil
}
