package api

import (
	"path/filepath"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/acquire"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// confineSnapshot rewrites req.SnapshotPath to a file inside the configured
// snapshot directory, or rejects it. Remote callers never reach arbitrary
// server files or URLs.
func (s *Server) confineSnapshot(req *types.Request) error {
	p := strings.TrimSpace(req.SnapshotPath)
	if p == "" {
		return nil
	}

	if acquire.IsRemote(p) {
		if !s.cfg.AllowRemoteSnapshots {
			return snapshotRejected("remote snapshots are disabled on this server")
		}
		return nil
	}

	if s.cfg.SnapshotDir == "" {
		return snapshotRejected("snapshot files are disabled on this server")
	}
	if filepath.IsAbs(p) {
		return snapshotRejected("must be relative to the server snapshot directory")
	}

	root, err := filepath.Abs(s.cfg.SnapshotDir)
	if err != nil {
		return snapshotRejected("snapshot directory unavailable")
	}
	full := filepath.Join(root, p)
	if !within(root, full) {
		return snapshotRejected("escapes the server snapshot directory")
	}

	// Symlinks inside the directory must not lead out of it.
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		realRoot, err := filepath.EvalSymlinks(root)
		if err != nil || !within(realRoot, resolved) {
			return snapshotRejected("escapes the server snapshot directory")
		}
	}

	req.SnapshotPath = full
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func snapshotRejected(msg string) error {
	return &types.ConfigurationError{Field: "snapshot_path", Message: msg}
}
