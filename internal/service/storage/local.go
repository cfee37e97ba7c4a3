package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
)

// LocalConfig is fixed when the sink is built.
type LocalConfig struct {
	Directory string
	Namer     *Namer
}

// LocalSink writes every item to its own file in the output directory.
type LocalSink struct {
	dir    string
	namer  *Namer
	logger *logger.Logger
}

// NewLocalSink creates a sink writing into cfg.Directory.
func NewLocalSink(cfg LocalConfig, logger *logger.Logger) *LocalSink {
	return &LocalSink{
		dir:    cfg.Directory,
		namer:  cfg.Namer,
		logger: logger,
	}
}

func (s *LocalSink) Name() string {
	return "local"
}

// Deliver writes item.Data to a hidden temporary file and links it under its
// final name once the bytes are synced. An existing file with the same name
// is reported as a collision and left untouched.
func (s *LocalSink) Deliver(ctx context.Context, item *model.CapturedItem) error {
	const op = "storage.local"

	filename := s.namer.Render(item.CapturedAt)
	fullpath := filepath.Join(s.dir, filename)

	tmp, err := os.CreateTemp(s.dir, ".pending-*")
	if err != nil {
		return apperr.Wrap(apperr.KindSinkFailure, op, "cannot create file in "+s.dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(item.Data); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.KindSinkFailure, op, "error writing "+filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.KindSinkFailure, op, "error syncing "+filename, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.KindSinkFailure, op, "error setting mode of "+filename, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(apperr.KindSinkFailure, op, "error closing "+filename, err)
	}

	if err := publish(tmpPath, fullpath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return apperr.Wrap(apperr.KindSinkFailure, op, "file already exists: "+filename, err)
		}
		return apperr.Wrap(apperr.KindSinkFailure, op, "error saving "+filename, err)
	}

	s.logger.Info("💾 Saved %s (%d bytes)", filename, len(item.Data))
	return nil
}

// linkFile is replaced in tests to simulate filesystems without hard links.
var linkFile = os.Link

// publish makes tmpPath visible as fullpath without replacing an existing
// file. Filesystems without hard links (FAT, exFAT, some network mounts) get
// an existence check followed by a rename.
func publish(tmpPath, fullpath string) error {
	err := linkFile(tmpPath, fullpath)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return err
	}

	if _, statErr := os.Lstat(fullpath); statErr == nil {
		return &fs.PathError{Op: "rename", Path: fullpath, Err: fs.ErrExist}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}
	if renameErr := os.Rename(tmpPath, fullpath); renameErr != nil {
		return fmt.Errorf("link: %v; rename: %w", err, renameErr)
	}
	return nil
}
