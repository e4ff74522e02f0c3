package watcher

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher signals changes of a single file.
type Watcher struct {
	watcher *fsnotify.Watcher

	// Events receives a value when the file was written or replaced. Bursts
	// of changes are coalesced.
	Events chan struct{}
	Errors chan error
}

func NewWatcher(file string, logger *zap.Logger) (*Watcher, error) {
	if err := validateFile(file); err != nil {
		return nil, errors.Wrapf(err, "error validating file %q", file)
	}

	file = filepath.Clean(file)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrapf(err, "error creating fsnotify watcher")
	}

	eventchan := make(chan struct{}, 1)
	errchan := make(chan error, 1)
	go fileLoop(w, file, eventchan, errchan, logger.With(zap.String("file", file)))

	// Watch the directory, not the file itself, so editors replacing the
	// file are noticed.
	err = w.Add(filepath.Dir(file))
	if err != nil {
		_ = w.Close()
		return nil, errors.Wrapf(err, "error adding file %q to watcher", file)
	}

	return &Watcher{
		watcher: w,
		Events:  eventchan,
		Errors:  errchan,
	}, nil
}

func validateFile(file string) error {
	st, err := os.Lstat(file)
	if err != nil {
		return errors.Wrapf(err, "error getting file info for %q", file)
	}

	if st.IsDir() {
		return errors.Errorf("expected a file, but %q is a directory", file)
	}

	return nil
}

func fileLoop(w *fsnotify.Watcher, file string, eventchan chan struct{}, errchan chan error, logger *zap.Logger) {
	for {
		select {
		case err, ok := <-w.Errors:
			if !ok { // Channel was closed (i.e. Watcher.Close() was called).
				return
			}
			select {
			case errchan <- errors.Wrapf(err, "error received from fsnotify watcher"):
			default: // An error is already pending.
				logger.Warn("Dropping watcher error", zap.Error(err))
			}
		case e, ok := <-w.Events:
			if !ok { // Channel was closed (i.e. Watcher.Close() was called).
				return
			}

			if filepath.Clean(e.Name) != file || !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}

			logger.Debug("File changed", zap.Stringer("op", e.Op))

			select {
			case eventchan <- struct{}{}:
			default: // A change is already pending.
			}
		}
	}
}

func (w *Watcher) Shutdown() error {
	if err := w.watcher.Close(); err != nil {
		return errors.Wrap(err, "error closing fsnotify watcher")
	}

	return nil
}
