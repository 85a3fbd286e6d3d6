package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the delay after an fsnotify event before the file is
// re-hashed, letting write+rename pairs settle.
const DebounceInterval = 100 * time.Millisecond

// Watch reports paths under the base directory whose content changed. It
// watches the base directory and its first-level subdirectories; directories
// created later are added as they appear.
func (s *LocalStorage) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := s.addWatchDirs(watcher); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan string, 64)
	lw := &localWatch{
		storage: s,
		out:     out,
		hashes:  make(map[string][sha256.Size]byte),
		timers:  make(map[string]*time.Timer),
	}
	go lw.run(ctx, watcher)
	return out, nil
}

func (s *LocalStorage) addWatchDirs(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(s.basePath); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", s.basePath, err)
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.basePath, entry.Name())
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	return nil
}

type localWatch struct {
	storage *LocalStorage
	out     chan string

	mu     sync.Mutex
	closed bool
	hashes map[string][sha256.Size]byte
	timers map[string]*time.Timer
}

func (w *localWatch) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		_ = watcher.Close()
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.closed = true
		close(w.out)
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(event.Name, tmpSuffix) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						slog.Warn("storage watch: failed to add directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("storage watch: fsnotify error", "error", err)
		}
	}
}

func (w *localWatch) schedule(full string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[full]; ok {
		t.Stop()
	}
	w.timers[full] = time.AfterFunc(DebounceInterval, func() {
		w.emitIfChanged(full)
	})
}

func (w *localWatch) emitIfChanged(full string) {
	var sum [sha256.Size]byte
	data, err := os.ReadFile(full)
	if err == nil {
		sum = sha256.Sum256(data)
	}

	rel, err := filepath.Rel(w.storage.basePath, full)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.timers, full)
	if w.closed {
		return
	}
	if prev, ok := w.hashes[full]; ok && prev == sum {
		return
	}
	w.hashes[full] = sum
	select {
	case w.out <- rel:
	default:
		slog.Warn("storage watch: subscriber is behind, dropping change", "path", rel)
	}
}
