package repositoryimpl

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/internal/taskstore"
	"github.com/kazz187/microwin/pkg/storage"
)

const (
	currentPath   = "current_task.yaml"
	historyPrefix = "history"

	// historyReadConcurrency bounds parallel reads when loading the archive.
	historyReadConcurrency = 8
)

var (
	_ taskstore.Store      = (*YAMLRepository)(nil)
	_ taskstore.Subscriber = (*YAMLRepository)(nil)
)

// YAMLRepository keeps the current task in current_task.yaml and each
// archived task in history/<archive id>_<task id>.yaml. Archive ids are
// monotonic ULIDs, so listing the directory yields insertion order.
type YAMLRepository struct {
	storage storage.Storage
	*taskstore.Hub

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		storage: s,
		Hub:     taskstore.NewHub(),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func historyPath(archiveID, taskID string) string {
	return fmt.Sprintf("%s/%s_%s.yaml", historyPrefix, archiveID, taskID)
}

// taskIDFromPath extracts the task id from a history entry path.
func taskIDFromPath(p string) (string, bool) {
	name := strings.TrimSuffix(path.Base(p), ".yaml")
	_, id, ok := strings.Cut(name, "_")
	return id, ok
}

func (r *YAMLRepository) LoadCurrent(ctx context.Context) (*task.Task, error) {
	data, err := r.storage.Read(ctx, currentPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, taskstore.ReadError("current task", err)
	}
	t, err := unmarshal(data)
	if err != nil {
		return nil, taskstore.ReadError("current task", err)
	}
	return t, nil
}

func (r *YAMLRepository) SaveCurrent(ctx context.Context, t *task.Task) error {
	if t == nil {
		return r.ClearCurrent(ctx)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return taskstore.WriteError("current task", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, currentPath, data); err != nil {
		return taskstore.WriteError("current task", err)
	}
	return nil
}

func (r *YAMLRepository) ClearCurrent(ctx context.Context) error {
	if err := r.storage.Delete(ctx, currentPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return taskstore.WriteError("current task", err)
	}
	return nil
}

func (r *YAMLRepository) Archive(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return taskstore.WriteError("history", fmt.Errorf("failed to marshal task: %w", err))
	}

	r.mu.Lock()
	archiveID := ulid.MustNew(ulid.Now(), r.entropy).String()
	r.mu.Unlock()

	if err := r.storage.Write(ctx, historyPath(archiveID, t.ID), data); err != nil {
		return taskstore.WriteError("history", err)
	}

	current, err := r.LoadCurrent(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.ID == t.ID {
		return r.ClearCurrent(ctx)
	}
	return nil
}

func (r *YAMLRepository) ListHistory(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, historyPrefix)
	if err != nil {
		return nil, taskstore.ReadError("history", err)
	}

	tasks := make([]*task.Task, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(historyReadConcurrency)
	for i, p := range paths {
		eg.Go(func() error {
			data, err := r.storage.Read(egCtx, p)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					// deleted between List and Read
					return nil
				}
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			t, err := unmarshal(data)
			if err != nil {
				slog.WarnContext(egCtx, "skipping unreadable history entry", "path", p, "error", err)
				return nil
			}
			tasks[i] = t
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, taskstore.ReadError("history", err)
	}

	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *YAMLRepository) DeleteFromHistory(ctx context.Context, taskID string) error {
	paths, err := r.storage.List(ctx, historyPrefix)
	if err != nil {
		return taskstore.ReadError("history", err)
	}
	var deleted bool
	for _, p := range paths {
		id, ok := taskIDFromPath(p)
		if !ok || id != taskID {
			continue
		}
		if err := r.storage.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return taskstore.WriteError("history", err)
		}
		deleted = true
	}
	if !deleted {
		return taskstore.NotFoundError(taskID)
	}
	return nil
}

// Watch reloads state whenever w reports a change and pushes it to
// subscribers. It blocks until ctx is done.
func (r *YAMLRepository) Watch(ctx context.Context, w storage.Watcher) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch storage: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-changes:
			if !ok {
				return nil
			}
			r.reload(ctx, p)
		}
	}
}

func (r *YAMLRepository) reload(ctx context.Context, p string) {
	switch {
	case p == currentPath:
		t, err := r.LoadCurrent(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to reload current task", "error", err)
			return
		}
		r.Publish(taskstore.Change{Kind: taskstore.ChangeCurrent, Current: t})
	case strings.HasPrefix(p, historyPrefix+"/"):
		history, err := r.ListHistory(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to reload history", "error", err)
			return
		}
		r.Publish(taskstore.Change{Kind: taskstore.ChangeHistory, History: history})
	}
}

func unmarshal(data []byte) (*task.Task, error) {
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &t, nil
}

