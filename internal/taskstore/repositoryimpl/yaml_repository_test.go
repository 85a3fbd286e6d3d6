package repositoryimpl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/internal/taskstore"
	"github.com/kazz187/microwin/pkg/cerr"
	"github.com/kazz187/microwin/pkg/storage"
)

func newTask(name string) *task.Task {
	return task.New(name, []task.Draft{
		{Description: "first", EstimatedMinutes: 3},
		{Description: "second", EstimatedMinutes: 4.5},
	}, time.Now())
}

func backends(t *testing.T) map[string]storage.Storage {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]storage.Storage{
		"memory": storage.NewMemoryStorage(),
		"local":  local,
	}
}

func TestYAMLRepository_CurrentRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewYAMLRepository(s)

			got, err := repo.LoadCurrent(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			want := newTask("clean the kitchen")
			want = task.AppendSubSteps(want, want.Steps[0].ID, task.SubStepsFromDrafts([]task.Draft{
				{Description: "a", EstimatedMinutes: 1}, {Description: "b", EstimatedMinutes: 1}, {Description: "c", EstimatedMinutes: 1},
			}))
			want.Steps[1].EstimatedMinutes = nil
			require.NoError(t, repo.SaveCurrent(ctx, want))

			got, err = repo.LoadCurrent(ctx)
			require.NoError(t, err)
			assert.True(t, task.Equal(want, got), "got %+v", got)

			require.NoError(t, repo.ClearCurrent(ctx))
			got, err = repo.LoadCurrent(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			// clearing an empty slot is fine
			require.NoError(t, repo.ClearCurrent(ctx))
		})
	}
}

func TestYAMLRepository_ArchiveRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewYAMLRepository(s)

			tk := newTask("file taxes")
			require.NoError(t, repo.SaveCurrent(ctx, tk))
			require.NoError(t, repo.Archive(ctx, tk))

			current, err := repo.LoadCurrent(ctx)
			require.NoError(t, err)
			assert.Nil(t, current)

			history, err := repo.ListHistory(ctx)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.True(t, task.Equal(tk, history[0]))
		})
	}
}

func TestYAMLRepository_ArchiveKeepsOtherCurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewYAMLRepository(storage.NewMemoryStorage())

	current := newTask("current")
	require.NoError(t, repo.SaveCurrent(ctx, current))
	require.NoError(t, repo.Archive(ctx, newTask("old")))

	got, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.True(t, task.Equal(current, got))
}

func TestYAMLRepository_HistoryInsertionOrderAndDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewYAMLRepository(s)

			var ids []string
			for _, n := range []string{"one", "two", "three", "four"} {
				tk := newTask(n)
				ids = append(ids, tk.ID)
				require.NoError(t, repo.Archive(ctx, tk))
			}

			history, err := repo.ListHistory(ctx)
			require.NoError(t, err)
			require.Len(t, history, 4)
			for i, h := range history {
				assert.Equal(t, ids[i], h.ID)
			}

			require.NoError(t, repo.DeleteFromHistory(ctx, ids[1]))
			history, err = repo.ListHistory(ctx)
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.Equal(t, []string{ids[0], ids[2], ids[3]}, []string{history[0].ID, history[1].ID, history[2].ID})

			err = repo.DeleteFromHistory(ctx, ids[1])
			assert.True(t, cerr.IsCode(err, cerr.NotFound))
		})
	}
}

func TestYAMLRepository_UnreadableHistorySkipped(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	repo := NewYAMLRepository(s)

	require.NoError(t, repo.Archive(ctx, newTask("ok")))
	require.NoError(t, s.Write(ctx, "history/zzz_broken.yaml", []byte("steps: [")))

	history, err := repo.ListHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func (failingStorage) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("io error")
}

func TestYAMLRepository_Failures(t *testing.T) {
	ctx := context.Background()
	repo := NewYAMLRepository(failingStorage{Storage: storage.NewMemoryStorage()})

	err := repo.SaveCurrent(ctx, newTask("x"))
	assert.ErrorIs(t, err, taskstore.ErrWriteFailed)

	_, err = repo.LoadCurrent(ctx)
	assert.ErrorIs(t, err, taskstore.ErrReadFailed)

	err = repo.Archive(ctx, newTask("y"))
	assert.ErrorIs(t, err, taskstore.ErrWriteFailed)
}

func TestYAMLRepository_WatchPushesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := storage.NewMemoryStorage()
	repo := NewYAMLRepository(s)
	_, changes := repo.Subscribe(8)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = repo.Watch(ctx, s)
	}()

	// another writer sharing the same storage
	other := NewYAMLRepository(s)
	tk := newTask("shared")
	require.Eventually(t, func() bool {
		_ = other.SaveCurrent(ctx, tk)
		select {
		case c := <-changes:
			return c.Kind == taskstore.ChangeCurrent && task.Equal(tk, c.Current)
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
