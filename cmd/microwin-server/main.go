package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	server "github.com/kazz187/microwin/internal"
	"github.com/kazz187/microwin/internal/config"
	"github.com/kazz187/microwin/internal/decompose"
	"github.com/kazz187/microwin/internal/event"
	"github.com/kazz187/microwin/internal/eventbus"
	"github.com/kazz187/microwin/internal/orchestrator"
	"github.com/kazz187/microwin/internal/profile"
	profilerepo "github.com/kazz187/microwin/internal/profile/repositoryimpl"
	"github.com/kazz187/microwin/internal/pushnotification"
	pushsubrepo "github.com/kazz187/microwin/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/microwin/internal/redact"
	"github.com/kazz187/microwin/internal/taskstore"
	"github.com/kazz187/microwin/internal/taskstore/remote"
	taskstorerepo "github.com/kazz187/microwin/internal/taskstore/repositoryimpl"
	"github.com/kazz187/microwin/pkg/clog"
	"github.com/kazz187/microwin/pkg/panicerr"
	"github.com/kazz187/microwin/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	setupLogger(env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, env); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

// backend is the storage selected by STORAGE_TYPE together with the task
// store built on it.
type backend struct {
	storage   storage.Storage
	tasks     taskstore.Store
	changes   taskstore.Subscriber
	yamlTasks *taskstorerepo.YAMLRepository
	remote    *remote.Store
}

func newBackend(ctx context.Context, env *config.Env) (*backend, error) {
	var (
		store storage.Storage
		err   error
	)
	switch env.StorageEnv.Type {
	case config.StorageMemory:
		store = storage.NewMemoryStorage()
	case config.StorageS3:
		var opts []storage.S3Option
		if env.S3Endpoint != "" {
			opts = append(opts, storage.WithEndpoint(env.S3Endpoint))
		}
		store, err = storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region, opts...)
	default:
		store, err = storage.NewLocalStorage(env.BaseDir)
	}
	if err != nil {
		return nil, err
	}

	b := &backend{storage: store, yamlTasks: taskstorerepo.NewYAMLRepository(store)}
	b.tasks, b.changes = b.yamlTasks, b.yamlTasks
	if env.StorageEnv.Type == config.StorageS3 {
		b.remote = remote.New(b.yamlTasks, remote.WithPollInterval(env.RemotePollInterval))
		b.tasks, b.changes = b.remote, b.remote
	}
	return b, nil
}

func run(ctx context.Context, env *config.Env) error {
	b, err := newBackend(ctx, env)
	if err != nil {
		return err
	}
	slog.Info("storage ready", "type", env.StorageEnv.Type)

	bus := eventbus.New()
	profileRepo := profilerepo.NewYAMLRepository(b.storage)
	pushSubRepo := pushsubrepo.NewYAMLRepository(b.storage)

	orchOpts := []orchestrator.Option{
		orchestrator.WithProfiles(profileRepo),
		orchestrator.WithSaveRetry(env.SaveRetries, env.SaveRetryBackoff),
	}
	if env.RedactPII {
		orchOpts = append(orchOpts, orchestrator.WithRedactor(redact.New()))
	}
	decomposer := decompose.NewClient(decompose.NewClaudeGenerator(env.ClaudeWorkDir, env.ClaudeMaxTurns))
	orch := orchestrator.New(bus, decomposer, b.tasks, orchOpts...)

	vapidEnv := &env.VAPIDEnv
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(
		env,
		orch,
		orchestrator.NewServer(orch, env.DecomposeEnv.Timeout),
		profile.NewServer(profileRepo),
		event.NewServer(bus),
		pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender),
	)

	if b.remote != nil {
		b.remote.Start(ctx)
		// runs after g.Wait, so the shutdown Sync below is flushed too
		defer b.remote.Close()
	}
	if _, err := orch.Load(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return panicerr.SafeContext(panicerr.Loop(func(ctx context.Context) { orch.Watch(ctx, b.changes) }))(gctx)
	})
	g.Go(func() error {
		return panicerr.SafeContext(panicerr.Loop(pushDispatcher.Start))(gctx)
	})
	if w, ok := b.storage.(storage.Watcher); ok && env.StorageEnv.Type == config.StorageLocal && env.StorageEnv.Watch {
		g.Go(func() error {
			return panicerr.SafeContext(func(ctx context.Context) error { return b.yamlTasks.Watch(ctx, w) })(gctx)
		})
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		// flush an unsaved task before exit
		if orch.Dirty() {
			if err := orch.Sync(shutdownCtx); err != nil {
				slog.Error("failed to save current task on shutdown", "error", err)
			}
		}
		return nil
	})
	return g.Wait()
}
