package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/sadopc/studytrack/internal/account"
	"github.com/sadopc/studytrack/internal/cloudsync"
	"github.com/sadopc/studytrack/internal/config"
	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/remote"
	"github.com/sadopc/studytrack/internal/store"
)

// runtime is one process's view of the data: the local replica, the
// configured remote, the persisted sign-in and the coordinator joining them.
type runtime struct {
	cfg *config.Config
	log *slog.Logger

	store    *store.Store
	remote   remote.Replica
	provider *identity.FileProvider
	coord    *cloudsync.Coordinator
	account  *account.Service

	closers []io.Closer
	cancel  context.CancelFunc
}

func openRuntime(cfg *config.Config, log *slog.Logger) (rt *runtime, err error) {
	rt = &runtime{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.store, err = store.New(cfg.DBPath, store.WithLogger(log), store.WithQuota(cfg.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	rt.closers = append(rt.closers, rt.store)

	rt.provider, err = identity.NewFileProvider(cfg.SessionPath, log)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.provider)

	rt.remote, err = newRemote(cfg.Remote, rt.provider, log)
	if err != nil {
		return nil, err
	}
	if c, ok := rt.remote.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}

	rt.coord, err = cloudsync.New(rt.store, rt.remote, rt.provider, cloudsync.Options{
		ReadinessTimeout: cfg.Sync.ReadinessTimeout,
		FetchTimeout:     cfg.Sync.FetchTimeout,
		WriteTimeout:     cfg.Sync.WriteTimeout,
		DrainTimeout:     cfg.Sync.DrainTimeout,
		QueueSize:        cfg.Sync.QueueSize,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}
	// The coordinator drains the mirror, so it closes before the store.
	rt.closers = append(rt.closers, rt.coord)

	rt.account, err = account.New(rt.provider, rt.coord.Storage(), rt.coord.Readiness(), log)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func newRemote(cfg config.Remote, provider *identity.FileProvider, log *slog.Logger) (remote.Replica, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return remote.NewRedis(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Prefix, log)
	case config.BackendHTTP:
		return remote.NewHTTP(cfg.HTTP.BaseURL, provider.Token,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
			remote.WithHTTPLogger(log),
		)
	default:
		return remote.Disabled{}, nil
	}
}

// start follows the session file and starts the coordinator. Sign-ins made
// by other processes sharing the data directory are picked up while running.
func (rt *runtime) start(ctx context.Context) error {
	ctx, rt.cancel = context.WithCancel(ctx)
	if err := rt.provider.Watch(ctx); err != nil {
		rt.log.Warn("watch session file", "path", rt.provider.Path(), "err", err)
	}
	if err := rt.coord.Start(ctx); err != nil {
		return fmt.Errorf("start sync: %w", err)
	}
	return nil
}

// awaitReady blocks until the first merge settled or the readiness timeout
// forced the signal up.
func (rt *runtime) awaitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.Sync.ReadinessTimeout+rt.cfg.Sync.FetchTimeout)
	defer cancel()
	return rt.coord.Readiness().Wait(ctx)
}

func (rt *runtime) flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.Sync.WriteTimeout)
	defer cancel()
	if err := rt.coord.Flush(ctx); err != nil {
		return fmt.Errorf("flush remote writes: %w", err)
	}
	return nil
}

// Close releases everything in reverse order of opening.
func (rt *runtime) Close() error {
	if rt.cancel != nil {
		rt.cancel()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
