package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/vidvote/internal/api"
	"github.com/and161185/vidvote/internal/config"
	"github.com/and161185/vidvote/internal/limiter"
	"github.com/and161185/vidvote/internal/repository"
	"github.com/and161185/vidvote/internal/repository/file"
	"github.com/and161185/vidvote/internal/repository/memory"
	"github.com/and161185/vidvote/internal/repository/sqlite"
	"github.com/and161185/vidvote/internal/service"
	"github.com/and161185/vidvote/internal/transport"
)

// app is the wired client for one CLI invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	out      io.Writer
	api      *api.Client
	auth     *service.AuthServiceImpl
	videos   *service.VideoServiceImpl
	rankings *service.RankingServiceImpl
	close    func() error
}

func openStore(ctx context.Context, cfg *config.Config) (repository.SessionRepository, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nop, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, filepath.Join(cfg.StorePath, sqlite.FileName))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreFile:
		return file.New(cfg.StorePath), nop, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// newApp wires services from cfg and restores the persisted session.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (*app, error) {
	mode, err := service.ParseRankingMode(cfg.RankingMode)
	if err != nil {
		return nil, err
	}
	repo, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	tc := transport.New(cfg.APIBaseURL,
		transport.WithLogger(log),
		transport.WithLimiter(limiter.New(cfg.RateLimit, cfg.RateBurst)),
	)
	c := api.New(tc)
	auth := service.NewAuthService(c, repo, log)
	if err := auth.Restore(ctx); err != nil {
		// logout still clears an unreadable store
		log.Warn("session not restored", zap.Error(err))
	}

	return &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		api:      c,
		auth:     auth,
		videos:   service.NewVideoService(c, auth, log, cfg.RefreshConcurrency),
		rankings: service.NewRankingService(c, auth, log, mode, cfg.PageSize),
		close:    closeRepo,
	}, nil
}

func (a *app) Close() error {
	_ = a.log.Sync()
	return a.close()
}
