// Package app wires the compositor connection, the output sessions and the
// wallpaper renderer together and runs the event loop.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koios/paper/internal/config"
	"github.com/koios/paper/internal/paper"
	"github.com/koios/paper/internal/session"
	"github.com/koios/paper/internal/wayland"
	"github.com/koios/paper/pkg/models"
)

// Backend is the compositor connection the event loop runs on
type Backend interface {
	Outputs() []models.OutputDescriptor
	NewOutputSurface(out models.OutputDescriptor, opts wayland.SurfaceOptions, onEvent func(session.Signal) error) (session.Pool, session.Surface, error)
	Dispatch() error
	Interrupt()
	Close() error
}

type App struct {
	cfg    *config.Config
	wall   *models.WallpaperConfig
	kit    paper.Toolkit
	cache  *paper.RedisFrameCache
	dial   func(cfg config.WaylandConfig, logger *zap.Logger) (Backend, error)
	clock  func() time.Time
	logger *zap.Logger
}

// New creates the application. wall is never modified; every session gets its own clone.
func New(logger *zap.Logger, cfg *config.Config, wall *models.WallpaperConfig) (*App, error) {
	resizer, err := paper.NewScaleResizer(cfg.Render.Scaler)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:  cfg,
		wall: wall,
		kit: paper.Toolkit{
			Decoder: paper.FileDecoder{},
			Resizer: resizer,
			Logger:  logger.Named("paper"),
		},
		dial:   dialWayland,
		clock:  time.Now,
		logger: logger,
	}

	if cfg.Cache.Enabled() {
		a.cache = connectCache(&cfg.Cache, logger)
		if a.cache != nil {
			a.kit.Cache = a.cache
		}
	} else {
		logger.Debug("Frame cache disabled")
	}

	if cfg.Cache.FlushOnStart {
		a.flushCache()
	}

	return a, nil
}

func dialWayland(cfg config.WaylandConfig, logger *zap.Logger) (Backend, error) {
	c, err := wayland.Dial(cfg, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// connectCache returns nil when Redis does not answer; rendering works without it
func connectCache(cfg *config.CacheConfig, logger *zap.Logger) *paper.RedisFrameCache {
	logger.Info("Initializing frame cache with Redis",
		zap.String("redis_addr", cfg.Addr),
		zap.Int("redis_db", cfg.DB))

	cache := paper.NewRedisFrameCache(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := cache.Ping(ctx); err != nil {
		logger.Warn("Redis unavailable, rendering without frame cache", zap.Error(err))
		cache.Close()
		return nil
	}
	return cache
}

// flushCache drops every cached frame, e.g. after the scaler changed
func (a *App) flushCache() {
	if a.cache == nil {
		a.logger.Warn("Cache flush requested but no frame cache is available")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.cache.Flush(ctx); err != nil {
		a.logger.Warn("Failed to flush frame cache", zap.Error(err))
		return
	}
	a.logger.Info("Frame cache flushed", zap.String("prefix", a.cfg.Cache.Prefix))
}

// Close releases the frame cache
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// Run draws the wallpaper on every selected output and keeps it there until
// ctx is cancelled or every surface has been closed. Only fatal errors are returned.
func (a *App) Run(ctx context.Context) error {
	if !a.wall.Renderable() {
		a.logger.Info("No wallpaper configured, nothing to do")
		return nil
	}

	backend, err := a.dial(a.cfg.Wayland, a.logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessions, err := a.startSessions(ctx, backend)
	if err != nil {
		closeAll(sessions)
		return err
	}
	if len(sessions) == 0 {
		a.logger.Warn("No output matched", zap.String("filter", a.wall.OutputFilter))
		return nil
	}

	stop := context.AfterFunc(ctx, backend.Interrupt)
	defer stop()

	for {
		if allClosed(sessions) {
			a.logger.Info("All outputs closed, exiting")
			return nil
		}

		if err := backend.Dispatch(); err != nil {
			closeAll(sessions)
			if ctx.Err() != nil {
				a.logger.Info("Shutting down")
				return nil
			}
			return err
		}
	}
}

func (a *App) startSessions(ctx context.Context, backend Backend) ([]*session.Session, error) {
	var sessions []*session.Session

	for _, out := range backend.Outputs() {
		if !out.Matches(a.wall.OutputFilter) {
			a.logger.Debug("Skipping output", zap.String("output", out.Label()))
			continue
		}

		wall := a.wall.Clone()
		renderer, err := paper.NewRenderer(wall, a.kit)
		if err != nil {
			return sessions, err
		}

		var s *session.Session
		opts := wayland.SurfaceOptions{
			Namespace:     a.cfg.Wayland.Namespace,
			ExclusiveZone: wall.ExclusiveZone(),
		}
		pool, surface, err := backend.NewOutputSurface(out, opts, func(sig session.Signal) error {
			return s.Handle(ctx, sig)
		})
		if err != nil {
			return sessions, fmt.Errorf("output %s: %w", out.Label(), err)
		}

		s = session.New(out, renderer, pool, surface, session.Options{
			Debounce: a.cfg.Render.Debounce,
			Clock:    a.clock,
		}, a.logger)
		sessions = append(sessions, s)

		a.logger.Info("Output selected",
			zap.String("output", out.Label()),
			zap.String("wallpaper", renderer.String()),
			zap.Int("width", out.Width),
			zap.Int("height", out.Height),
			zap.Int("scale", out.Scale))
	}

	return sessions, nil
}

func allClosed(sessions []*session.Session) bool {
	for _, s := range sessions {
		if !s.Closed() {
			return false
		}
	}
	return true
}

func closeAll(sessions []*session.Session) {
	for _, s := range sessions {
		s.Close()
	}
}
