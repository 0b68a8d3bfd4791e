package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/koios/paper/internal/canvas"
	"github.com/koios/paper/internal/config"
	"github.com/koios/paper/internal/paper"
	"github.com/koios/paper/internal/session"
	"github.com/koios/paper/internal/wayland"
	"github.com/koios/paper/pkg/models"
)

var errInterrupted = errors.New("interrupted")

type memPool struct {
	buf       []byte
	resizeErr error
	closed    bool
}

func (p *memPool) Resize(size int) error {
	if p.resizeErr != nil {
		return p.resizeErr
	}
	if size > len(p.buf) {
		p.buf = make([]byte, size)
	}
	return nil
}

func (p *memPool) Canvas(width, height int) (*canvas.Canvas, error) {
	return canvas.Wrap(p.buf, width, height)
}

func (p *memPool) Close() error {
	p.closed = true
	return nil
}

type recordingSurface struct {
	attached  *canvas.Canvas
	acks      []uint32
	destroyed bool
}

func (s *recordingSurface) Attach(c *canvas.Canvas) error {
	s.attached = c
	return nil
}

func (s *recordingSurface) DamageAll() error { return nil }

func (s *recordingSurface) AckConfigure(serial uint32) error {
	s.acks = append(s.acks, serial)
	return nil
}

func (s *recordingSurface) Commit() error { return nil }

func (s *recordingSurface) Destroy() error {
	s.destroyed = true
	return nil
}

type scripted struct {
	output uint32
	signal session.Signal
}

// fakeBackend replays scripted events, then blocks until interrupted
type fakeBackend struct {
	outputs     []models.OutputDescriptor
	script      []scripted
	handlers    map[uint32]func(session.Signal) error
	pools       map[uint32]*memPool
	surfaces    map[uint32]*recordingSurface
	opts        map[uint32]wayland.SurfaceOptions
	failPool    uint32
	interrupted chan struct{}
	closed      bool
}

func newFakeBackend(outputs ...models.OutputDescriptor) *fakeBackend {
	return &fakeBackend{
		outputs:     outputs,
		handlers:    make(map[uint32]func(session.Signal) error),
		pools:       make(map[uint32]*memPool),
		surfaces:    make(map[uint32]*recordingSurface),
		opts:        make(map[uint32]wayland.SurfaceOptions),
		interrupted: make(chan struct{}),
	}
}

func (b *fakeBackend) Outputs() []models.OutputDescriptor { return b.outputs }

func (b *fakeBackend) NewOutputSurface(out models.OutputDescriptor, opts wayland.SurfaceOptions, onEvent func(session.Signal) error) (session.Pool, session.Surface, error) {
	pool := &memPool{}
	if out.ID == b.failPool {
		pool.resizeErr = errors.New("cannot allocate memory")
	}
	surface := &recordingSurface{}
	b.handlers[out.ID] = onEvent
	b.pools[out.ID] = pool
	b.surfaces[out.ID] = surface
	b.opts[out.ID] = opts
	return pool, surface, nil
}

func (b *fakeBackend) Dispatch() error {
	if len(b.script) == 0 {
		<-b.interrupted
		return errInterrupted
	}
	next := b.script[0]
	b.script = b.script[1:]
	return b.handlers[next.output](next.signal)
}

func (b *fakeBackend) Interrupt() { close(b.interrupted) }

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func output(id uint32, name string) models.OutputDescriptor {
	return models.OutputDescriptor{ID: id, Name: name, Scale: 1, Width: 64, Height: 32, Configured: true}
}

func testConfig() *config.Config {
	return &config.Config{
		Render:  config.RenderConfig{Debounce: 300 * time.Millisecond, Scaler: paper.ScalerNearest},
		Wayland: config.WaylandConfig{Namespace: "wallpaper"},
	}
}

func newTestApp(t *testing.T, wall *models.WallpaperConfig, backend *fakeBackend) *App {
	t.Helper()
	a, err := New(zap.NewNop(), testConfig(), wall)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.dial = func(config.WaylandConfig, *zap.Logger) (Backend, error) {
		if backend == nil {
			t.Fatal("dialled the compositor")
		}
		return backend, nil
	}
	return a
}

func TestRun_RendersEveryOutputUntilClosed(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"), output(2, "HDMI-A-1"))
	backend.script = []scripted{
		{1, session.Configure{Serial: 10, Width: 64, Height: 32}},
		{2, session.Configure{Serial: 20, Width: 32, Height: 16}},
		{1, session.Closed{}},
		{2, session.Closed{}},
	}

	a := newTestApp(t, &models.WallpaperConfig{Style: models.SolidColor(0xFF112233)}, backend)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for id, surface := range backend.surfaces {
		if surface.attached == nil || surface.attached.At(0, 0) != 0xFF112233 {
			t.Errorf("output %d not painted", id)
		}
		if len(surface.acks) != 1 || !surface.destroyed || !backend.pools[id].closed {
			t.Errorf("output %d: acks=%v destroyed=%v", id, surface.acks, surface.destroyed)
		}
		if backend.opts[id].ExclusiveZone != -1 || backend.opts[id].Namespace != "wallpaper" {
			t.Errorf("output %d: options %+v", id, backend.opts[id])
		}
	}
	if !backend.closed {
		t.Error("backend not closed")
	}
}

func TestRun_OutputFilter(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"), output(2, "HDMI-A-1"))
	backend.script = []scripted{{2, session.Closed{}}}

	wall := &models.WallpaperConfig{Style: models.SolidColor(0xFF000000), OutputFilter: "HDMI"}
	if err := newTestApp(t, wall, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := backend.handlers[1]; ok {
		t.Error("filtered output got a session")
	}
	if _, ok := backend.handlers[2]; !ok {
		t.Error("matching output has no session")
	}
}

func TestRun_NoMatchingOutput(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"))
	wall := &models.WallpaperConfig{Style: models.SolidColor(0xFF000000), OutputFilter: "eDP"}

	if err := newTestApp(t, wall, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(backend.handlers) != 0 || !backend.closed {
		t.Errorf("handlers=%d closed=%v", len(backend.handlers), backend.closed)
	}
}

func TestRun_NothingToRender(t *testing.T) {
	a := newTestApp(t, &models.WallpaperConfig{}, nil)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_BorderUsesExclusiveZone(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"))
	backend.script = []scripted{
		{1, session.Configure{Serial: 1, Width: 40, Height: 40}},
		{1, session.Closed{}},
	}

	wall := &models.WallpaperConfig{Border: &models.BorderSpec{Gap: 10, Color: 0xFF000000}}
	if err := newTestApp(t, wall, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if backend.opts[1].ExclusiveZone != 1 {
		t.Errorf("exclusive zone = %d, want 1", backend.opts[1].ExclusiveZone)
	}
	c := backend.surfaces[1].attached
	if c.At(0, 0) != 0xFF000000 || c.At(20, 20) != 0 {
		t.Errorf("border frame wrong: edge=%#x centre=%#x", c.At(0, 0), c.At(20, 20))
	}
}

func TestRun_FatalRenderError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wallpaper.png")
	os.WriteFile(file, []byte("x"), 0644)

	backend := newFakeBackend(output(1, "DP-1"))
	backend.script = []scripted{{1, session.Configure{Serial: 1, Width: 8, Height: 8}}}

	wall := &models.WallpaperConfig{Style: models.RandomFromDirectory(file)}
	err := newTestApp(t, wall, backend).Run(context.Background())
	if !errors.Is(err, paper.ErrNotDirectory) {
		t.Fatalf("err = %v, want ErrNotDirectory", err)
	}
	if !backend.surfaces[1].destroyed {
		t.Error("sessions not released after a fatal error")
	}
}

func TestRun_PoolFailureOnlyClosesThatOutput(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"), output(2, "HDMI-A-1"))
	backend.failPool = 1
	backend.script = []scripted{
		{1, session.Configure{Serial: 1, Width: 8, Height: 8}},
		{2, session.Configure{Serial: 2, Width: 8, Height: 8}},
		{2, session.Closed{}},
	}

	wall := &models.WallpaperConfig{Style: models.SolidColor(0xFFFFFFFF)}
	if err := newTestApp(t, wall, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !backend.surfaces[1].destroyed || backend.surfaces[1].attached != nil {
		t.Error("failed output should be released without a frame")
	}
	if backend.surfaces[2].attached == nil {
		t.Error("healthy output was not painted")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	backend := newFakeBackend(output(1, "DP-1"))
	backend.script = []scripted{{1, session.Configure{Serial: 1, Width: 8, Height: 8}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wall := &models.WallpaperConfig{Style: models.SolidColor(0xFFFFFFFF)}
	if err := newTestApp(t, wall, backend).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !backend.surfaces[1].destroyed || !backend.pools[1].closed {
		t.Error("session not released on shutdown")
	}
}

func TestNew_InvalidScaler(t *testing.T) {
	cfg := testConfig()
	cfg.Render.Scaler = "lanczos"
	if _, err := New(zap.NewNop(), cfg, &models.WallpaperConfig{}); err == nil {
		t.Error("expected error for unknown scaler")
	}
}

func TestNew_FlushOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Addr: "localhost:6379", DB: 1, TTL: time.Minute, Prefix: "paper-app-test"}

	seed := paper.NewRedisFrameCache(&cfg.Cache)
	defer seed.Close()

	ctx := context.Background()
	if err := seed.Ping(ctx); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	if err := seed.Set(ctx, "stale", []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cfg.Cache.FlushOnStart = true
	a, err := New(zap.NewNop(), cfg, &models.WallpaperConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, found, err := seed.Get(ctx, "stale"); err != nil || found {
		t.Errorf("stale frame survived the flush: found=%v err=%v", found, err)
	}
}

func TestNew_FlushWithoutCacheWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig()
	cfg.Cache.FlushOnStart = true

	if _, err := New(zap.New(core), cfg, &models.WallpaperConfig{}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if logs.FilterMessage("Cache flush requested but no frame cache is available").Len() != 1 {
		t.Errorf("expected a warning, got %v", logs.All())
	}
}

func TestNew_UnreachableCacheIsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Addr: "127.0.0.1:1", TTL: time.Hour, Prefix: "paper-test"}

	a, err := New(zap.NewNop(), cfg, &models.WallpaperConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.cache != nil || a.kit.Cache != nil {
		t.Error("cache should be disabled when Redis does not answer")
	}
}
