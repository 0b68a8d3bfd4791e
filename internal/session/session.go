package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/koios/paper/internal/canvas"
	"github.com/koios/paper/internal/paper"
	"github.com/koios/paper/pkg/models"
)

// DefaultDebounce is the minimum time between two redraws of one output
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrPoolResize closes a session whose pool cannot grow to the configured size
	ErrPoolResize = errors.New("shm pool resize failed")

	// ErrSurfaceClosed closes a session whose surface the compositor withdrew
	ErrSurfaceClosed = errors.New("surface closed by compositor")
)

// Pool is the shared memory backing a session's buffers
type Pool interface {
	Resize(size int) error
	Canvas(width, height int) (*canvas.Canvas, error)
	Close() error
}

// Surface is the layer surface a session draws on
type Surface interface {
	Attach(c *canvas.Canvas) error
	DamageAll() error
	AckConfigure(serial uint32) error
	Commit() error
	Destroy() error
}

// Renderer fills a canvas with the configured wallpaper
type Renderer interface {
	Render(ctx context.Context, c *canvas.Canvas) error
}

// Options tune a session
type Options struct {
	Debounce time.Duration
	Clock    func() time.Time
}

// Session executes the effects of Transition for one output
type Session struct {
	output   models.OutputDescriptor
	renderer Renderer
	pool     Pool
	surface  Surface
	debounce time.Duration
	now      func() time.Time
	state    State
	err      error
	logger   *zap.Logger
}

// New creates a session for output. The session owns pool and surface.
func New(output models.OutputDescriptor, renderer Renderer, pool Pool, surface Surface, opts Options, logger *zap.Logger) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if output.Scale < 1 {
		output.Scale = 1
	}
	return &Session{
		output:   output,
		renderer: renderer,
		pool:     pool,
		surface:  surface,
		debounce: opts.Debounce,
		now:      opts.Clock,
		logger:   logger.Named("session").With(zap.String("output", output.Label())),
	}
}

// Output returns the descriptor the session was created for
func (s *Session) Output() models.OutputDescriptor {
	return s.output
}

// State returns the current session state
func (s *Session) State() State {
	return s.state
}

// Closed reports whether the session has released its resources
func (s *Session) Closed() bool {
	return s.state.Phase == PhaseClosed
}

// Err returns why the session closed, if it did
func (s *Session) Err() error {
	return s.err
}

// Handle feeds sig through Transition and runs the resulting effects.
// Only fatal errors are returned; the caller should stop dispatching.
func (s *Session) Handle(ctx context.Context, sig Signal) error {
	prev := s.state.Phase
	next, effects := Transition(s.state, sig, s.now(), s.debounce)
	s.state = next

	if _, ok := sig.(Closed); ok && prev != PhaseClosed {
		s.err = ErrSurfaceClosed
	}
	if prev != next.Phase {
		s.logger.Debug("Session phase changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next.Phase))
	}

	for _, eff := range effects {
		switch eff := eff.(type) {
		case Redraw:
			outcome, err := s.redraw(ctx, eff)
			if err != nil {
				return err
			}
			if err := s.Handle(ctx, outcome); err != nil {
				return err
			}
			if s.Closed() {
				return nil
			}

		case Ack:
			if err := s.surface.AckConfigure(eff.Serial); err != nil {
				return fmt.Errorf("ack configure %d: %w", eff.Serial, err)
			}

		case Commit:
			if err := s.surface.Commit(); err != nil {
				return fmt.Errorf("commit surface: %w", err)
			}

		case Release:
			s.release()
		}
	}

	return nil
}

// redraw renders one frame and reports the signal describing the outcome
func (s *Session) redraw(ctx context.Context, r Redraw) (Signal, error) {
	width := r.Width * s.output.Scale
	height := r.Height * s.output.Scale
	size := canvas.Size(width, height)

	if err := s.pool.Resize(size); err != nil {
		s.err = fmt.Errorf("%w: %s: %v", ErrPoolResize, humanize.Bytes(uint64(size)), err)
		s.logger.Error("Failed to resize pool", zap.Error(s.err))
		return PoolFailed{}, nil
	}

	c, err := s.pool.Canvas(width, height)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrPoolResize, err)
		s.logger.Error("Failed to map canvas", zap.Error(s.err))
		return PoolFailed{}, nil
	}

	start := s.now()
	if err := s.renderer.Render(ctx, c); err != nil {
		if paper.IsFatal(err) {
			return nil, fmt.Errorf("output %s: %w", s.output.Label(), err)
		}
		s.logger.Warn("Skipping frame", zap.Error(err))
		return Skipped{}, nil
	}

	if err := s.surface.Attach(c); err != nil {
		return nil, fmt.Errorf("attach buffer: %w", err)
	}
	if err := s.surface.DamageAll(); err != nil {
		return nil, fmt.Errorf("damage surface: %w", err)
	}

	now := s.now()
	s.logger.Info("Frame rendered",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Duration("duration", now.Sub(start)))

	return Presented{At: now}, nil
}

// Close releases the session on shutdown
func (s *Session) Close() {
	if s.Closed() {
		return
	}
	s.state.Phase = PhaseClosed
	s.release()
}

func (s *Session) release() {
	if err := s.surface.Destroy(); err != nil {
		s.logger.Warn("Failed to destroy surface", zap.Error(err))
	}
	if err := s.pool.Close(); err != nil {
		s.logger.Warn("Failed to close pool", zap.Error(err))
	}
	s.logger.Info("Session closed", zap.NamedError("reason", s.err))
}
