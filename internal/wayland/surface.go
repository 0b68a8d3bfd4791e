package wayland

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/koios/paper/internal/canvas"
	"github.com/koios/paper/internal/session"
	"github.com/koios/paper/pkg/models"
)

// SurfaceOptions describe how a layer surface is placed
type SurfaceOptions struct {
	Namespace     string
	ExclusiveZone int32
}

// LayerSurface is a wl_surface with a background-layer role on one output
type LayerSurface struct {
	display *Display
	pool    *ShmPool
	surface uint32
	layer   uint32
	width   int
	height  int
	onEvent func(session.Signal) error
	logger  *zap.Logger
}

// NewLayerSurface creates a full-output background surface on out and sends
// the initial commit. Configure and closed events are delivered to onEvent.
func (c *Client) NewLayerSurface(out models.OutputDescriptor, pool *ShmPool, opts SurfaceOptions, onEvent func(session.Signal) error) (*LayerSurface, error) {
	output, ok := c.outputObject(out)
	if !ok {
		return nil, fmt.Errorf("output %s is gone", out.Label())
	}

	s := &LayerSurface{
		display: c.display,
		pool:    pool,
		onEvent: onEvent,
		logger:  c.logger.Named("surface").With(zap.String("output", out.Label())),
	}

	s.surface = c.display.newObject(nil)
	if err := c.display.send(newRequest(c.compositor, compositorCreateSurface).Uint32(s.surface)); err != nil {
		return nil, err
	}

	s.layer = c.display.newObject(s.handleEvent)
	requests := []*request{
		newRequest(c.layerShell, layerShellGetLayerSurface).
			Uint32(s.layer).
			Uint32(s.surface).
			Uint32(output).
			Uint32(layerBackground).
			String(opts.Namespace),
		newRequest(s.layer, layerSurfaceSetSize).Uint32(0).Uint32(0),
		newRequest(s.layer, layerSurfaceSetAnchor).Uint32(anchorAll),
		newRequest(s.layer, layerSurfaceSetExclusiveZone).Int32(opts.ExclusiveZone),
		newRequest(s.surface, surfaceSetBufferScale).Int32(int32(max(out.Scale, 1))),
		newRequest(s.surface, surfaceCommit),
	}
	for _, req := range requests {
		if err := c.display.send(req); err != nil {
			return nil, fmt.Errorf("set up layer surface: %w", err)
		}
	}

	return s, nil
}

func (s *LayerSurface) handleEvent(opcode uint16, ev *event) error {
	switch opcode {
	case layerSurfaceEventConfigure:
		sig := session.Configure{
			Serial: ev.Uint32(),
			Width:  int(ev.Uint32()),
			Height: int(ev.Uint32()),
		}
		if err := ev.Err(); err != nil {
			return fmt.Errorf("layer_surface.configure: %w", err)
		}
		s.logger.Debug("Configure",
			zap.Uint32("serial", sig.Serial),
			zap.Int("width", sig.Width),
			zap.Int("height", sig.Height))
		return s.onEvent(sig)

	case layerSurfaceEventClosed:
		return s.onEvent(session.Closed{})
	}
	return nil
}

// Attach wraps c in a new wl_buffer and attaches it
func (s *LayerSurface) Attach(c *canvas.Canvas) error {
	buffer, err := s.pool.createBuffer(c)
	if err != nil {
		return err
	}
	s.width, s.height = c.Width, c.Height
	return s.display.send(newRequest(s.surface, surfaceAttach).Uint32(buffer).Int32(0).Int32(0))
}

// DamageAll damages the whole attached buffer
func (s *LayerSurface) DamageAll() error {
	return s.display.send(newRequest(s.surface, surfaceDamageBuffer).
		Int32(0).
		Int32(0).
		Int32(int32(s.width)).
		Int32(int32(s.height)))
}

func (s *LayerSurface) AckConfigure(serial uint32) error {
	return s.display.send(newRequest(s.layer, layerSurfaceAckConfigure).Uint32(serial))
}

func (s *LayerSurface) Commit() error {
	return s.display.send(newRequest(s.surface, surfaceCommit))
}

// Destroy destroys the layer surface and then the wl_surface
func (s *LayerSurface) Destroy() error {
	s.display.forget(s.layer)
	if err := s.display.send(newRequest(s.layer, layerSurfaceDestroy)); err != nil {
		return err
	}
	return s.display.send(newRequest(s.surface, surfaceDestroy))
}

// NewOutputSurface creates the pool and layer surface backing one output's session
func (c *Client) NewOutputSurface(out models.OutputDescriptor, opts SurfaceOptions, onEvent func(session.Signal) error) (session.Pool, session.Surface, error) {
	pool := c.NewShmPool()
	surface, err := c.NewLayerSurface(out, pool, opts, onEvent)
	if err != nil {
		return nil, nil, err
	}
	return pool, surface, nil
}
