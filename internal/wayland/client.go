package wayland

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/koios/paper/internal/config"
	"github.com/koios/paper/internal/registry"
	"github.com/koios/paper/pkg/models"
)

// ErrMissingGlobal is returned when the compositor lacks a required interface
var ErrMissingGlobal = errors.New("compositor does not support required interface")

// maxOutputRoundtrips bounds the wait for outputs that never finish describing themselves
const maxOutputRoundtrips = 3

// Global is one entry of the compositor's registry
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type boundOutput struct {
	id      uint32
	version uint32
}

// release sends wl_output.release where the bound version has it
func (o boundOutput) release(d *Display) {
	if o.version >= 3 {
		_ = d.send(newRequest(o.id, outputRelease))
	}
	d.forget(o.id)
}

// Client holds the bound globals and the outputs discovered at startup
type Client struct {
	display    *Display
	registryID uint32

	globals    map[uint32]Global
	compositor uint32
	shm        uint32
	layerShell uint32

	// registry name -> bound wl_output
	outputObjects map[uint32]boundOutput
	outputs       *registry.Registry

	logger *zap.Logger
}

// Dial connects to the compositor, binds the required globals and collects
// the initial description of every output.
func Dial(cfg config.WaylandConfig, logger *zap.Logger) (*Client, error) {
	path, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	display, err := Connect(path, logger)
	if err != nil {
		return nil, err
	}

	c, err := newClient(display, logger)
	if err != nil {
		display.Close()
		return nil, err
	}
	return c, nil
}

func newClient(display *Display, logger *zap.Logger) (*Client, error) {
	c := &Client{
		display:       display,
		globals:       make(map[uint32]Global),
		outputObjects: make(map[uint32]boundOutput),
		outputs:       registry.New(logger.Named("registry")),
		logger:        logger.Named("wayland"),
	}

	c.registryID = display.newObject(c.handleRegistryEvent)
	if err := display.send(newRequest(displayID, displayGetRegistry).Uint32(c.registryID)); err != nil {
		return nil, err
	}
	if err := display.Roundtrip(); err != nil {
		return nil, fmt.Errorf("failed to list globals: %w", err)
	}

	if err := c.bindRequired(); err != nil {
		return nil, err
	}

	// the first roundtrip delivered the output globals, the next ones their events
	for i := 0; i < maxOutputRoundtrips; i++ {
		if err := display.Roundtrip(); err != nil {
			return nil, fmt.Errorf("failed to read outputs: %w", err)
		}
		if c.outputs.Pending() == 0 {
			break
		}
	}

	return c, nil
}

func (c *Client) bindRequired() error {
	var missing []string
	find := func(iface string) (Global, bool) {
		for _, g := range c.globals {
			if g.Interface == iface {
				return g, true
			}
		}
		missing = append(missing, iface)
		return Global{}, false
	}

	compositor, okCompositor := find(ifaceCompositor)
	shm, okShm := find(ifaceShm)
	layerShell, okLayerShell := find(ifaceLayerShell)
	if !okCompositor || !okShm || !okLayerShell {
		return fmt.Errorf("%w: %v", ErrMissingGlobal, missing)
	}

	var err error
	if c.compositor, err = c.bind(compositor, versionCompositor, nil); err != nil {
		return err
	}
	if c.shm, err = c.bind(shm, versionShm, nil); err != nil {
		return err
	}
	if c.layerShell, err = c.bind(layerShell, versionLayerShell, nil); err != nil {
		return err
	}

	c.logger.Debug("Bound globals",
		zap.Uint32("compositor", compositor.Version),
		zap.Uint32("shm", shm.Version),
		zap.Uint32("layer_shell", layerShell.Version))
	return nil
}

// bind creates a client object for g at min(version, advertised)
func (c *Client) bind(g Global, version uint32, h handler) (uint32, error) {
	version = min(version, g.Version)
	id := c.display.newObject(h)
	req := newRequest(c.registryID, registryBind).
		Uint32(g.Name).
		String(g.Interface).
		Uint32(version).
		Uint32(id)
	if err := c.display.send(req); err != nil {
		return 0, fmt.Errorf("bind %s: %w", g.Interface, err)
	}
	return id, nil
}

func (c *Client) handleRegistryEvent(opcode uint16, ev *event) error {
	switch opcode {
	case registryEventGlobal:
		g := Global{Name: ev.Uint32(), Interface: ev.String(), Version: ev.Uint32()}
		if err := ev.Err(); err != nil {
			return fmt.Errorf("wl_registry.global: %w", err)
		}
		c.globals[g.Name] = g
		if g.Interface == ifaceOutput {
			return c.bindOutput(g)
		}

	case registryEventGlobalRemove:
		name := ev.Uint32()
		if err := ev.Err(); err != nil {
			return fmt.Errorf("wl_registry.global_remove: %w", err)
		}
		delete(c.globals, name)
		if out, ok := c.outputObjects[name]; ok {
			c.logger.Info("Output removed", zap.Uint32("name", name))
			delete(c.outputObjects, name)
			c.outputs.Remove(name)
			out.release(c.display)
		}
	}
	return nil
}

func (c *Client) bindOutput(g Global) error {
	id, err := c.bind(g, versionOutput, func(opcode uint16, ev *event) error {
		return c.handleOutputEvent(g.Name, opcode, ev)
	})
	if err != nil {
		return err
	}
	version := min(versionOutput, g.Version)
	c.outputObjects[g.Name] = boundOutput{id: id, version: version}
	// "done" exists since wl_output version 2
	c.outputs.Advertise(g.Name, version >= 2)
	return nil
}

func (c *Client) handleOutputEvent(name uint32, opcode uint16, ev *event) error {
	var out registry.Event
	switch opcode {
	case outputEventGeometry:
		ev.Int32() // x
		ev.Int32() // y
		ev.Int32() // physical width
		ev.Int32() // physical height
		ev.Int32() // subpixel
		out = registry.Geometry{Make: ev.String(), Model: ev.String()}
	case outputEventMode:
		flags := ev.Uint32()
		out = registry.Mode{
			Width:   int(ev.Int32()),
			Height:  int(ev.Int32()),
			Current: flags&outputModeCurrent != 0,
		}
	case outputEventDone:
		out = registry.Done{}
	case outputEventScale:
		out = registry.Scale{Factor: int(ev.Int32())}
	case outputEventName:
		out = registry.Name{Name: ev.String()}
	case outputEventDescription:
		out = registry.Description{Description: ev.String()}
	default:
		return nil
	}
	if err := ev.Err(); err != nil {
		return fmt.Errorf("wl_output event %d: %w", opcode, err)
	}
	c.outputs.Observe(name, out)
	return nil
}

// Outputs returns the outputs that finished describing themselves, in discovery order
func (c *Client) Outputs() []models.OutputDescriptor {
	return c.outputs.Configured()
}

// outputObject returns the wl_output object bound for a descriptor
func (c *Client) outputObject(out models.OutputDescriptor) (uint32, bool) {
	bound, ok := c.outputObjects[out.ID]
	return bound.id, ok
}

// Dispatch reads and handles one event
func (c *Client) Dispatch() error {
	return c.display.Dispatch()
}

// Interrupt unblocks a pending Dispatch
func (c *Client) Interrupt() {
	c.display.Interrupt()
}

// Close releases the outputs and closes the connection
func (c *Client) Close() error {
	for _, out := range c.outputObjects {
		out.release(c.display)
	}
	return c.display.Close()
}
