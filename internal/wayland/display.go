// Package wayland is a small Wayland client that speaks just enough of the
// core protocol and wlr-layer-shell to put shared-memory buffers on the
// background layer of every output.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ErrProtocol wraps wl_display.error events; the connection is unusable afterwards
var ErrProtocol = errors.New("wayland protocol error")

// handler receives the events of one object
type handler func(opcode uint16, ev *event) error

// Display is the connection to the compositor. It is not safe for
// concurrent use except for Interrupt.
type Display struct {
	conn     *net.UnixConn
	nextID   uint32
	handlers map[uint32]handler
	header   [headerSize]byte
	logger   *zap.Logger
}

// Connect dials the compositor socket at path
func Connect(path string, logger *zap.Logger) (*Display, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to compositor: %w", err)
	}
	return newDisplay(conn, logger), nil
}

func newDisplay(conn *net.UnixConn, logger *zap.Logger) *Display {
	return &Display{
		conn:     conn,
		nextID:   displayID + 1,
		handlers: make(map[uint32]handler),
		logger:   logger.Named("wayland"),
	}
}

// Close closes the connection
func (d *Display) Close() error {
	return d.conn.Close()
}

// Interrupt makes a blocked Dispatch return. It may be called from any goroutine.
func (d *Display) Interrupt() {
	_ = d.conn.SetReadDeadline(time.Now())
}

// newObject allocates a client object id and routes its events to h.
// A nil handler drops the object's events.
func (d *Display) newObject(h handler) uint32 {
	id := d.nextID
	d.nextID++
	if h != nil {
		d.handlers[id] = h
	}
	return id
}

// forget stops routing events to id
func (d *Display) forget(id uint32) {
	delete(d.handlers, id)
}

// send writes one request, passing its file descriptors as SCM_RIGHTS
func (d *Display) send(r *request) error {
	data, err := r.bytes()
	if err != nil {
		return err
	}
	var oob []byte
	if len(r.fds) > 0 {
		oob = unix.UnixRights(r.fds...)
	}
	n, _, err := d.conn.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	return nil
}

// Dispatch reads one event and hands it to its object's handler
func (d *Display) Dispatch() error {
	if _, err := io.ReadFull(d.conn, d.header[:]); err != nil {
		return fmt.Errorf("failed to read event header: %w", err)
	}

	object := binary.LittleEndian.Uint32(d.header[0:4])
	size, opcode := header(binary.LittleEndian.Uint32(d.header[4:8]))
	if size < headerSize {
		return fmt.Errorf("invalid event size %d", size)
	}

	body := make([]byte, size-headerSize)
	if _, err := io.ReadFull(d.conn, body); err != nil {
		return fmt.Errorf("failed to read event body: %w", err)
	}

	if object == displayID {
		return d.handleDisplayEvent(opcode, newEvent(body))
	}

	h, ok := d.handlers[object]
	if !ok {
		d.logger.Debug("Dropping event for unknown object",
			zap.Uint32("object", object),
			zap.Uint16("opcode", opcode))
		return nil
	}
	return h(opcode, newEvent(body))
}

func (d *Display) handleDisplayEvent(opcode uint16, ev *event) error {
	switch opcode {
	case displayEventError:
		object := ev.Uint32()
		code := ev.Uint32()
		message := ev.String()
		return fmt.Errorf("%w: object %d, code %d: %s", ErrProtocol, object, code, message)

	case displayEventDeleteID:
		id := ev.Uint32()
		if ev.Err() == nil {
			d.forget(id)
		}
	}
	return ev.Err()
}

// Roundtrip blocks until the compositor has processed every request sent so far
func (d *Display) Roundtrip() error {
	done := false
	callback := d.newObject(func(opcode uint16, _ *event) error {
		if opcode == callbackEventDone {
			done = true
		}
		return nil
	})
	defer d.forget(callback)

	if err := d.send(newRequest(displayID, displaySync).Uint32(callback)); err != nil {
		return err
	}
	for !done {
		if err := d.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}
