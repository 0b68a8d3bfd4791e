package wayland

import (
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/koios/paper/internal/canvas"
)

// ShmPool is a memfd-backed wl_shm_pool. It only ever grows, as the
// protocol forbids shrinking a pool.
//
// A region stays busy from the wl_buffer created over it until the
// compositor releases that buffer; Canvas never hands out a busy region.
type ShmPool struct {
	display *Display
	shm     uint32
	id      uint32
	fd      int
	data    []byte
	busy    map[uint32]span // wl_buffer -> region
	next    span            // region of the last canvas
	logger  *zap.Logger
}

// span is a byte range of the pool
type span struct {
	off  int
	size int
}

func (s span) end() int { return s.off + s.size }

func (s span) overlaps(o span) bool {
	return s.off < o.end() && o.off < s.end()
}

// NewShmPool returns an empty pool; memory is allocated by the first Resize
func (c *Client) NewShmPool() *ShmPool {
	return &ShmPool{
		display: c.display,
		shm:     c.shm,
		fd:      -1,
		busy:    make(map[uint32]span),
		logger:  c.logger.Named("shm"),
	}
}

// Size is the current pool size in bytes
func (p *ShmPool) Size() int {
	return len(p.data)
}

// Resize grows the pool to at least size bytes
func (p *ShmPool) Resize(size int) error {
	if size <= len(p.data) {
		return nil
	}
	if size > math.MaxInt32 {
		return fmt.Errorf("pool size %d exceeds protocol limit", size)
	}

	if p.id == 0 {
		return p.create(size)
	}

	if err := unix.Ftruncate(p.fd, int64(size)); err != nil {
		return fmt.Errorf("ftruncate: %w", err)
	}
	data, err := unix.Mmap(p.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	if err := unix.Munmap(p.data); err != nil {
		p.logger.Warn("Failed to unmap old pool", zap.Error(err))
	}
	p.data = data

	if err := p.display.send(newRequest(p.id, shmPoolResize).Int32(int32(size))); err != nil {
		return err
	}
	p.logger.Debug("Pool grown", zap.String("size", humanize.Bytes(uint64(size))))
	return nil
}

func (p *ShmPool) create(size int) error {
	fd, err := unix.MemfdCreate("paper-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return fmt.Errorf("ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("mmap: %w", err)
	}

	id := p.display.newObject(nil)
	req := newRequest(p.shm, shmCreatePool).Uint32(id).Fd(fd).Int32(int32(size))
	if err := p.display.send(req); err != nil {
		unix.Munmap(data)
		unix.Close(fd)
		return err
	}

	p.id = id
	p.fd = fd
	p.data = data
	p.logger.Debug("Pool created", zap.String("size", humanize.Bytes(uint64(size))))
	return nil
}

// Canvas returns a width x height view over a region no unreleased buffer
// uses, growing the pool when none fits
func (p *ShmPool) Canvas(width, height int) (*canvas.Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas dimensions %dx%d", width, height)
	}

	region := p.freeRegion(canvas.Size(width, height))
	if region.end() > len(p.data) {
		p.logger.Debug("Growing pool past busy buffers", zap.Int("busy", len(p.busy)))
		if err := p.Resize(region.end()); err != nil {
			return nil, err
		}
	}

	c, err := canvas.Wrap(p.data[region.off:region.end()], width, height)
	if err != nil {
		return nil, err
	}
	p.next = region
	return c, nil
}

// freeRegion returns the lowest region of size bytes that starts at 0 or
// right after a busy region and overlaps no busy region
func (p *ShmPool) freeRegion(size int) span {
	starts := []int{0}
	for _, b := range p.busy {
		starts = append(starts, b.end())
	}
	slices.Sort(starts)

	for _, off := range starts {
		candidate := span{off: off, size: size}
		free := true
		for _, b := range p.busy {
			if candidate.overlaps(b) {
				free = false
				break
			}
		}
		if free {
			return candidate
		}
	}
	// unreachable: the region after the highest busy end is always free
	return span{off: starts[len(starts)-1], size: size}
}

// Busy is the number of buffers the compositor has not released yet
func (p *ShmPool) Busy() int {
	return len(p.busy)
}

// createBuffer wraps the pool region behind c, the last canvas handed out,
// in a wl_buffer. The buffer frees its region and destroys itself once the
// compositor releases it.
func (p *ShmPool) createBuffer(c *canvas.Canvas) (uint32, error) {
	if p.id == 0 {
		return 0, fmt.Errorf("buffer requested from an empty pool")
	}
	region := p.next
	if region.size != canvas.Size(c.Width, c.Height) {
		return 0, fmt.Errorf("canvas %dx%d was not handed out by this pool", c.Width, c.Height)
	}

	var id uint32
	id = p.display.newObject(func(opcode uint16, _ *event) error {
		if opcode != bufferEventRelease {
			return nil
		}
		delete(p.busy, id)
		p.display.forget(id)
		return p.display.send(newRequest(id, bufferDestroy))
	})

	req := newRequest(p.id, shmPoolCreateBuffer).
		Uint32(id).
		Int32(int32(region.off)).
		Int32(int32(c.Width)).
		Int32(int32(c.Height)).
		Int32(int32(c.Stride)).
		Uint32(formatARGB8888)
	if err := p.display.send(req); err != nil {
		p.display.forget(id)
		return 0, err
	}
	p.busy[id] = region
	return id, nil
}

// Close destroys the pool and frees its memory. Buffers the compositor still
// holds keep their own mapping.
func (p *ShmPool) Close() error {
	if p.id == 0 {
		return nil
	}
	err := p.display.send(newRequest(p.id, shmPoolDestroy))
	if uerr := unix.Munmap(p.data); uerr != nil && err == nil {
		err = fmt.Errorf("munmap: %w", uerr)
	}
	if cerr := unix.Close(p.fd); cerr != nil && err == nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	p.id = 0
	p.fd = -1
	p.data = nil
	return err
}
