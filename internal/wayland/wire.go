package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 8

// maxMessageSize is the largest message the 16-bit size field can describe
const maxMessageSize = 0xFFFF

// ErrShortMessage is returned when an event body ends before its arguments
var ErrShortMessage = errors.New("short message")

// request builds one client request in wire format
type request struct {
	buf []byte
	fds []int
}

func newRequest(object uint32, opcode uint16) *request {
	r := &request{buf: make([]byte, headerSize, 64)}
	binary.LittleEndian.PutUint32(r.buf[0:4], object)
	binary.LittleEndian.PutUint16(r.buf[4:6], opcode)
	return r
}

func (r *request) Uint32(v uint32) *request {
	r.buf = binary.LittleEndian.AppendUint32(r.buf, v)
	return r
}

func (r *request) Int32(v int32) *request {
	return r.Uint32(uint32(v))
}

// String appends a NUL terminated string padded to 32 bits
func (r *request) String(s string) *request {
	n := len(s) + 1
	r.Uint32(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, make([]byte, 1+pad(n))...)
	return r
}

// Fd queues a file descriptor; it travels as ancillary data, not in the body
func (r *request) Fd(fd int) *request {
	r.fds = append(r.fds, fd)
	return r
}

// bytes finalizes the header size field
func (r *request) bytes() ([]byte, error) {
	if len(r.buf) > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", len(r.buf))
	}
	binary.LittleEndian.PutUint16(r.buf[6:8], uint16(len(r.buf)))
	return r.buf, nil
}

func pad(n int) int {
	return (4 - n%4) % 4
}

// header splits the second header word into size and opcode
func header(word uint32) (size int, opcode uint16) {
	return int(word >> 16), uint16(word & 0xFFFF)
}

// event reads the arguments of one compositor event.
// The first decoding error sticks; callers check Err once.
type event struct {
	data []byte
	off  int
	err  error
}

func newEvent(data []byte) *event {
	return &event{data: data}
}

func (e *event) Uint32() uint32 {
	if e.err != nil {
		return 0
	}
	if len(e.data)-e.off < 4 {
		e.err = ErrShortMessage
		return 0
	}
	v := binary.LittleEndian.Uint32(e.data[e.off:])
	e.off += 4
	return v
}

func (e *event) Int32() int32 {
	return int32(e.Uint32())
}

func (e *event) String() string {
	n := int(e.Uint32())
	if e.err != nil || n == 0 {
		return ""
	}
	if len(e.data)-e.off < n+pad(n) {
		e.err = ErrShortMessage
		return ""
	}
	s := string(e.data[e.off : e.off+n-1])
	e.off += n + pad(n)
	return s
}

func (e *event) Err() error {
	return e.err
}
