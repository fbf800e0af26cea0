package nhttp

import (
	"bytes"
	"io"
)

const (
	defaultReadBufferSize = 4096

	// maxReadBufferSize caps read buffer growth. A single line that
	// does not fit (request line, header line or multipart part-header
	// line) is rejected with ErrBufferFull.
	maxReadBufferSize = 1024 * 1024
)

// ReadBuffer is a growable byte buffer backing a sequential reader.
//
// Bytes are appended by Fill and consumed through ReadLine/Skip.
// Reset drops the consumed prefix while retaining any unparsed tail,
// which is how pipelined bytes survive a keep-alive reset.
type ReadBuffer struct {
	b []byte
	r int // consumed cursor
	w int // filled cursor
}

// Init sets the initial buffer size. Zero or negative size selects
// the default.
func (rb *ReadBuffer) Init(size int) {
	if size <= 0 {
		size = defaultReadBufferSize
	}
	if size > maxReadBufferSize {
		size = maxReadBufferSize
	}
	if cap(rb.b) < size {
		rb.b = make([]byte, size)
	} else {
		rb.b = rb.b[:cap(rb.b)]
	}
	rb.r = 0
	rb.w = 0
}

// DataAvailable returns true iff unread bytes remain.
func (rb *ReadBuffer) DataAvailable() bool {
	return rb.r < rb.w
}

// Bytes returns the unread bytes.
//
// The returned slice is valid until the next Fill or Reset call.
func (rb *ReadBuffer) Bytes() []byte {
	return rb.b[rb.r:rb.w]
}

// Skip consumes n unread bytes.
func (rb *ReadBuffer) Skip(n int) {
	if n > rb.w-rb.r {
		// developer sanity-check
		panic("BUG: skipping beyond the filled buffer")
	}
	rb.r += n
}

// Fill issues one read from r into the free tail and returns the
// number of bytes read. A zero count with a nil or io.EOF error means
// the peer closed; the caller must tear the connection down.
//
// The buffer is compacted, then doubled on demand up to
// maxReadBufferSize; beyond that Fill fails with ErrBufferFull.
func (rb *ReadBuffer) Fill(r io.Reader) (int, error) {
	if len(rb.b) == 0 {
		rb.Init(0)
	}
	if rb.w == len(rb.b) {
		if rb.r > 0 {
			rb.Reset()
		} else {
			if len(rb.b) >= maxReadBufferSize {
				return 0, ErrBufferFull
			}
			n := len(rb.b) * 2
			if n > maxReadBufferSize {
				n = maxReadBufferSize
			}
			b := make([]byte, n)
			copy(b, rb.b[:rb.w])
			rb.b = b
		}
	}
	n, err := r.Read(rb.b[rb.w:])
	rb.w += n
	return n, err
}

// ReadLine returns the next line from the consumed cursor with the
// terminator stripped, and true. It returns false when no complete
// line is buffered.
//
// CRLF terminates a line; a bare LF is accepted for robustness; a
// lone CR is not a line terminator.
func (rb *ReadBuffer) ReadLine() ([]byte, bool) {
	n := bytes.IndexByte(rb.b[rb.r:rb.w], '\n')
	if n < 0 {
		return nil, false
	}
	line := rb.b[rb.r : rb.r+n]
	rb.r += n + 1
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, true
}

// Reset drops the consumed prefix, retaining any unparsed tail.
func (rb *ReadBuffer) Reset() {
	if rb.r == 0 {
		return
	}
	copy(rb.b, rb.b[rb.r:rb.w])
	rb.w -= rb.r
	rb.r = 0
}
