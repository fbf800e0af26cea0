// Package nhttputil provides utility functions for testing and
// embedding the nhttp server.
package nhttputil

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// NewPipeConns returns a new bi-directional in-process connection pipe.
func NewPipeConns() *PipeConns {
	up := newHalfPipe()
	down := newHalfPipe()
	pc := &PipeConns{}
	pc.c1 = pipeConn{r: down, w: up, pc: pc}
	pc.c2 = pipeConn{r: up, w: down, pc: pc}
	return pc
}

// PipeConns is a bi-directional connection pipe using in-process
// memory as the transport.
//
// PipeConns must be created by calling NewPipeConns.
//
// Unlike net.Pipe, writes are buffered and never block, so there is no
// need for a concurrent goroutine calling Read in order to unblock
// each Write call. Closing either end unblocks pending reads on both,
// which is what the server's connection disposal relies on.
type PipeConns struct {
	c1        pipeConn
	c2        pipeConn
	closeOnce sync.Once
}

// Conn1 returns the first end of the bi-directional pipe.
//
// Data written to Conn1 may be read from Conn2.
// Data written to Conn2 may be read from Conn1.
func (pc *PipeConns) Conn1() net.Conn {
	return &pc.c1
}

// Conn2 returns the second end of the bi-directional pipe.
//
// Data written to Conn2 may be read from Conn1.
// Data written to Conn1 may be read from Conn2.
func (pc *PipeConns) Conn2() net.Conn {
	return &pc.c2
}

// Close closes both pipe directions. Buffered data may still be read;
// blocked readers wake with io.EOF once their direction drains.
func (pc *PipeConns) Close() error {
	pc.closeOnce.Do(func() {
		pc.c1.r.close()
		pc.c1.w.close()
	})
	return nil
}

// halfPipe is one direction of the pipe: writes append to a buffer
// under the lock, reads drain it, a condition variable wakes blocked
// readers on new data or close.
type halfPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	off    int
	closed bool
}

func newHalfPipe() *halfPipe {
	p := &halfPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *halfPipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.cond.Broadcast()
	return len(b), nil
}

func (p *halfPipe) read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.off == len(p.buf) {
		if p.closed {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
	n := copy(b, p.buf[p.off:])
	p.off += n
	if p.off == len(p.buf) {
		p.buf = p.buf[:0]
		p.off = 0
	}
	return n, nil
}

func (p *halfPipe) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

type pipeConn struct {
	r  *halfPipe
	w  *halfPipe
	pc *PipeConns
}

func (c *pipeConn) Read(b []byte) (int, error) {
	return c.r.read(b)
}

func (c *pipeConn) Write(b []byte) (int, error) {
	return c.w.write(b)
}

func (c *pipeConn) Close() error {
	return c.pc.Close()
}

func (c *pipeConn) LocalAddr() net.Addr {
	return pipeAddr(0)
}

func (c *pipeConn) RemoteAddr() net.Addr {
	return pipeAddr(0)
}

var errNoDeadlines = errors.New("deadline not supported")

func (c *pipeConn) SetDeadline(t time.Time) error {
	return errNoDeadlines
}

func (c *pipeConn) SetReadDeadline(t time.Time) error {
	return c.SetDeadline(t)
}

func (c *pipeConn) SetWriteDeadline(t time.Time) error {
	return c.SetDeadline(t)
}

type pipeAddr int

func (pipeAddr) Network() string {
	return "pipe"
}

func (pipeAddr) String() string {
	return "pipe"
}
