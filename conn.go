package nhttp

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
)

// ConnState is the per-connection state tag.
type ConnState int32

// Connection states. StateClosed is terminal.
const (
	StateReadingProlog ConnState = iota
	StateReadingHeaders
	StateReadingContent
	StateWritingHeaders
	StateWritingContent
	StateClosed
)

// String implements fmt.Stringer.
func (st ConnState) String() string {
	switch st {
	case StateReadingProlog:
		return "ReadingProlog"
	case StateReadingHeaders:
		return "ReadingHeaders"
	case StateReadingContent:
		return "ReadingContent"
	case StateWritingHeaders:
		return "WritingHeaders"
	case StateWritingContent:
		return "WritingContent"
	case StateClosed:
		return "Closed"
	}
	return fmt.Sprintf("Unknown(%d)", int32(st))
}

// RequestCtx carries one request/response pair into the host's
// request-received handler.
//
// It is forbidden copying RequestCtx instances.
//
// RequestCtx and its members are valid only until the handler returns.
type RequestCtx struct {
	// Incoming request. Read-only once the handler runs.
	Request Request

	// Outgoing response. Mutable until the first byte is flushed.
	Response Response

	c *serverConn
}

// GetParam returns the first value for the given name from the merged
// query+post view, query taking precedence. It returns an empty
// string for a missing name.
func (ctx *RequestCtx) GetParam(name string) string {
	return string(ctx.Request.Param(name))
}

// RemoteAddr returns the client address.
//
// Always returns non-nil result.
func (ctx *RequestCtx) RemoteAddr() net.Addr {
	if ctx.c == nil {
		return zeroTCPAddr
	}
	addr := ctx.c.c.RemoteAddr()
	if addr == nil {
		return zeroTCPAddr
	}
	return addr
}

// LocalAddr returns the server address the request arrived on.
//
// Always returns non-nil result.
func (ctx *RequestCtx) LocalAddr() net.Addr {
	if ctx.c == nil {
		return zeroTCPAddr
	}
	addr := ctx.c.c.LocalAddr()
	if addr == nil {
		return zeroTCPAddr
	}
	return addr
}

// IsClientConnected reports whether the carrying connection is still
// open from the server's point of view. The socket is not probed.
func (ctx *RequestCtx) IsClientConnected() bool {
	return ctx.c != nil && !ctx.c.isDisposed()
}

// Redirect sets a 302 (or 301 when permanent) response with
// description "Moved" and a Location header.
//
// A location without a scheme is resolved against the current request
// URL: absolute paths become scheme://host[:port]/path, relative
// paths are resolved against the request path's directory.
func (ctx *RequestCtx) Redirect(location string, permanent bool) {
	resp := &ctx.Response
	if permanent {
		resp.StatusCode = StatusMovedPermanently
	} else {
		resp.StatusCode = StatusFound
	}
	resp.StatusDescription = "Moved"

	if strings.IndexByte(location, ':') >= 0 {
		resp.redirectLocation = append(resp.redirectLocation[:0], location...)
		return
	}
	uri := ctx.Request.URI()
	dst := resp.redirectLocation[:0]
	dst = append(dst, uri.Scheme()...)
	dst = append(dst, strColonSlashSlash...)
	dst = append(dst, uri.Host()...)
	if len(location) > 0 && location[0] == '/' {
		dst = append(dst, location...)
	} else {
		path := uri.Path()
		n := bytes.LastIndexByte(path, '/')
		dst = append(dst, path[:n+1]...)
		dst = append(dst, location...)
	}
	resp.redirectLocation = dst
}

var zeroTCPAddr = &net.TCPAddr{
	IP: net.IPv4zero,
}

// serverConn drives the read/parse/dispatch/write lifecycle of one
// accepted connection. It owns the transport stream; at most one read
// OR one write is outstanding at any time, never both, so the state
// machine is single-writer.
type serverConn struct {
	s *Server
	c net.Conn

	rb   ReadBuffer
	wbuf []byte

	ctx    RequestCtx
	parser bodyParser

	state              int32
	disposed           int32
	closeAfterResponse int32
	hadError           bool
}

func (sc *serverConn) setState(st ConnState) {
	atomic.StoreInt32(&sc.state, int32(st))
}

// State returns the current connection state.
func (sc *serverConn) State() ConnState {
	return ConnState(atomic.LoadInt32(&sc.state))
}

func (sc *serverConn) isDisposed() bool {
	return atomic.LoadInt32(&sc.disposed) == 1
}

// dispose closes the transport stream and removes the connection from
// the registry. It is safe to call from any goroutine and any number
// of times; the outstanding I/O fails, and the failure path observes
// the Closed state and becomes a no-op.
func (sc *serverConn) dispose() {
	if !atomic.CompareAndSwapInt32(&sc.disposed, 0, 1) {
		return
	}
	sc.setState(StateClosed)
	sc.c.Close()
	sc.s.unregister(sc)
}

// Close implements io.Closer for the timeout sweeper.
func (sc *serverConn) Close() error {
	sc.dispose()
	return nil
}

// requestClose asks the connection to finish up: a connection sitting
// in ReadingProlog has its stream disposed, aborting the in-flight
// read; an in-progress request is allowed to finish and then closes.
func (sc *serverConn) requestClose() {
	atomic.StoreInt32(&sc.closeAfterResponse, 1)
	if sc.State() == StateReadingProlog {
		sc.dispose()
	}
}

// serve runs the connection lifecycle on its own goroutine.
func (sc *serverConn) serve() {
	defer func() {
		sc.dispose()
		sc.releaseResources()
	}()

	if tc, ok := sc.c.(*tls.Conn); ok {
		// Server-mode handshake before any HTTP bytes are read.
		// Failures close the connection silently at the wire.
		if err := tc.Handshake(); err != nil {
			if !sc.isDisposed() {
				sc.s.logger().Printf("TLS handshake error from %s: %s", sc.c.RemoteAddr(), err)
			}
			return
		}
	}

	sc.ctx.c = sc
	sc.ctx.Request.isTLS = sc.s.UseTLS()
	sc.ctx.Request.localAddr = sc.c.LocalAddr()
	sc.ctx.Response.Reset()

	for {
		prologParsed, err := sc.serveRequest()
		if err != nil {
			if prologParsed && !sc.isDisposed() && err != errConnDisposed {
				sc.writeErrorResponse(err)
			}
			return
		}
		if !sc.shouldKeepAlive() {
			return
		}
		sc.resetForNextRequest()
	}
}

func (sc *serverConn) releaseResources() {
	sc.ctx.Request.reset()
	sc.ctx.Response.releaseOutput()
	sc.parser.reset()
}

// shouldKeepAlive applies the keep-alive rule: the request asked for
// it, the server is still Started and no errors occurred.
func (sc *serverConn) shouldKeepAlive() bool {
	if atomic.LoadInt32(&sc.closeAfterResponse) == 1 {
		return false
	}
	if sc.hadError || sc.s.State() != StateStarted {
		return false
	}
	return caseInsensitiveCompare(sc.ctx.Request.Header.PeekBytes(strConnection), strKeepAlive)
}

// resetForNextRequest rearms the connection for the next request,
// preserving the socket, the buffers, the timeout registration and any
// pipelined bytes already read.
func (sc *serverConn) resetForNextRequest() {
	sc.ctx.Request.reset()
	sc.ctx.Response.Reset()
	sc.parser.reset()
	sc.hadError = false
	sc.rb.Reset()
	sc.ctx.Request.isTLS = sc.s.UseTLS()
	sc.ctx.Request.localAddr = sc.c.LocalAddr()
}

// fill issues one read into the read buffer, registered with the
// read timeout queue.
func (sc *serverConn) fill() error {
	h := sc.s.tm.registerRead(sc)
	n, err := sc.rb.Fill(sc.c)
	h.complete()
	if n > 0 {
		return nil
	}
	if sc.isDisposed() {
		return errConnDisposed
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

// write pushes b to the socket, registered with the write timeout
// queue.
func (sc *serverConn) write(b []byte) error {
	h := sc.s.tm.registerWrite(sc)
	_, err := sc.c.Write(b)
	h.complete()
	if err != nil && sc.isDisposed() {
		return errConnDisposed
	}
	return err
}

func (sc *serverConn) readLine() ([]byte, error) {
	for {
		if line, ok := sc.rb.ReadLine(); ok {
			return line, nil
		}
		if err := sc.fill(); err != nil {
			return nil, err
		}
	}
}

// serveRequest drives one request through the state machine. The
// returned flag reports whether at least the request line was parsed,
// which gates the best-effort 500.
func (sc *serverConn) serveRequest() (bool, error) {
	sc.setState(StateReadingProlog)
	req := &sc.ctx.Request

	var line []byte
	var err error
	for {
		line, err = sc.readLine()
		if err != nil {
			return false, err
		}
		if len(line) != 0 {
			break
		}
		// empty prolog line: await more bytes
	}
	if err = parseProlog(line, req); err != nil {
		return false, err
	}

	sc.setState(StateReadingHeaders)
	for {
		line, err = sc.readLine()
		if err != nil {
			return true, err
		}
		if len(line) == 0 {
			break
		}
		n := bytes.IndexByte(line, ':')
		if n < 0 {
			return true, errHeaderNoColon
		}
		req.Header.SetBytesKV(trimBytes(line[:n]), trimBytes(line[n+1:]))
	}
	sc.rb.Reset()

	sc.setState(StateReadingContent)
	if err = sc.readContent(req); err != nil {
		return true, err
	}

	sc.dispatch()

	sc.setState(StateWritingHeaders)
	sc.wbuf, err = sc.ctx.Response.appendHeaderBlock(sc.wbuf[:0], req.protocol)
	if err != nil {
		return true, err
	}
	if err = sc.write(sc.wbuf); err != nil {
		return true, err
	}

	sc.setState(StateWritingContent)
	if body := sc.ctx.Response.Body(); len(body) > 0 {
		if err = sc.write(body); err != nil {
			return true, err
		}
	}
	return true, nil
}

// readContent handles the Expect interlude, then installs and runs the
// body parser chosen by Content-Type when a Content-Length is present.
// Absence of Content-Length means no body.
func (sc *serverConn) readContent(req *Request) error {
	if v := req.Header.PeekBytes(strExpect); len(v) > 0 {
		if !caseInsensitiveCompare(v, str100Continue) {
			return errUnsupportedExpect
		}
		// Expect is removed so it is not re-handled on reprocessing.
		req.Header.Del(b2s(strExpect))
		if err := sc.writeContinue(req.protocol); err != nil {
			return err
		}
	}

	if te := req.Header.PeekBytes(strTransferEncoding); len(te) > 0 {
		if bytes.Contains(te, strChunked) {
			return errChunkedNotSupported
		}
	}

	clv := req.Header.PeekBytes(strContentLength)
	if len(clv) == 0 {
		return nil
	}
	contentLength, err := ParseUint(clv)
	if err != nil {
		return errBadContentLength
	}
	if err = sc.parser.init(contentLength, req.Header.PeekBytes(strContentType), sc.s.spillThreshold()); err != nil {
		return err
	}
	for {
		done, err := sc.parser.parse(&sc.rb, req)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err = sc.fill(); err != nil {
			if err == io.EOF {
				return ErrIncompleteBody
			}
			return err
		}
	}
}

// writeContinue emits the 100 Continue prelude; it is not the final
// response.
func (sc *serverConn) writeContinue(protocol []byte) error {
	if len(protocol) == 0 {
		protocol = strHTTP11
	}
	b := sc.wbuf[:0]
	b = append(b, protocol...)
	b = append(b, " 100 Continue\r\n"...)
	b = append(b, strServer...)
	b = append(b, strColonSpace...)
	b = append(b, sc.s.getServerName()...)
	b = append(b, strCRLF...)
	b = append(b, strDate...)
	b = append(b, strColonSpace...)
	b = appendServerDate(b)
	b = append(b, strCRLF...)
	b = append(b, strCRLF...)
	sc.wbuf = b
	return sc.write(b)
}

// dispatch raises the request-received event synchronously. Handler
// panics are routed to the unhandled-exception observer; if unhandled,
// the response becomes a 500 with the built-in HTML body.
func (sc *serverConn) dispatch() {
	handler := sc.s.Handler
	if handler == nil {
		return
	}
	err := sc.callHandler(handler)
	if err == nil {
		return
	}
	handled := false
	if sc.s.ErrorHandler != nil {
		handled = sc.s.ErrorHandler(&sc.ctx, err)
	}
	if !handled {
		sc.hadError = true
		sc.setErrorResponse(err)
	}
}

func (sc *serverConn) callHandler(handler RequestHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}
	}()
	handler(&sc.ctx)
	return nil
}

// setErrorResponse replaces the response with the built-in 500 page.
func (sc *serverConn) setErrorResponse(err error) {
	resp := &sc.ctx.Response
	resp.Reset()
	resp.StatusCode = StatusInternalServerError
	resp.StatusDescription = statusMessage(StatusInternalServerError)
	out := resp.Output()
	out.B = appendErrorPage(out.B[:0], err)
}

// writeErrorResponse attempts a best-effort 500 before closing. If
// even that fails, the connection closes silently.
func (sc *serverConn) writeErrorResponse(err error) {
	sc.setErrorResponse(err)
	sc.setState(StateWritingHeaders)
	var werr error
	sc.wbuf, werr = sc.ctx.Response.appendHeaderBlock(sc.wbuf[:0], sc.ctx.Request.protocol)
	if werr != nil {
		return
	}
	if sc.write(sc.wbuf) != nil {
		return
	}
	sc.setState(StateWritingContent)
	sc.write(sc.ctx.Response.Body())
}

// parseProlog matches the request line METHOD SP TARGET SP HTTP/VERSION.
// The method is an uppercase token; the target is any non-space byte
// sequence.
func parseProlog(line []byte, req *Request) error {
	n1 := bytes.IndexByte(line, ' ')
	if n1 <= 0 {
		return errBadProlog
	}
	method := line[:n1]
	rest := line[n1+1:]
	n2 := bytes.IndexByte(rest, ' ')
	if n2 <= 0 {
		return errBadProlog
	}
	target := rest[:n2]
	proto := rest[n2+1:]

	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return errBadProlog
		}
	}
	if len(proto) <= 5 || !bytes.HasPrefix(proto, []byte("HTTP/")) || bytes.IndexByte(proto, ' ') >= 0 {
		return errBadProlog
	}

	req.method = append(req.method[:0], method...)
	req.requestTarget = append(req.requestTarget[:0], target...)
	req.protocol = append(req.protocol[:0], proto...)
	return nil
}
