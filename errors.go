package nhttp

import (
	"errors"
	"fmt"
)

// ProtocolError is returned when the peer sends bytes that cannot be
// parsed as an HTTP/1.x request. The connection carrying it is closed.
type ProtocolError struct {
	msg string
}

// Error implements error interface.
func (e *ProtocolError) Error() string {
	return e.msg
}

func newProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

// IsProtocolError returns true if err was caused by malformed request bytes.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

var (
	// ErrAlreadyStarted is returned by Server.Start if the server
	// isn't in the Stopped state.
	ErrAlreadyStarted = errors.New("server is already started")

	// ErrNotStarted is returned by Server.Stop if the server
	// isn't in the Started state.
	ErrNotStarted = errors.New("server is not started")

	// ErrBufferFull is returned when a single request line, header
	// line or multipart part-header line exceeds the read buffer's
	// hard limit. Body bytes are consumed as they arrive and never
	// fill the buffer.
	ErrBufferFull = &ProtocolError{msg: "read buffer limit exceeded"}

	// ErrIncompleteBody is returned when the peer closes the
	// connection before sending Content-Length body bytes.
	ErrIncompleteBody = &ProtocolError{msg: "connection closed before the declared body length was received"}

	errBadProlog           = &ProtocolError{msg: "malformed request line"}
	errHeaderNoColon       = &ProtocolError{msg: "header line without colon"}
	errBadContentLength    = &ProtocolError{msg: "cannot parse Content-Length"}
	errChunkedNotSupported = &ProtocolError{msg: "chunked Transfer-Encoding is not supported"}
	errNoMultipartBoundary = &ProtocolError{msg: "multipart/form-data without boundary parameter"}
	errUnsupportedExpect   = &ProtocolError{msg: "unsupported Expect header"}
	errMultipartTruncated  = &ProtocolError{msg: "multipart body ended before the terminating boundary"}
	errHeaderValueNewline  = &ProtocolError{msg: "newline in response header value"}
)

// errConnDisposed marks I/O failures observed after the connection was
// deliberately torn down (timeout, shutdown, peer reset). It is never
// surfaced to the host.
var errConnDisposed = errors.New("connection disposed")
