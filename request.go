package nhttp

import (
	"bytes"
	"io"
	"net"
)

// Request represents a parsed incoming HTTP request.
//
// A Request is immutable once the handler starts reading it, and valid
// only until the handler returns - on keep-alive the connection reuses
// it for the next request. Make copies of anything retained.
type Request struct {
	// Header holds the request headers.
	//
	// Copying Header by value is forbidden. Use pointer to Header instead.
	Header RequestHeaders

	method        []byte
	requestTarget []byte
	protocol      []byte

	uri       URI
	parsedURI bool

	postArgs       Args
	multipartItems []*MultipartItem

	input *BodyBuffer

	isTLS     bool
	localAddr net.Addr
}

// Method returns the request method (uppercase token).
//
// The returned value is valid until the handler returns.
func (req *Request) Method() []byte {
	return req.method
}

// RequestTarget returns the raw request target from the request line.
//
// The returned value is valid until the handler returns.
func (req *Request) RequestTarget() []byte {
	return req.requestTarget
}

// Protocol returns the HTTP version string from the request line,
// e.g. HTTP/1.1 .
//
// The returned value is valid until the handler returns.
func (req *Request) Protocol() []byte {
	return req.protocol
}

// URI returns the parsed request URL.
//
// The scheme is https iff the carrying connection is TLS; the host is
// taken from the Host header, defaulting to the local endpoint.
func (req *Request) URI() *URI {
	if !req.parsedURI {
		host := req.Header.PeekBytes(strHost)
		if len(host) == 0 && req.localAddr != nil {
			host = s2b(req.localAddr.String())
		}
		req.uri.Parse(host, req.requestTarget, req.isTLS)
		req.parsedURI = true
	}
	return &req.uri
}

// QueryArgs returns query arguments parsed once from the raw query
// string on first access.
//
// Returned arguments are valid until the handler returns.
func (req *Request) QueryArgs() *Args {
	return req.URI().QueryArgs()
}

// PostArgs returns form arguments parsed from an url-encoded body.
//
// Returned arguments are valid until the handler returns.
func (req *Request) PostArgs() *Args {
	return &req.postArgs
}

// MultipartItems returns the parts of a multipart/form-data body in
// wire order.
//
// Returned items are valid until the handler returns.
func (req *Request) MultipartItems() []*MultipartItem {
	return req.multipartItems
}

// Input returns the request body stream. Requests without a body (or
// with a parsed url-encoded/multipart body) get an empty stream.
func (req *Request) Input() io.ReadSeeker {
	if req.input == nil {
		return bytes.NewReader(nil)
	}
	return req.input
}

// Param returns the first value for the given name from the merged
// query+post view, query taking precedence.
//
// The returned value is valid until the handler returns.
func (req *Request) Param(name string) []byte {
	if v := req.QueryArgs().Peek(name); v != nil {
		return v
	}
	return req.postArgs.Peek(name)
}

// reset prepares the request for the next request on a keep-alive
// connection: the body parser artifacts, input stream, multipart
// items, request line fields and the header mapping are all dropped.
func (req *Request) reset() {
	req.Header.Reset()
	req.method = req.method[:0]
	req.requestTarget = req.requestTarget[:0]
	req.protocol = req.protocol[:0]
	req.uri.Reset()
	req.parsedURI = false
	req.postArgs.Reset()
	for _, item := range req.multipartItems {
		item.close()
	}
	req.multipartItems = req.multipartItems[:0]
	if req.input != nil {
		req.input.Close()
		req.input = nil
	}
}

// MultipartItem is one part of a multipart/form-data body: its part
// headers plus either a small inline value (non-file parts) or an open
// seekable stream (file parts).
type MultipartItem struct {
	headers RequestHeaders
	value   []byte
	file    *BodyBuffer
}

// Headers returns the part headers.
func (mi *MultipartItem) Headers() *RequestHeaders {
	return &mi.headers
}

// Name returns the part's form field name from Content-Disposition.
func (mi *MultipartItem) Name() string {
	return string(headerParam(mi.headers.PeekBytes(strContentDisposition), strFormName))
}

// Filename returns the uploaded file name from Content-Disposition.
// It is empty for non-file parts.
func (mi *MultipartItem) Filename() string {
	return string(headerParam(mi.headers.PeekBytes(strContentDisposition), strFilename))
}

// IsFile returns true if the part carries an uploaded file.
func (mi *MultipartItem) IsFile() bool {
	return mi.file != nil
}

// Value returns the inline value of a non-file part, decoded in the
// part's Content-Type charset if given, else UTF-8. It is empty for
// file parts.
func (mi *MultipartItem) Value() string {
	return b2s(mi.value)
}

// Stream returns the open seekable stream of a file part, nil for
// non-file parts.
//
// The stream is valid until the handler returns.
func (mi *MultipartItem) Stream() io.ReadSeeker {
	if mi.file == nil {
		return nil
	}
	return mi.file
}

func (mi *MultipartItem) close() {
	if mi.file != nil {
		mi.file.Close()
		mi.file = nil
	}
}
