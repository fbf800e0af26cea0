package nhttp

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

var responseBodyPool bytebufferpool.Pool

// Response represents an outgoing HTTP response.
//
// All fields are mutable until the connection serializes the headers;
// the output stream is owned by the response and borrowed by the
// connection at write time.
//
// It is unsafe modifying/reading Response instance from concurrently
// running goroutines.
type Response struct {
	// StatusCode is the response status code. Default is 200.
	StatusCode int

	// StatusDescription is the status line phrase. Default is "OK".
	// An empty description is omitted from the status line.
	StatusDescription string

	// ContentType is emitted with "; charset=<Charset>" appended when
	// Charset is nonempty. Default is text/html.
	ContentType string

	// Charset qualifies ContentType. Default is utf-8.
	Charset string

	// CacheControl is emitted when nonempty. Default is private.
	CacheControl string

	// ExpiresAbsolute is always emitted as an RFC1123 Expires header.
	// Default is the zero time.
	ExpiresAbsolute time.Time

	h                []argsKV
	cookies          []argsKV
	redirectLocation []byte

	output *bytebufferpool.ByteBuffer
	bufKV  argsKV
}

// Reset restores the response defaults and drops the output stream
// contents.
func (resp *Response) Reset() {
	resp.StatusCode = StatusOK
	resp.StatusDescription = "OK"
	resp.ContentType = b2s(defaultContentType)
	resp.Charset = b2s(defaultCharset)
	resp.CacheControl = "private"
	resp.ExpiresAbsolute = zeroTime
	resp.h = resp.h[:0]
	resp.cookies = resp.cookies[:0]
	resp.redirectLocation = resp.redirectLocation[:0]
	if resp.output != nil {
		resp.output.Reset()
	}
}

// AddHeader appends a 'key: value' header, keeping any previous values
// stored under the key. Insertion order is preserved on the wire.
func (resp *Response) AddHeader(key, value string) {
	resp.h = kvAppend(resp.h, s2b(key), s2b(value))
}

// SetHeader sets a 'key: value' header, overwriting the first previous
// value stored under a case-insensitive match of key and dropping the
// rest.
func (resp *Response) SetHeader(key, value string) {
	k := s2b(key)
	found := false
	n := 0
	for i := 0; i < len(resp.h); i++ {
		kv := &resp.h[i]
		if caseInsensitiveCompare(kv.key, k) {
			if found {
				continue
			}
			found = true
			kv.value = append(kv.value[:0], value...)
		}
		if n != i {
			resp.h[n], resp.h[i] = resp.h[i], resp.h[n]
		}
		n++
	}
	resp.h = resp.h[:n]
	if !found {
		resp.h = kvAppend(resp.h, k, s2b(value))
	}
}

// HeaderValue returns the first value stored under a case-insensitive
// match of key.
func (resp *Response) HeaderValue(key string) string {
	k := s2b(key)
	for i := range resp.h {
		kv := &resp.h[i]
		if caseInsensitiveCompare(kv.key, k) {
			return string(kv.value)
		}
	}
	return ""
}

// SetCookie sets the given response cookie, overwriting a previously
// set cookie with the same name.
//
// It is safe modifying cookie after the call.
func (resp *Response) SetCookie(cookie *Cookie) {
	resp.bufKV.value = cookie.AppendBytes(resp.bufKV.value[:0])
	key := cookie.Key()
	for i, n := 0, len(resp.cookies); i < n; i++ {
		kv := &resp.cookies[i]
		if caseInsensitiveCompare(kv.key, key) {
			kv.value = append(kv.value[:0], resp.bufKV.value...)
			return
		}
	}
	resp.cookies = kvAppend(resp.cookies, key, resp.bufKV.value)
}

// RedirectLocation returns the Location header value set by Redirect,
// empty when the response is not a redirect.
func (resp *Response) RedirectLocation() []byte {
	return resp.redirectLocation
}

// Output returns the response output stream the host writes bytes to.
//
// The stream is owned by the response; the connection borrows it while
// draining, so handlers must not write after returning.
func (resp *Response) Output() *bytebufferpool.ByteBuffer {
	if resp.output == nil {
		resp.output = responseBodyPool.Get()
	}
	return resp.output
}

// Write appends p to the response body.
//
// Write implements io.Writer.
func (resp *Response) Write(p []byte) (int, error) {
	out := resp.Output()
	out.B = append(out.B, p...)
	return len(p), nil
}

// WriteString appends s to the response body.
func (resp *Response) WriteString(s string) (int, error) {
	out := resp.Output()
	out.B = append(out.B, s...)
	return len(s), nil
}

// Body returns the response body written so far.
func (resp *Response) Body() []byte {
	if resp.output == nil {
		return nil
	}
	return resp.output.B
}

// BodyLen returns the response body length in bytes.
func (resp *Response) BodyLen() int {
	if resp.output == nil {
		return 0
	}
	return len(resp.output.B)
}

// releaseOutput returns the output stream to the pool once the
// connection is done draining it.
func (resp *Response) releaseOutput() {
	if resp.output != nil {
		responseBodyPool.Put(resp.output)
		resp.output = nil
	}
}

// appendHeaderBlock appends the wire header block to dst and returns
// the extended dst:
//
//	<Protocol> <StatusCode>[ <StatusDescription>]
//	Cache-Control, Content-Type, Expires, Location
//	user headers in insertion order
//	Content-Length (always, computed from the output stream)
//	Set-Cookie per cookie
//
// Content-Length always reflects the body length, overriding any
// user-set value. A newline inside a header name or value is a
// protocol error.
func (resp *Response) appendHeaderBlock(dst, protocol []byte) ([]byte, error) {
	if len(protocol) == 0 {
		protocol = strHTTP11
	}
	dst = append(dst, protocol...)
	dst = append(dst, ' ')
	dst = AppendUint(dst, resp.StatusCode)
	if len(resp.StatusDescription) > 0 {
		if hasNewline(s2b(resp.StatusDescription)) {
			return dst, errHeaderValueNewline
		}
		dst = append(dst, ' ')
		dst = append(dst, resp.StatusDescription...)
	}
	dst = append(dst, strCRLF...)

	if len(resp.CacheControl) > 0 {
		if hasNewline(s2b(resp.CacheControl)) {
			return dst, errHeaderValueNewline
		}
		dst = appendHeaderLine(dst, strCacheControl, s2b(resp.CacheControl))
	}
	if len(resp.ContentType) > 0 {
		if hasNewline(s2b(resp.ContentType)) || hasNewline(s2b(resp.Charset)) {
			return dst, errHeaderValueNewline
		}
		dst = append(dst, strContentType...)
		dst = append(dst, strColonSpace...)
		dst = append(dst, resp.ContentType...)
		if len(resp.Charset) > 0 {
			dst = append(dst, "; charset="...)
			dst = append(dst, resp.Charset...)
		}
		dst = append(dst, strCRLF...)
	}
	dst = append(dst, strExpires...)
	dst = append(dst, strColonSpace...)
	dst = AppendHTTPDate(dst, resp.ExpiresAbsolute)
	dst = append(dst, strCRLF...)

	if len(resp.redirectLocation) > 0 {
		if hasNewline(resp.redirectLocation) {
			return dst, errHeaderValueNewline
		}
		dst = appendHeaderLine(dst, strLocation, resp.redirectLocation)
	}

	for i, n := 0, len(resp.h); i < n; i++ {
		kv := &resp.h[i]
		if caseInsensitiveCompare(kv.key, strContentLength) {
			// always recomputed below
			continue
		}
		if hasNewline(kv.key) || hasNewline(kv.value) {
			return dst, errHeaderValueNewline
		}
		dst = appendHeaderLine(dst, kv.key, kv.value)
	}

	dst = append(dst, strContentLength...)
	dst = append(dst, strColonSpace...)
	dst = AppendUint(dst, resp.BodyLen())
	dst = append(dst, strCRLF...)

	for i, n := 0, len(resp.cookies); i < n; i++ {
		kv := &resp.cookies[i]
		if hasNewline(kv.value) {
			return dst, errHeaderValueNewline
		}
		dst = appendHeaderLine(dst, strSetCookie, kv.value)
	}

	return append(dst, strCRLF...), nil
}

func appendHeaderLine(dst, key, value []byte) []byte {
	dst = append(dst, key...)
	dst = append(dst, strColonSpace...)
	dst = append(dst, value...)
	return append(dst, strCRLF...)
}

func hasNewline(b []byte) bool {
	for _, c := range b {
		if c == '\r' || c == '\n' {
			return true
		}
	}
	return false
}
