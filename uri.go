package nhttp

import (
	"bytes"
	"io"
)

// URI represents the parsed request URL.
//
// It is forbidden copying URI instances. Create new instance and use
// CopyTo instead.
type URI struct {
	pathOriginal []byte
	scheme       []byte
	host         []byte
	path         []byte
	queryString  []byte
	hash         []byte

	queryArgs       Args
	parsedQueryArgs bool

	fullURI    []byte
	requestURI []byte
}

// CopyTo copies uri contents to dst.
func (x *URI) CopyTo(dst *URI) {
	dst.Reset()
	dst.pathOriginal = append(dst.pathOriginal[:0], x.pathOriginal...)
	dst.scheme = append(dst.scheme[:0], x.scheme...)
	dst.host = append(dst.host[:0], x.host...)
	dst.path = append(dst.path[:0], x.path...)
	dst.queryString = append(dst.queryString[:0], x.queryString...)
	dst.hash = append(dst.hash[:0], x.hash...)

	dst.parsedQueryArgs = false

	// fullURI and requestURI shouldn't be copied, since they are created
	// from scratch on each FullURI() and RequestURI() call.
}

// Reset clears uri.
func (x *URI) Reset() {
	x.pathOriginal = x.pathOriginal[:0]
	x.scheme = x.scheme[:0]
	x.host = x.host[:0]
	x.path = x.path[:0]
	x.queryString = x.queryString[:0]
	x.hash = x.hash[:0]
	x.queryArgs.Reset()
	x.parsedQueryArgs = false
}

// Scheme returns URI scheme - https iff the carrying connection is TLS.
//
// The returned value is valid until the next URI method call.
func (x *URI) Scheme() []byte {
	scheme := x.scheme
	if len(scheme) == 0 {
		scheme = strHTTP
	}
	return scheme
}

// Host returns host[:port] part, taken from the Host header and
// defaulting to the local endpoint. Host is always lowercased.
func (x *URI) Host() []byte {
	return x.host
}

// Path returns URI path.
//
// The returned path is always urldecoded and normalized,
// i.e. '//f%20obar/baz/../zzz' becomes '/f obar/zzz'.
//
// The returned value is valid until the next URI method call.
func (x *URI) Path() []byte {
	path := x.path
	if len(path) == 0 {
		path = strSlash
	}
	return path
}

// PathOriginal returns the original path from the request target.
//
// The returned value is valid until the next URI method call.
func (x *URI) PathOriginal() []byte {
	return x.pathOriginal
}

// QueryString returns the raw URI query string.
//
// The returned value is valid until the next URI method call.
func (x *URI) QueryString() []byte {
	return x.queryString
}

// Hash returns URI hash, i.e. qwe of http://aaa.com/foo/bar?baz=123#qwe .
//
// The returned value is valid until the next URI method call.
func (x *URI) Hash() []byte {
	return x.hash
}

// Parse initializes URI from the given default host, request target and
// transport security flag.
//
// An absolute-form target carries its own authority, which overrides
// the Host header.
func (x *URI) Parse(host, target []byte, isTLS bool) {
	x.Reset()

	scheme, targetHost, uri := splitHostURI(host, target)
	if isTLS {
		scheme = strHTTPS
	}
	x.scheme = append(x.scheme, scheme...)
	lowercaseBytes(x.scheme)
	x.host = append(x.host, targetHost...)
	lowercaseBytes(x.host)

	b := uri
	n := bytes.IndexByte(b, '?')
	if n < 0 {
		x.pathOriginal = append(x.pathOriginal, b...)
		x.path = normalizePath(x.path, b)
		return
	}
	x.pathOriginal = append(x.pathOriginal, b[:n]...)
	x.path = normalizePath(x.path, x.pathOriginal)
	b = b[n+1:]

	n = bytes.IndexByte(b, '#')
	if n >= 0 {
		x.hash = append(x.hash, b[n+1:]...)
		b = b[:n]
	}

	x.queryString = append(x.queryString, b...)
}

func normalizePath(dst, src []byte) []byte {
	dst = dst[:0]

	// add leading slash
	if len(src) == 0 || src[0] != '/' {
		dst = append(dst, '/')
	}

	// path context: '+' stays literal
	dst = appendDecoded(dst, src, false)

	// remove duplicate slashes
	b := dst
	bSize := len(b)
	for {
		n := bytes.Index(b, strSlashSlash)
		if n < 0 {
			break
		}
		b = b[n:]
		copy(b, b[1:])
		b = b[:len(b)-1]
		bSize--
	}
	dst = dst[:bSize]

	// remove /foo/../ parts
	b = dst
	for {
		n := bytes.Index(b, strSlashDotDotSlash)
		if n < 0 {
			break
		}
		nn := bytes.LastIndexByte(b[:n], '/')
		if nn < 0 {
			nn = 0
		}
		n += len(strSlashDotDotSlash) - 1
		copy(b[nn:], b[n:])
		b = b[:len(b)-n+nn]
	}

	// remove /./ parts
	for {
		n := bytes.Index(b, strSlashDotSlash)
		if n < 0 {
			break
		}
		nn := n + len(strSlashDotSlash) - 1
		copy(b[n:], b[nn:])
		b = b[:len(b)-nn+n]
	}

	// remove trailing /foo/..
	n := bytes.LastIndex(b, strSlashDotDot)
	if n >= 0 && n+len(strSlashDotDot) == len(b) {
		nn := bytes.LastIndexByte(b[:n], '/')
		if nn < 0 {
			return append(dst[:0], strSlash...)
		}
		b = b[:nn+1]
	}

	return b
}

// RequestURI returns RequestURI - i.e. URI without Scheme and Host.
func (x *URI) RequestURI() []byte {
	dst := appendQuotedPath(x.requestURI[:0], x.Path())
	if len(x.queryString) > 0 {
		dst = append(dst, '?')
		dst = append(dst, x.queryString...)
	}
	if len(x.hash) > 0 {
		dst = append(dst, '#')
		dst = append(dst, x.hash...)
	}
	x.requestURI = dst
	return x.requestURI
}

// FullURI returns full uri in the form {Scheme}://{Host}{RequestURI}.
func (x *URI) FullURI() []byte {
	x.fullURI = x.AppendBytes(x.fullURI[:0])
	return x.fullURI
}

// AppendBytes appends full uri to dst and returns the extended dst.
func (x *URI) AppendBytes(dst []byte) []byte {
	dst = x.appendSchemeHost(dst)
	return append(dst, x.RequestURI()...)
}

func (x *URI) appendSchemeHost(dst []byte) []byte {
	dst = append(dst, x.Scheme()...)
	dst = append(dst, strColonSlashSlash...)
	return append(dst, x.Host()...)
}

// WriteTo writes full uri to w.
//
// WriteTo implements io.WriterTo interface.
func (x *URI) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(x.FullURI())
	return int64(n), err
}

// String returns full uri.
func (x *URI) String() string {
	return string(x.FullURI())
}

// QueryArgs returns query args parsed once from the raw query string
// on first access.
func (x *URI) QueryArgs() *Args {
	if !x.parsedQueryArgs {
		x.queryArgs.ParseBytes(x.queryString)
		x.parsedQueryArgs = true
	}
	return &x.queryArgs
}

func splitHostURI(host, uri []byte) ([]byte, []byte, []byte) {
	n := bytes.Index(uri, strColonSlashSlash)
	if n < 0 {
		return strHTTP, host, uri
	}
	scheme := uri[:n]
	if bytes.IndexByte(scheme, '/') >= 0 {
		return strHTTP, host, uri
	}
	n += len(strColonSlashSlash)
	uri = uri[n:]
	n = bytes.IndexByte(uri, '/')
	if n < 0 {
		return scheme, uri, strSlash
	}
	return scheme, uri[:n], uri[n:]
}
