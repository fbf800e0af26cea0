package nhttp

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// defaultMaxInMemoryBodySize is the spill threshold: opaque bodies and
// multipart file parts stay in pooled memory up to this size, then
// continue into a temp file.
const defaultMaxInMemoryBodySize = 64 * 1024

var bodyBufferPool bytebufferpool.Pool

// BodyBuffer is a seekable byte stream fed by a body parser.
//
// Bytes are held in a pooled in-memory buffer up to the spill
// threshold, then moved to a temp file. After the parser finishes,
// the buffer is rewound and exposed to the handler as an
// io.ReadSeeker.
//
// BodyBuffer is valid only until the carrying request is reset.
type BodyBuffer struct {
	mem       *bytebufferpool.ByteBuffer
	f         *os.File
	threshold int
	size      int
	roff      int
}

func acquireBodyBuffer(threshold int) *BodyBuffer {
	if threshold <= 0 {
		threshold = defaultMaxInMemoryBodySize
	}
	return &BodyBuffer{
		mem:       bodyBufferPool.Get(),
		threshold: threshold,
	}
}

// Len returns the total number of bytes written.
func (b *BodyBuffer) Len() int {
	return b.size
}

// Write appends p, spilling to a temp file once the threshold
// is crossed.
func (b *BodyBuffer) Write(p []byte) (int, error) {
	if b.f == nil && b.size+len(p) > b.threshold {
		f, err := os.CreateTemp("", "nhttp-body-")
		if err != nil {
			return 0, err
		}
		if _, err = f.Write(b.mem.B); err != nil {
			f.Close()
			os.Remove(f.Name())
			return 0, err
		}
		bodyBufferPool.Put(b.mem)
		b.mem = nil
		b.f = f
	}
	if b.f != nil {
		n, err := b.f.Write(p)
		b.size += n
		return n, err
	}
	b.mem.B = append(b.mem.B, p...)
	b.size += len(p)
	return len(p), nil
}

// rewind positions the stream at the beginning for handler reads.
func (b *BodyBuffer) rewind() error {
	b.roff = 0
	if b.f != nil {
		_, err := b.f.Seek(0, io.SeekStart)
		return err
	}
	return nil
}

// Read implements io.Reader.
func (b *BodyBuffer) Read(p []byte) (int, error) {
	if b.f != nil {
		return b.f.Read(p)
	}
	if b.roff >= len(b.mem.B) {
		return 0, io.EOF
	}
	n := copy(p, b.mem.B[b.roff:])
	b.roff += n
	return n, nil
}

// Seek implements io.Seeker.
func (b *BodyBuffer) Seek(offset int64, whence int) (int64, error) {
	if b.f != nil {
		return b.f.Seek(offset, whence)
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.roff) + offset
	case io.SeekEnd:
		abs = int64(len(b.mem.B)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	b.roff = int(abs)
	return abs, nil
}

// Close releases the pooled memory and removes the temp file, if any.
func (b *BodyBuffer) Close() error {
	if b.mem != nil {
		bodyBufferPool.Put(b.mem)
		b.mem = nil
	}
	if b.f != nil {
		name := b.f.Name()
		err := b.f.Close()
		os.Remove(name)
		b.f = nil
		return err
	}
	return nil
}

type bodyParserKind int

const (
	bodyOpaque bodyParserKind = iota
	bodyURLEncoded
	bodyMultipart
)

// Multipart parser states.
const (
	mpPreamble = iota
	mpPartHeaders
	mpPartData
	mpEpilogue
)

// bodyParser consumes exactly the declared Content-Length bytes from
// the read buffer across one or more parse steps, producing parsed
// artifacts into the request.
//
// The three variants share the parse(buffer) shape; the kind tag
// selects the behavior.
type bodyParser struct {
	kind      bodyParserKind
	remaining int
	threshold int

	// opaque
	out *BodyBuffer

	// url-encoded
	acc *bytebufferpool.ByteBuffer

	// multipart
	boundary []byte // "--" + token
	delim    []byte // "\r\n--" + token
	mstate   int
	item     *MultipartItem
	fileOut  *BodyBuffer
	valueAcc *bytebufferpool.ByteBuffer
}

// init selects the parser variant from the Content-Type's first token
// and prepares it for contentLength bytes. Unknown content types use
// the opaque variant.
func (p *bodyParser) init(contentLength int, contentType []byte, threshold int) error {
	p.reset()
	p.remaining = contentLength
	p.threshold = threshold

	tok := contentTypeFirstToken(contentType)
	switch {
	case caseInsensitiveCompare(tok, strFormURLEncoded):
		p.kind = bodyURLEncoded
		p.acc = bodyBufferPool.Get()
	case caseInsensitiveCompare(tok, strMultipartForm):
		boundary := headerParam(contentType, strBoundary)
		if len(boundary) == 0 {
			return errNoMultipartBoundary
		}
		p.kind = bodyMultipart
		p.boundary = append(append(p.boundary[:0], strDashDash...), boundary...)
		p.delim = append(append(p.delim[:0], strCRLFDashDash...), boundary...)
		p.mstate = mpPreamble
	default:
		p.kind = bodyOpaque
		p.out = acquireBodyBuffer(threshold)
	}
	return nil
}

// reset drops all intermediate state. Artifacts already handed to the
// request (input stream, multipart items) are owned by the request and
// survive.
func (p *bodyParser) reset() {
	p.remaining = 0
	if p.out != nil {
		p.out.Close()
		p.out = nil
	}
	if p.acc != nil {
		bodyBufferPool.Put(p.acc)
		p.acc = nil
	}
	if p.fileOut != nil {
		p.fileOut.Close()
		p.fileOut = nil
	}
	if p.valueAcc != nil {
		bodyBufferPool.Put(p.valueAcc)
		p.valueAcc = nil
	}
	p.boundary = p.boundary[:0]
	p.delim = p.delim[:0]
	p.item = nil
	p.mstate = mpPreamble
}

// parse consumes buffered bytes, bounded by the declared length, and
// reports whether the body is complete. The caller refills rb between
// steps; a refill failing before completion is an incomplete body.
func (p *bodyParser) parse(rb *ReadBuffer, req *Request) (bool, error) {
	switch p.kind {
	case bodyOpaque:
		return p.parseOpaque(rb, req)
	case bodyURLEncoded:
		return p.parseURLEncoded(rb, req)
	default:
		return p.parseMultipart(rb, req)
	}
}

func (p *bodyParser) window(rb *ReadBuffer) []byte {
	w := rb.Bytes()
	if len(w) > p.remaining {
		w = w[:p.remaining]
	}
	return w
}

func (p *bodyParser) consume(rb *ReadBuffer, n int) {
	rb.Skip(n)
	p.remaining -= n
}

func (p *bodyParser) parseOpaque(rb *ReadBuffer, req *Request) (bool, error) {
	w := p.window(rb)
	if len(w) > 0 {
		if _, err := p.out.Write(w); err != nil {
			return false, err
		}
		p.consume(rb, len(w))
	}
	if p.remaining > 0 {
		return false, nil
	}
	if err := p.out.rewind(); err != nil {
		return false, err
	}
	req.input = p.out
	p.out = nil
	return true, nil
}

func (p *bodyParser) parseURLEncoded(rb *ReadBuffer, req *Request) (bool, error) {
	w := p.window(rb)
	if len(w) > 0 {
		p.acc.B = append(p.acc.B, w...)
		p.consume(rb, len(w))
	}
	if p.remaining > 0 {
		return false, nil
	}
	req.postArgs.ParseBytes(p.acc.B)
	bodyBufferPool.Put(p.acc)
	p.acc = nil
	return true, nil
}

func (p *bodyParser) parseMultipart(rb *ReadBuffer, req *Request) (bool, error) {
	for {
		w := p.window(rb)
		switch p.mstate {
		case mpPreamble, mpPartHeaders:
			n := bytes.IndexByte(w, '\n')
			if n < 0 {
				if len(w) == p.remaining {
					return false, errMultipartTruncated
				}
				return false, nil
			}
			line := w[:n]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if err := p.multipartLine(line, req); err != nil {
				return false, err
			}
			p.consume(rb, n+1)

		case mpPartData:
			i := bytes.Index(w, p.delim)
			if i < 0 {
				// Hold back a potential partial delimiter plus its
				// terminal lookahead.
				reserve := len(p.delim) + 2
				if len(w) == p.remaining {
					return false, errMultipartTruncated
				}
				if flushable := len(w) - reserve; flushable > 0 {
					if err := p.partWrite(w[:flushable]); err != nil {
						return false, err
					}
					p.consume(rb, flushable)
				}
				return false, nil
			}
			after := w[i+len(p.delim):]
			if len(after) < 2 {
				if len(w) == p.remaining {
					return false, errMultipartTruncated
				}
				return false, nil
			}
			switch {
			case after[0] == '-' && after[1] == '-':
				if err := p.partWrite(w[:i]); err != nil {
					return false, err
				}
				p.consume(rb, i+len(p.delim)+2)
				if err := p.finishPart(req); err != nil {
					return false, err
				}
				p.mstate = mpEpilogue
			case after[0] == '\n':
				if err := p.partWrite(w[:i]); err != nil {
					return false, err
				}
				p.consume(rb, i+len(p.delim)+1)
				if err := p.finishPart(req); err != nil {
					return false, err
				}
				p.startPart()
			case after[0] == '\r' && after[1] == '\n':
				if err := p.partWrite(w[:i]); err != nil {
					return false, err
				}
				p.consume(rb, i+len(p.delim)+2)
				if err := p.finishPart(req); err != nil {
					return false, err
				}
				p.startPart()
			default:
				// A boundary-looking byte run inside part content.
				if err := p.partWrite(w[:i+1]); err != nil {
					return false, err
				}
				p.consume(rb, i+1)
			}

		case mpEpilogue:
			p.consume(rb, len(w))
			if p.remaining == 0 {
				return true, nil
			}
			return false, nil
		}
		if p.remaining == 0 {
			if p.mstate != mpEpilogue {
				return false, errMultipartTruncated
			}
			return true, nil
		}
		if !rb.DataAvailable() {
			return false, nil
		}
	}
}

// multipartLine handles one header-zone line in the preamble or
// part-header states.
func (p *bodyParser) multipartLine(line []byte, req *Request) error {
	switch p.mstate {
	case mpPreamble:
		if bytes.Equal(line, p.boundary) {
			p.startPart()
			return nil
		}
		if len(line) == len(p.boundary)+2 && bytes.HasPrefix(line, p.boundary) && line[len(line)-2] == '-' && line[len(line)-1] == '-' {
			p.mstate = mpEpilogue
		}
		// transport padding before the first boundary is discarded
		return nil

	default: // mpPartHeaders
		if len(line) == 0 {
			return p.openPartBody()
		}
		n := bytes.IndexByte(line, ':')
		if n < 0 {
			return newProtocolError("malformed multipart part header line %q", line)
		}
		key := trimBytes(line[:n])
		value := trimBytes(line[n+1:])
		p.item.headers.SetBytesKV(key, value)
		return nil
	}
}

func (p *bodyParser) startPart() {
	p.item = &MultipartItem{}
	p.mstate = mpPartHeaders
}

// openPartBody closes the part-header zone: a Content-Disposition with
// a filename parameter opens a file-backed stream, anything else
// collects into memory.
func (p *bodyParser) openPartBody() error {
	cd := p.item.headers.PeekBytes(strContentDisposition)
	if headerHasParam(cd, strFilename) {
		p.fileOut = acquireBodyBuffer(p.threshold)
	} else {
		p.valueAcc = bodyBufferPool.Get()
	}
	p.mstate = mpPartData
	return nil
}

func (p *bodyParser) partWrite(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if p.fileOut != nil {
		_, err := p.fileOut.Write(b)
		return err
	}
	p.valueAcc.B = append(p.valueAcc.B, b...)
	return nil
}

func (p *bodyParser) finishPart(req *Request) error {
	item := p.item
	p.item = nil
	if p.fileOut != nil {
		if err := p.fileOut.rewind(); err != nil {
			return err
		}
		item.file = p.fileOut
		p.fileOut = nil
	} else {
		// The value is interpreted in the part's Content-Type
		// charset if given, else UTF-8.
		cs := headerParam(item.headers.PeekBytes(strContentType), strCharset)
		v, err := DecodeCharset(nil, p.valueAcc.B, b2s(cs))
		if err != nil {
			v = append([]byte(nil), p.valueAcc.B...)
		}
		item.value = v
		bodyBufferPool.Put(p.valueAcc)
		p.valueAcc = nil
	}
	req.multipartItems = append(req.multipartItems, item)
	return nil
}

// contentTypeFirstToken returns the media type of a Content-Type
// value: leading/trailing spaces trimmed, parameters cut at ';'.
func contentTypeFirstToken(ct []byte) []byte {
	if n := bytes.IndexByte(ct, ';'); n >= 0 {
		ct = ct[:n]
	}
	return trimBytes(ct)
}

// headerParam extracts a ';'-separated name=value parameter from a
// header value, stripping surrounding double quotes. Nil is returned
// when the parameter is absent.
func headerParam(h, name []byte) []byte {
	for {
		n := bytes.IndexByte(h, ';')
		if n < 0 {
			return nil
		}
		h = h[n+1:]
		part := h
		if n = bytes.IndexByte(part, ';'); n >= 0 {
			part = part[:n]
		}
		eq := bytes.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		if !caseInsensitiveCompare(trimBytes(part[:eq]), name) {
			continue
		}
		v := trimBytes(part[eq+1:])
		if len(v) > 1 && v[0] == '"' && v[len(v)-1] == '"' {
			v = v[1 : len(v)-1]
		}
		return v
	}
}

// headerHasParam reports whether the ';'-separated parameter exists,
// even with an empty value.
func headerHasParam(h, name []byte) bool {
	for {
		n := bytes.IndexByte(h, ';')
		if n < 0 {
			return false
		}
		h = h[n+1:]
		part := h
		if n = bytes.IndexByte(part, ';'); n >= 0 {
			part = part[:n]
		}
		eq := bytes.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		if caseInsensitiveCompare(trimBytes(part[:eq]), name) {
			return true
		}
	}
}

func trimBytes(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
