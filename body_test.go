package nhttp

import (
	"bytes"
	"io"
	"testing"
)

// parseBody drives a body parser to completion, feeding the read
// buffer in chunks of the given size.
func parseBody(t *testing.T, contentType string, body []byte, chunkSize, threshold int) *Request {
	t.Helper()

	req := &Request{}
	var p bodyParser
	if err := p.init(len(body), []byte(contentType), threshold); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	var rb ReadBuffer
	rb.Init(16)
	src := &chunkedReader{r: bytes.NewReader(body), n: chunkSize}
	for {
		done, err := p.parse(&rb, req)
		if err != nil {
			t.Fatalf("unexpected parse error (chunkSize=%d): %v", chunkSize, err)
		}
		if done {
			break
		}
		if _, err := rb.Fill(src); err != nil {
			t.Fatalf("unexpected fill error (chunkSize=%d): %v", chunkSize, err)
		}
	}
	return req
}

func TestBodyOpaque(t *testing.T) {
	t.Parallel()

	body := []byte("arbitrary \x00 binary \xff payload")
	for _, chunkSize := range []int{1, 3, len(body)} {
		req := parseBody(t, "application/octet-stream", body, chunkSize, 1024)
		b, err := io.ReadAll(req.Input())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(b, body) {
			t.Fatalf("unexpected body %q. Expecting %q", b, body)
		}
		req.reset()
	}
}

func TestBodyOpaqueSpillsToFile(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte("0123456789"), 100)
	req := parseBody(t, "", body, 7, 64)
	defer req.reset()

	bb, ok := req.input, req.input != nil
	if !ok {
		t.Fatalf("missing input stream")
	}
	if bb.f == nil {
		t.Fatalf("body above the threshold must spill to a temp file")
	}
	b, err := io.ReadAll(req.Input())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(b, body) {
		t.Fatalf("unexpected spilled body length %d. Expecting %d", len(b), len(body))
	}

	// the stream is seekable
	if _, err = req.input.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("unexpected seek error: %v", err)
	}
	b2 := make([]byte, 10)
	if _, err = io.ReadFull(req.input, b2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b2) != "0123456789" {
		t.Fatalf("unexpected reread %q", b2)
	}
}

func TestBodyURLEncoded(t *testing.T) {
	t.Parallel()

	body := []byte("a=1&b=hi%20u")
	for _, chunkSize := range []int{1, 4, len(body)} {
		req := parseBody(t, "application/x-www-form-urlencoded", body, chunkSize, 1024)
		if v := req.PostArgs().Peek("a"); string(v) != "1" {
			t.Fatalf("unexpected a %q", v)
		}
		if v := req.PostArgs().Peek("b"); string(v) != "hi u" {
			t.Fatalf("unexpected b %q", v)
		}
		if v := req.Param("a"); string(v) != "1" {
			t.Fatalf("merged params must expose post args: %q", v)
		}
		req.reset()
	}
}

func TestBodyMultipart(t *testing.T) {
	t.Parallel()

	body := []byte("--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"x.txt\"\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"HELLO\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"comment\"\r\n" +
		"\r\n" +
		"hi there\r\n" +
		"--XYZ--\r\n")

	for chunkSize := 1; chunkSize <= len(body); chunkSize += 5 {
		req := parseBody(t, "multipart/form-data; boundary=XYZ", body, chunkSize, 1024)
		items := req.MultipartItems()
		if len(items) != 2 {
			t.Fatalf("chunkSize=%d: unexpected item count %d. Expecting 2", chunkSize, len(items))
		}

		file := items[0]
		if !file.IsFile() {
			t.Fatalf("first item must be a file part")
		}
		if name := file.Name(); name != "f" {
			t.Fatalf("unexpected part name %q", name)
		}
		if fn := file.Filename(); fn != "x.txt" {
			t.Fatalf("unexpected filename %q", fn)
		}
		if ct := file.Headers().Peek("Content-Type"); string(ct) != "text/plain" {
			t.Fatalf("unexpected part content type %q", ct)
		}
		b, err := io.ReadAll(file.Stream())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "HELLO" {
			t.Fatalf("chunkSize=%d: unexpected file content %q. Expecting %q", chunkSize, b, "HELLO")
		}

		value := items[1]
		if value.IsFile() {
			t.Fatalf("second item must be a value part")
		}
		if v := value.Value(); v != "hi there" {
			t.Fatalf("unexpected value %q", v)
		}
		req.reset()
	}
}

func TestBodyMultipartBoundaryLikeContent(t *testing.T) {
	t.Parallel()

	// content containing a boundary-looking run that is not a boundary
	content := "data\r\n--XYZZY not a boundary\r\nmore"
	body := []byte("--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		content + "\r\n" +
		"--XYZ--\r\n")

	for _, chunkSize := range []int{1, 2, 7, len(body)} {
		req := parseBody(t, "multipart/form-data; boundary=XYZ", body, chunkSize, 1024)
		items := req.MultipartItems()
		if len(items) != 1 {
			t.Fatalf("unexpected item count %d", len(items))
		}
		if v := items[0].Value(); v != content {
			t.Fatalf("chunkSize=%d: unexpected value %q. Expecting %q", chunkSize, v, content)
		}
		req.reset()
	}
}

func TestBodyMultipartPartCharset(t *testing.T) {
	t.Parallel()

	// 0xE9 is 'é' in latin-1; the part charset drives decoding
	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"latin\"\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"\r\n" +
		"caf\xe9\r\n" +
		"--B\r\n" +
		"Content-Disposition: form-data; name=\"plain\"\r\n" +
		"\r\n" +
		"caf\xc3\xa9\r\n" +
		"--B--\r\n")

	req := parseBody(t, "multipart/form-data; boundary=B", body, 3, 1024)
	defer req.reset()
	items := req.MultipartItems()
	if len(items) != 2 {
		t.Fatalf("unexpected item count %d", len(items))
	}
	if v := items[0].Value(); v != "café" {
		t.Fatalf("latin-1 part must decode via its charset: %q", v)
	}
	// no charset parameter: bytes are interpreted as utf-8
	if v := items[1].Value(); v != "café" {
		t.Fatalf("charset-less part must decode as utf-8: %q", v)
	}
}

func TestBodyMultipartFileSpill(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("z"), 500)
	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"up\"; filename=\"big.bin\"\r\n" +
		"\r\n")
	body = append(body, payload...)
	body = append(body, "\r\n--B--\r\n"...)

	req := parseBody(t, "multipart/form-data; boundary=B", body, 11, 64)
	defer req.reset()
	items := req.MultipartItems()
	if len(items) != 1 {
		t.Fatalf("unexpected item count %d", len(items))
	}
	if items[0].file.f == nil {
		t.Fatalf("file part above the threshold must spill to a temp file")
	}
	b, err := io.ReadAll(items[0].Stream())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(b, payload) {
		t.Fatalf("unexpected file content length %d. Expecting %d", len(b), len(payload))
	}
}

func TestBodyMultipartMissingBoundary(t *testing.T) {
	t.Parallel()

	var p bodyParser
	err := p.init(10, []byte("multipart/form-data"), 1024)
	if err != errNoMultipartBoundary {
		t.Fatalf("unexpected error %v. Expecting %v", err, errNoMultipartBoundary)
	}
}

func TestBodyMultipartTruncated(t *testing.T) {
	t.Parallel()

	body := []byte("--B\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"partial data with no terminator")

	req := &Request{}
	var p bodyParser
	if err := p.init(len(body), []byte("multipart/form-data; boundary=B"), 1024); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	var rb ReadBuffer
	rb.Init(16)
	src := bytes.NewReader(body)
	var parseErr error
	for {
		var done bool
		done, parseErr = p.parse(&rb, req)
		if parseErr != nil || done {
			break
		}
		if _, err := rb.Fill(src); err != nil {
			t.Fatalf("unexpected fill error: %v", err)
		}
	}
	if parseErr != errMultipartTruncated {
		t.Fatalf("unexpected error %v. Expecting %v", parseErr, errMultipartTruncated)
	}
	p.reset()
}

func TestContentTypeFirstToken(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ in, expected string }{
		{"text/html", "text/html"},
		{" text/html ; charset=utf-8", "text/html"},
		{"multipart/form-data; boundary=XYZ", "multipart/form-data"},
		{"", ""},
	} {
		if tok := contentTypeFirstToken([]byte(tc.in)); string(tok) != tc.expected {
			t.Fatalf("unexpected token %q for %q. Expecting %q", tok, tc.in, tc.expected)
		}
	}
}

func TestHeaderParam(t *testing.T) {
	t.Parallel()

	cd := []byte(`form-data; name="f"; filename="x.txt"`)
	if v := headerParam(cd, strFormName); string(v) != "f" {
		t.Fatalf("unexpected name %q", v)
	}
	if v := headerParam(cd, strFilename); string(v) != "x.txt" {
		t.Fatalf("unexpected filename %q", v)
	}
	if v := headerParam([]byte("form-data; name=bare"), strFormName); string(v) != "bare" {
		t.Fatalf("unexpected unquoted name %q", v)
	}
	if v := headerParam([]byte("form-data"), strFilename); v != nil {
		t.Fatalf("unexpected filename %q for param-less value", v)
	}
	if !headerHasParam([]byte(`form-data; filename=""`), strFilename) {
		t.Fatalf("empty filename parameter must still mark a file part")
	}
}
