package nhttp

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func countOccurrences(b []byte, s string) int {
	return bytes.Count(b, []byte(s))
}

func containsStr(b []byte, s string) bool {
	return bytes.Contains(b, []byte(s))
}

func TestResponseDefaults(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	if resp.StatusCode != 200 || resp.StatusDescription != "OK" {
		t.Fatalf("unexpected status defaults: %d %q", resp.StatusCode, resp.StatusDescription)
	}
	if resp.ContentType != "text/html" || resp.Charset != "utf-8" {
		t.Fatalf("unexpected content type defaults: %q %q", resp.ContentType, resp.Charset)
	}
	if resp.CacheControl != "private" {
		t.Fatalf("unexpected cache control default: %q", resp.CacheControl)
	}
	if !resp.ExpiresAbsolute.IsZero() {
		t.Fatalf("unexpected expires default: %v", resp.ExpiresAbsolute)
	}
}

func TestResponseHeaderBlock(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.WriteString("abc")

	block, err := resp.appendHeaderBlock(nil, []byte("HTTP/1.1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "HTTP/1.1 200 OK\r\n" +
		"Cache-Control: private\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Expires: Mon, 01 Jan 0001 00:00:00 GMT\r\n" +
		"Content-Length: 3\r\n" +
		"\r\n"
	if string(block) != expected {
		t.Fatalf("unexpected header block:\n%q\nExpecting:\n%q", block, expected)
	}
}

func TestResponseContentLengthOverride(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.AddHeader("Content-Length", "9999")
	resp.WriteString("hello")

	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := countOccurrences(block, "Content-Length:"); n != 1 {
		t.Fatalf("expecting exactly one Content-Length header, got %d:\n%q", n, block)
	}
	if !containsStr(block, "Content-Length: 5\r\n") {
		t.Fatalf("Content-Length must be computed from the body:\n%q", block)
	}
}

func TestResponseUserHeaderOrder(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.AddHeader("X-B", "2")
	resp.AddHeader("X-A", "1")
	resp.AddHeader("X-B", "3")

	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(block)
	ib2 := strings.Index(s, "X-B: 2")
	ia := strings.Index(s, "X-A: 1")
	ib3 := strings.Index(s, "X-B: 3")
	if ib2 < 0 || ia < 0 || ib3 < 0 || !(ib2 < ia && ia < ib3) {
		t.Fatalf("user headers must keep insertion order:\n%q", s)
	}
}

func TestResponseSetHeader(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.AddHeader("X-A", "1")
	resp.AddHeader("x-a", "2")
	resp.SetHeader("X-A", "3")

	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := countOccurrences(block, "X-A:"); n != 1 {
		t.Fatalf("SetHeader must collapse duplicates, got %d:\n%q", n, block)
	}
	if resp.HeaderValue("x-a") != "3" {
		t.Fatalf("unexpected value %q", resp.HeaderValue("x-a"))
	}
}

func TestResponseExpires(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.ExpiresAbsolute = time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsStr(block, "Expires: Thu, 02 Jan 2020 03:04:05 GMT\r\n") {
		t.Fatalf("unexpected Expires header:\n%q", block)
	}
}

func TestResponseHeaderNewlineRejected(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.AddHeader("X-Evil", "a\r\nInjected: yes")
	if _, err := resp.appendHeaderBlock(nil, nil); err != errHeaderValueNewline {
		t.Fatalf("unexpected error %v. Expecting %v", err, errHeaderValueNewline)
	}
}

func TestResponseEmptyContentTypeOmitted(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()
	resp.ContentType = ""
	resp.CacheControl = ""
	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if containsStr(block, "Content-Type:") || containsStr(block, "Cache-Control:") {
		t.Fatalf("empty fields must be omitted:\n%q", block)
	}
}

func TestRedirectResolution(t *testing.T) {
	t.Parallel()

	testRedirect(t, "h:81", "/a/b", "c", false, 302, "http://h:81/a/c")
	testRedirect(t, "h:81", "/a/b", "/c", false, 302, "http://h:81/c")
	testRedirect(t, "h", "/a/b", "https://other/x", true, 301, "https://other/x")
	testRedirect(t, "h", "/", "c", true, 301, "http://h/c")
}

func testRedirect(t *testing.T, host, path, location string, permanent bool, expectedCode int, expectedLocation string) {
	t.Helper()

	ctx := &RequestCtx{}
	ctx.Request.Header.Set("Host", host)
	ctx.Request.requestTarget = []byte(path)
	ctx.Response.Reset()

	ctx.Redirect(location, permanent)
	if ctx.Response.StatusCode != expectedCode {
		t.Fatalf("unexpected status code %d. Expecting %d", ctx.Response.StatusCode, expectedCode)
	}
	if ctx.Response.StatusDescription != "Moved" {
		t.Fatalf("unexpected status description %q. Expecting %q", ctx.Response.StatusDescription, "Moved")
	}
	if loc := ctx.Response.RedirectLocation(); string(loc) != expectedLocation {
		t.Fatalf("unexpected location %q. Expecting %q", loc, expectedLocation)
	}

	block, err := ctx.Response.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsStr(block, "Location: "+expectedLocation+"\r\n") {
		t.Fatalf("missing Location header:\n%q", block)
	}
}
