package nhttp

import (
	"testing"
	"time"
)

func TestCookieAppendBytes(t *testing.T) {
	t.Parallel()

	c := AcquireCookie()
	defer ReleaseCookie(c)

	c.SetKey("foo")
	c.SetValue("bar")
	if s := c.String(); s != "foo=bar" {
		t.Fatalf("unexpected cookie %q. Expecting %q", s, "foo=bar")
	}

	c.SetDomain("aaa.com")
	c.SetPath("/in/full")
	c.SetHTTPOnly(true)
	c.SetSecure(true)
	c.SetExpire(time.Date(2015, time.March, 7, 2, 3, 4, 0, time.UTC))
	expected := "foo=bar; expires=Sat, 07 Mar 2015 02:03:04 GMT; domain=aaa.com; path=/in/full; HttpOnly; secure"
	if s := c.String(); s != expected {
		t.Fatalf("unexpected cookie %q. Expecting %q", s, expected)
	}
}

func TestCookieSessionLifetime(t *testing.T) {
	t.Parallel()

	var c Cookie
	c.SetKey("sid")
	c.SetValue("x")
	if s := c.String(); s != "sid=x" {
		t.Fatalf("session cookie must carry no expires attribute: %q", s)
	}
}

func TestCookieReset(t *testing.T) {
	t.Parallel()

	var c Cookie
	c.SetKey("a")
	c.SetValue("b")
	c.SetSecure(true)
	c.Reset()
	if len(c.Key()) != 0 || len(c.Value()) != 0 || c.Secure() {
		t.Fatalf("Reset must clear the cookie")
	}
}

func TestResponseSetCookieOverwrite(t *testing.T) {
	t.Parallel()

	var resp Response
	resp.Reset()

	var c Cookie
	c.SetKey("sid")
	c.SetValue("1")
	resp.SetCookie(&c)
	c.SetValue("2")
	resp.SetCookie(&c)

	block, err := resp.appendHeaderBlock(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := countOccurrences(block, "Set-Cookie:"); n != 1 {
		t.Fatalf("expecting a single Set-Cookie header, got %d in %q", n, block)
	}
	if !containsStr(block, "Set-Cookie: sid=2\r\n") {
		t.Fatalf("cookie with the same name must be overwritten: %q", block)
	}
}
