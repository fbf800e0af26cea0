package nhttp

import "testing"

func TestRequestHeadersLastWriteWins(t *testing.T) {
	t.Parallel()

	var h RequestHeaders
	h.Set("Content-Type", "text/plain")
	h.Set("content-type", "text/html")
	if h.Len() != 1 {
		t.Fatalf("duplicate header names must overwrite, got %d entries", h.Len())
	}
	if v := h.Peek("CONTENT-TYPE"); string(v) != "text/html" {
		t.Fatalf("unexpected value %q. Expecting %q", v, "text/html")
	}
}

func TestRequestHeadersCaseInsensitive(t *testing.T) {
	t.Parallel()

	var h RequestHeaders
	h.Set("X-Foo-Bar", "baz")
	for _, key := range []string{"x-foo-bar", "X-FOO-BAR", "X-Foo-Bar"} {
		if v := h.Peek(key); string(v) != "baz" {
			t.Fatalf("unexpected value for %q: %q", key, v)
		}
	}
	if h.Peek("X-Foo") != nil {
		t.Fatalf("unexpected match for missing header")
	}
}

func TestRequestHeadersDel(t *testing.T) {
	t.Parallel()

	var h RequestHeaders
	h.Set("Expect", "100-continue")
	h.Set("Host", "aa.bb")
	h.Del("expect")
	if h.Has("Expect") {
		t.Fatalf("Del must remove the header")
	}
	if v := h.Peek("Host"); string(v) != "aa.bb" {
		t.Fatalf("unexpected Host %q", v)
	}
}

func TestRequestHeadersVisitOrder(t *testing.T) {
	t.Parallel()

	var h RequestHeaders
	h.Set("A", "1")
	h.Set("B", "2")
	h.Set("C", "3")
	var keys []string
	h.VisitAll(func(k, v []byte) {
		keys = append(keys, string(k))
	})
	if len(keys) != 3 || keys[0] != "A" || keys[1] != "B" || keys[2] != "C" {
		t.Fatalf("unexpected visit order %q", keys)
	}
}
