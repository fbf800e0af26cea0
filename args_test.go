package nhttp

import (
	"bytes"
	"testing"
)

func TestArgsParse(t *testing.T) {
	t.Parallel()

	var a Args
	a.Parse("a=1&b=hi%20u&c&a=2")

	if n := a.Len(); n != 4 {
		t.Fatalf("unexpected args length: %d. Expecting 4", n)
	}
	if v := a.Peek("a"); string(v) != "1" {
		t.Fatalf("unexpected value for a: %q. Expecting %q", v, "1")
	}
	if v := a.Peek("b"); string(v) != "hi u" {
		t.Fatalf("unexpected value for b: %q. Expecting %q", v, "hi u")
	}
	if v := a.Peek("c"); len(v) != 0 {
		t.Fatalf("unexpected value for c: %q. Expecting empty", v)
	}
	vv := a.PeekMulti("a")
	if len(vv) != 2 || string(vv[0]) != "1" || string(vv[1]) != "2" {
		t.Fatalf("unexpected values for a: %q. Expecting [1 2]", vv)
	}
}

func TestArgsParsePlus(t *testing.T) {
	t.Parallel()

	var a Args
	a.Parse("q=foo+bar")
	if v := a.Peek("q"); string(v) != "foo bar" {
		t.Fatalf("'+' must decode to space in the form context: %q", v)
	}
}

func TestArgsParseMissingEqual(t *testing.T) {
	t.Parallel()

	var a Args
	a.Parse("flag&x=1")
	if !a.Has("flag") {
		t.Fatalf("missing key without '='")
	}
	if v := a.Peek("flag"); len(v) != 0 {
		t.Fatalf("key without '=' must yield empty value, got %q", v)
	}
}

func TestArgsEncodeDecodeRoundtrip(t *testing.T) {
	t.Parallel()

	testArgsRoundtrip(t, [][2]string{
		{"a", "1"},
		{"b", "hi u"},
		{"b", "second"},
		{"ключ", "значение"},
		{"sp ace", "x=y&z"},
		{"empty", ""},
	})
	testArgsRoundtrip(t, [][2]string{})
	testArgsRoundtrip(t, [][2]string{{"%%", "%25"}})
}

func testArgsRoundtrip(t *testing.T, kvs [][2]string) {
	t.Helper()

	var a Args
	for _, kv := range kvs {
		a.Add(kv[0], kv[1])
	}
	encoded := a.AppendBytes(nil)

	var b Args
	b.ParseBytes(encoded)
	if b.Len() != len(kvs) {
		t.Fatalf("roundtrip length mismatch for %q: %d. Expecting %d", encoded, b.Len(), len(kvs))
	}
	i := 0
	b.VisitAll(func(k, v []byte) {
		if string(k) != kvs[i][0] || string(v) != kvs[i][1] {
			t.Fatalf("roundtrip mismatch at %d: got %q=%q, want %q=%q", i, k, v, kvs[i][0], kvs[i][1])
		}
		i++
	})
}

func TestArgsDel(t *testing.T) {
	t.Parallel()

	var a Args
	a.Parse("a=1&b=2&a=3")
	a.Del("a")
	if a.Has("a") {
		t.Fatalf("Del must remove all values for the key")
	}
	if v := a.Peek("b"); string(v) != "2" {
		t.Fatalf("unexpected value for b after Del: %q", v)
	}
}

func TestArgsCopyTo(t *testing.T) {
	t.Parallel()

	var a Args
	a.Parse("x=1&y=2")
	var b Args
	a.CopyTo(&b)
	if !bytes.Equal(a.AppendBytes(nil), b.AppendBytes(nil)) {
		t.Fatalf("CopyTo mismatch: %q vs %q", a.AppendBytes(nil), b.AppendBytes(nil))
	}
}
