package nhttp

import "testing"

func TestDecodeCharset(t *testing.T) {
	t.Parallel()

	// utf-8 and empty charset pass bytes through
	for _, enc := range []string{"", "utf-8", "UTF-8", "utf8"} {
		b, err := DecodeCharset(nil, []byte("пример"), enc)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", enc, err)
		}
		if string(b) != "пример" {
			t.Fatalf("unexpected result for %q: %q", enc, b)
		}
	}

	// latin-1 bytes re-encoded into utf-8
	b, err := DecodeCharset(nil, []byte{0xe9, 0x74, 0xe9}, "iso-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "été" {
		t.Fatalf("unexpected iso-8859-1 result %q", b)
	}

	// windows-1251 cyrillic
	b, err = DecodeCharset(nil, []byte{0xcf, 0xf0}, "windows-1251")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "Пр" {
		t.Fatalf("unexpected windows-1251 result %q", b)
	}

	if _, err = DecodeCharset(nil, []byte("x"), "no-such-charset"); err == nil {
		t.Fatalf("expecting error for unknown charset")
	}
}

func TestAppendUnquotedArgCharset(t *testing.T) {
	t.Parallel()

	// %E9 is 'é' in latin-1
	b, err := AppendUnquotedArgCharset(nil, []byte("caf%E9"), "iso-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "café" {
		t.Fatalf("unexpected result %q", b)
	}
}
