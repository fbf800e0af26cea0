package nhttp

import (
	"fmt"

	"golang.org/x/net/html/charset"
)

// DecodeCharset appends src re-encoded from the given charset into UTF-8
// to dst and returns the extended dst.
//
// Empty and utf-8 charset names append src verbatim. Unknown charsets
// return an error with dst unchanged; byte-oriented callers fall back
// to the raw bytes.
func DecodeCharset(dst, src []byte, enc string) ([]byte, error) {
	if enc == "" || caseInsensitiveCompare(s2b(enc), defaultCharset) || caseInsensitiveCompare(s2b(enc), s2b("utf8")) {
		return append(dst, src...), nil
	}
	e, _ := charset.Lookup(enc)
	if e == nil {
		return dst, fmt.Errorf("unknown charset %q", enc)
	}
	b, err := e.NewDecoder().Bytes(src)
	if err != nil {
		return dst, fmt.Errorf("cannot decode %q bytes: %w", enc, err)
	}
	return append(dst, b...), nil
}

// AppendUnquotedArgCharset appends url-decoded src, interpreted in the
// given charset, to dst and returns the extended dst.
//
// The percent-decoding itself is byte-oriented; the resulting byte
// sequence is then interpreted in the caller-supplied encoding
// (default UTF-8).
func AppendUnquotedArgCharset(dst, src []byte, enc string) ([]byte, error) {
	raw := appendDecoded(nil, src, true)
	return DecodeCharset(dst, raw, enc)
}
