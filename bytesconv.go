package nhttp

import (
	"errors"
	"strconv"
	"time"
)

// AppendHTMLEscape appends html-escaped s to dst and returns the extended dst.
func AppendHTMLEscape(dst []byte, s string) []byte {
	var (
		prev int
		sub  string
	)

	for i, n := 0, len(s); i < n; i++ {
		sub = ""
		switch s[i] {
		case '&':
			sub = "&amp;"
		case '<':
			sub = "&lt;"
		case '>':
			sub = "&gt;"
		case '"':
			sub = "&#34;" // "&#34;" is shorter than "&quot;".
		case '\'':
			sub = "&#39;" // "&#39;" is shorter than "&apos;" and apos was not in HTML until HTML5.
		}
		if sub != "" {
			dst = append(dst, s[prev:i]...)
			dst = append(dst, sub...)
			prev = i + 1
		}
	}
	return append(dst, s[prev:]...)
}

// AppendHTMLEscapeBytes appends html-escaped s to dst and returns
// the extended dst.
func AppendHTMLEscapeBytes(dst, s []byte) []byte {
	return AppendHTMLEscape(dst, b2s(s))
}

// AppendHTMLUnescape appends html-unescaped s to dst and returns the
// extended dst. Only the five entities emitted by AppendHTMLEscape plus
// their named forms are decoded; unknown entities are left as-is.
func AppendHTMLUnescape(dst []byte, s string) []byte {
	for len(s) > 0 {
		i := 0
		for i < len(s) && s[i] != '&' {
			i++
		}
		dst = append(dst, s[:i]...)
		s = s[i:]
		if len(s) == 0 {
			break
		}
		n := 0
		for n < len(s) && n < 8 && s[n] != ';' {
			n++
		}
		if n == len(s) || s[n] != ';' {
			dst = append(dst, s[0])
			s = s[1:]
			continue
		}
		var r byte
		switch s[:n+1] {
		case "&amp;":
			r = '&'
		case "&lt;":
			r = '<'
		case "&gt;":
			r = '>'
		case "&#34;", "&quot;":
			r = '"'
		case "&#39;", "&apos;":
			r = '\''
		default:
			dst = append(dst, s[0])
			s = s[1:]
			continue
		}
		dst = append(dst, r)
		s = s[n+1:]
	}
	return dst
}

var httpDateGMT = time.FixedZone("GMT", 0)

// AppendHTTPDate appends HTTP-compliant (RFC1123) representation of date
// to dst and returns the extended dst.
func AppendHTTPDate(dst []byte, date time.Time) []byte {
	dst = date.In(time.UTC).AppendFormat(dst, time.RFC1123)
	copy(dst[len(dst)-3:], strGMT)
	return dst
}

// ParseHTTPDate parses HTTP-compliant (RFC1123) date.
func ParseHTTPDate(date []byte) (time.Time, error) {
	return time.ParseInLocation(time.RFC1123, b2s(date), httpDateGMT)
}

// AppendUint appends n to dst and returns the extended dst.
func AppendUint(dst []byte, n int) []byte {
	if n < 0 {
		// developer sanity-check
		panic("BUG: int must be positive")
	}

	return strconv.AppendUint(dst, uint64(n), 10)
}

// ParseUint parses uint from buf.
func ParseUint(buf []byte) (int, error) {
	v, n, err := parseUintBuf(buf)
	if n != len(buf) {
		return -1, errUnexpectedTrailingChar
	}
	return v, err
}

var (
	errEmptyInt               = errors.New("empty integer")
	errUnexpectedFirstChar    = errors.New("unexpected first char found. Expecting 0-9")
	errUnexpectedTrailingChar = errors.New("unexpected trailing char found. Expecting 0-9")
	errTooLongInt             = errors.New("too long int")
)

func parseUintBuf(b []byte) (int, int, error) {
	n := len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	v := 0
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, errUnexpectedFirstChar
			}
			return v, i, nil
		}
		vNew := 10*v + int(k)
		// Test for overflow.
		if vNew < v {
			return -1, i, errTooLongInt
		}
		v = vNew
	}
	return v, n, nil
}

const upperhex = "0123456789ABCDEF"

var toLowerTable = func() (t [256]byte) {
	for i := 0; i < 256; i++ {
		c := byte(i)
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		t[i] = c
	}
	return
}()

func lowercaseBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		p := &b[i]
		*p = toLowerTable[*p]
	}
}

// caseInsensitiveCompare does a case insensitive equality comparison of
// two []byte. Assumes only letters need to be matched.
func caseInsensitiveCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// AppendQuotedArg appends url-encoded src to dst and returns appended dst.
//
// Spaces are encoded as '+', matching the form (query-string) context.
func AppendQuotedArg(dst, src []byte) []byte {
	for _, c := range src {
		switch {
		case c == ' ':
			dst = append(dst, '+')
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c == '-', c == '_', c == '.', c == '~':
			dst = append(dst, c)
		default:
			dst = append(dst, '%', upperhex[c>>4], upperhex[c&0xf])
		}
	}
	return dst
}

// AppendUnquotedArg appends url-decoded src to dst and returns appended dst.
//
// '+' decodes to space, matching the form (query-string) context. Use
// appendDecoded with plusIsSpace=false for the path context, where '+'
// is literal.
func AppendUnquotedArg(dst, src []byte) []byte {
	return appendDecoded(dst, src, true)
}

// appendDecoded appends percent-decoded src to dst and returns the
// extended dst. '%HH' maps to a single byte; plusIsSpace selects the
// form context, where '+' decodes to space - in the path context '+'
// is literal. Invalid or truncated escapes are copied through
// untouched. The output is a raw byte sequence; charset
// interpretation is the caller's concern (see DecodeCharset).
func appendDecoded(dst, src []byte, plusIsSpace bool) []byte {
	for len(src) > 0 {
		// copy the run of plain bytes in one go
		i := 0
		for i < len(src) && src[i] != '%' && !(plusIsSpace && src[i] == '+') {
			i++
		}
		dst = append(dst, src[:i]...)
		src = src[i:]
		if len(src) == 0 {
			break
		}
		if src[0] == '+' {
			dst = append(dst, ' ')
			src = src[1:]
			continue
		}
		if len(src) >= 3 {
			x1 := hexbyte2int(src[1])
			x2 := hexbyte2int(src[2])
			if x1 >= 0 && x2 >= 0 {
				dst = append(dst, byte(x1<<4|x2))
				src = src[3:]
				continue
			}
		}
		dst = append(dst, src[0])
		src = src[1:]
	}
	return dst
}

func hexbyte2int(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func appendQuotedPath(dst, src []byte) []byte {
	for _, c := range src {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c == '/', c == '-', c == '_', c == '.', c == '~', c == '=', c == ':',
			c == '&', c == '+', c == '$', c == ',', c == ';', c == '@', c == '(', c == ')':
			dst = append(dst, c)
		default:
			dst = append(dst, '%', upperhex[c>>4], upperhex[c&0xf])
		}
	}
	return dst
}
