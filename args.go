package nhttp

import (
	"bytes"
	"io"
)

// Args represents query or post arguments as an ordered multimap.
//
// Repeated keys are preserved in insertion order; Peek returns the
// first value for a key.
//
// It is forbidden copying Args instances. Create new instances instead
// and use CopyTo().
//
// It is unsafe modifying/reading Args instance from concurrently
// running goroutines.
type Args struct {
	kvs []argsKV
	buf []byte
}

type argsKV struct {
	key   []byte
	value []byte
}

// kvAppend appends a copied 'key=value' entry to kvs and returns the
// extended kvs, reusing entry buffers freed by a previous truncation.
func kvAppend(kvs []argsKV, key, value []byte) []argsKV {
	n := len(kvs)
	if cap(kvs) > n {
		kvs = kvs[:n+1]
	} else {
		kvs = append(kvs, argsKV{})
	}
	kv := &kvs[n]
	kv.key = append(kv.key[:0], key...)
	kv.value = append(kv.value[:0], value...)
	return kvs
}

// kvAlloc extends kvs by one entry and returns it for in-place
// filling, reusing buffers the same way kvAppend does.
func kvAlloc(kvs *[]argsKV) *argsKV {
	n := len(*kvs)
	if cap(*kvs) > n {
		*kvs = (*kvs)[:n+1]
	} else {
		*kvs = append(*kvs, argsKV{})
	}
	return &(*kvs)[n]
}

// Reset clears the args.
func (a *Args) Reset() {
	a.kvs = a.kvs[:0]
}

// CopyTo copies all args to dst.
func (a *Args) CopyTo(dst *Args) {
	dst.Reset()
	for i := range a.kvs {
		kv := &a.kvs[i]
		dst.kvs = kvAppend(dst.kvs, kv.key, kv.value)
	}
}

// VisitAll calls f for each existing arg in insertion order.
//
// f must not retain references to key and value after returning.
// Make key and/or value copies if you need storing them after returning.
func (a *Args) VisitAll(f func(key, value []byte)) {
	for i := range a.kvs {
		kv := &a.kvs[i]
		f(kv.key, kv.value)
	}
}

// Len returns the number of args.
func (a *Args) Len() int {
	return len(a.kvs)
}

// Parse parses the given string containing query args.
func (a *Args) Parse(s string) {
	a.buf = append(a.buf[:0], s...)
	a.ParseBytes(a.buf)
}

// ParseBytes parses the given b containing query args.
//
// The input splits on '&', then each pair on the first '='; a missing
// '=' yields an empty value. Keys and values percent-decode in the
// form context ('+' becomes space). Repeated keys are kept in
// insertion order.
func (a *Args) ParseBytes(b []byte) {
	a.Reset()
	for len(b) > 0 {
		pair := b
		if n := bytes.IndexByte(b, '&'); n >= 0 {
			pair, b = b[:n], b[n+1:]
		} else {
			b = nil
		}
		if len(pair) == 0 || (len(pair) == 1 && pair[0] == '=') {
			// nothing between separators
			continue
		}
		key := pair
		value := pair[len(pair):]
		if n := bytes.IndexByte(pair, '='); n >= 0 {
			key, value = pair[:n], pair[n+1:]
		}
		kv := kvAlloc(&a.kvs)
		kv.key = appendDecoded(kv.key[:0], key, true)
		kv.value = appendDecoded(kv.value[:0], value, true)
	}
}

// String returns string representation of the args.
func (a *Args) String() string {
	return string(a.QueryString())
}

// QueryString returns query string for the args.
//
// The returned value is valid until the next call to Args methods.
func (a *Args) QueryString() []byte {
	a.buf = a.AppendBytes(a.buf[:0])
	return a.buf
}

// AppendBytes appends query string to dst and returns the extended dst.
func (a *Args) AppendBytes(dst []byte) []byte {
	for i := range a.kvs {
		kv := &a.kvs[i]
		if i > 0 {
			dst = append(dst, '&')
		}
		dst = AppendQuotedArg(dst, kv.key)
		if len(kv.value) > 0 {
			dst = append(dst, '=')
			dst = AppendQuotedArg(dst, kv.value)
		}
	}
	return dst
}

// WriteTo writes query string to w.
//
// WriteTo implements io.WriterTo interface.
func (a *Args) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.QueryString())
	return int64(n), err
}

// Add appends 'key=value' argument, keeping any existing values
// for the key.
func (a *Args) Add(key, value string) {
	a.kvs = kvAppend(a.kvs, s2b(key), s2b(value))
}

// AddBytesKV appends 'key=value' argument, keeping any existing values
// for the key.
func (a *Args) AddBytesKV(key, value []byte) {
	a.kvs = kvAppend(a.kvs, key, value)
}

// Del deletes all arguments with the given key.
func (a *Args) Del(key string) {
	n := 0
	for i := range a.kvs {
		if string(a.kvs[i].key) == key {
			continue
		}
		if n != i {
			a.kvs[n], a.kvs[i] = a.kvs[i], a.kvs[n]
		}
		n++
	}
	a.kvs = a.kvs[:n]
}

// Peek returns the first arg value for the given key.
//
// Returned value is valid until the next Args call.
func (a *Args) Peek(key string) []byte {
	for i := range a.kvs {
		kv := &a.kvs[i]
		if string(kv.key) == key {
			return kv.value
		}
	}
	return nil
}

// PeekBytes returns the first arg value for the given key.
//
// Returned value is valid until the next Args call.
func (a *Args) PeekBytes(key []byte) []byte {
	for i := range a.kvs {
		kv := &a.kvs[i]
		if bytes.Equal(kv.key, key) {
			return kv.value
		}
	}
	return nil
}

// PeekMulti returns all arg values for the given key in insertion order.
func (a *Args) PeekMulti(key string) [][]byte {
	var values [][]byte
	for i := range a.kvs {
		kv := &a.kvs[i]
		if string(kv.key) == key {
			values = append(values, kv.value)
		}
	}
	return values
}

// Has returns true if the given key exists in Args.
func (a *Args) Has(key string) bool {
	for i := range a.kvs {
		if string(a.kvs[i].key) == key {
			return true
		}
	}
	return false
}
