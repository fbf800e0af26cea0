package nhttp

// RequestHeaders holds parsed request headers.
//
// Header names are case-insensitive; a duplicate name overwrites the
// previous value (last write wins). The mapping is rebuilt on every
// keep-alive reset - handlers must not retain references to it, or to
// any peeked value, after returning.
type RequestHeaders struct {
	kvs []argsKV
}

// Reset clears the headers.
func (h *RequestHeaders) Reset() {
	h.kvs = h.kvs[:0]
}

// Len returns the number of headers.
func (h *RequestHeaders) Len() int {
	return len(h.kvs)
}

// Set sets the given 'key: value' header, overwriting any previous
// value stored under a case-insensitive match of key.
func (h *RequestHeaders) Set(key, value string) {
	h.SetBytesKV(s2b(key), s2b(value))
}

// SetBytesKV sets the given 'key: value' header, overwriting any
// previous value stored under a case-insensitive match of key.
func (h *RequestHeaders) SetBytesKV(key, value []byte) {
	for i, n := 0, len(h.kvs); i < n; i++ {
		kv := &h.kvs[i]
		if caseInsensitiveCompare(kv.key, key) {
			kv.value = append(kv.value[:0], value...)
			return
		}
	}
	h.kvs = kvAppend(h.kvs, key, value)
}

// Del removes the header with the given case-insensitive key.
func (h *RequestHeaders) Del(key string) {
	k := s2b(key)
	for i, n := 0, len(h.kvs); i < n; i++ {
		kv := &h.kvs[i]
		if caseInsensitiveCompare(kv.key, k) {
			tmp := *kv
			copy(h.kvs[i:], h.kvs[i+1:])
			h.kvs[n-1] = tmp
			h.kvs = h.kvs[:n-1]
			return
		}
	}
}

// Peek returns the header value for the given case-insensitive key.
//
// Returned value is valid until the next RequestHeaders call.
func (h *RequestHeaders) Peek(key string) []byte {
	return h.PeekBytes(s2b(key))
}

// PeekBytes returns the header value for the given case-insensitive key.
//
// Returned value is valid until the next RequestHeaders call.
func (h *RequestHeaders) PeekBytes(key []byte) []byte {
	for i, n := 0, len(h.kvs); i < n; i++ {
		kv := &h.kvs[i]
		if caseInsensitiveCompare(kv.key, key) {
			return kv.value
		}
	}
	return nil
}

// Has returns true if a header with the given case-insensitive key exists.
func (h *RequestHeaders) Has(key string) bool {
	for i, n := 0, len(h.kvs); i < n; i++ {
		if caseInsensitiveCompare(h.kvs[i].key, s2b(key)) {
			return true
		}
	}
	return false
}

// VisitAll calls f for each header in insertion order.
//
// f must not retain references to key and value after returning.
func (h *RequestHeaders) VisitAll(f func(key, value []byte)) {
	for i := range h.kvs {
		kv := &h.kvs[i]
		f(kv.key, kv.value)
	}
}
