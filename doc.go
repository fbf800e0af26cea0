// Package nhttp provides an embeddable HTTP/1.1 server library.
//
// A host program configures a listening endpoint, optionally supplies
// a server certificate to enable TLS, sets a request-received handler
// that may read parsed request data and write a response body, and
// calls Start. The library then accepts TCP connections, parses
// requests (including query strings, url-encoded form bodies and
// multipart/form-data with file uploads), invokes the handler, sends
// the response and keeps connections alive when the client asks.
//
// The library intentionally offers no output conveniences beyond a raw
// response byte stream - the host writes bytes:
//
//	s := &nhttp.Server{
//		Addr: "127.0.0.1:8080",
//		Handler: func(ctx *nhttp.RequestCtx) {
//			ctx.Response.WriteString("hello, ")
//			ctx.Response.WriteString(ctx.GetParam("name"))
//		},
//	}
//	if err := s.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Dispose()
//
// HTTP/2, chunked request bodies, trailers and response compression are
// out of scope.
package nhttp
