// Package httpx provides a small HTTP/1.1 message layer and a
// connection-per-goroutine server.
//
// Highlights
//   - Request parsing from a raw byte stream: whitespace-split start
//     line, first-seen-wins header block with comma-split values, and
//     Content-Length body framing. No chunked transfer coding.
//   - Response serialization with a Content-Length that is always
//     derived from the body at write time.
//   - Server: one request per connection, no keep-alive. Requests that
//     fail to parse are dropped without a response. Optional read/write
//     deadlines, graceful shutdown, logging/metrics hooks.
//
// Quick start:
//
//	s := &httpx.Server{Addr: ":4221"}
//	s.Handler = httpx.HandlerFunc(func(r *httpx.Request) *httpx.Response {
//	    res := httpx.NewResponse()
//	    res.Body = []byte("hello")
//	    return res
//	})
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
package httpx
