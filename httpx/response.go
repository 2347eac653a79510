package httpx

import (
	"bufio"
	"io"
	"strconv"

	"dqx0.com/go/faras/httpx/internal/http1"
)

const (
	// ServerName is sent in the Server header of every response.
	ServerName = "faras"

	DefaultContentType = "text/plain"
	DefaultProto       = "HTTP/1.1"
)

// StatusLine is the first line of a response. An empty Reason is
// rendered as an empty phrase.
type StatusLine struct {
	Proto      string
	StatusCode int
	Reason     string
}

// Response is built by a Handler and serialized once. Content-Length is
// always derived from Body at serialization time; any value set by a
// handler is overwritten.
type Response struct {
	StatusLine
	Header Header
	Body   []byte
}

// NewResponse returns a 200 OK response carrying the Server and a text
// Content-Type header and an empty body.
func NewResponse() *Response {
	return &Response{
		StatusLine: StatusLine{Proto: DefaultProto, StatusCode: 200, Reason: "OK"},
		Header: Header{
			"Server":       {ServerName},
			"Content-Type": {DefaultContentType},
		},
	}
}

// StatusText returns the reason phrase for code, or "" if unknown.
func StatusText(code int) string { return http1.StatusText(code) }

// SetStatus sets the status code and its standard reason phrase.
func (r *Response) SetStatus(code int) {
	r.StatusCode = code
	r.Reason = StatusText(code)
}

// Fail sets the status and uses the reason phrase as a plain-text body,
// e.g. 404 with body "Not Found".
func (r *Response) Fail(code int, reason string) {
	if reason == "" {
		reason = StatusText(code)
	}
	r.StatusCode = code
	r.Reason = reason
	r.Body = []byte(reason)
}

// Bytes recomputes Content-Length and returns the wire form of r.
func (r *Response) Bytes() []byte {
	return r.AppendTo(nil)
}

// AppendTo recomputes Content-Length and appends the wire form of r to dst.
func (r *Response) AppendTo(dst []byte) []byte {
	return http1.AppendResponse(dst, r.prepare(), r.StatusCode, r.Reason, r.Header, r.Body)
}

// WriteTo recomputes Content-Length and writes r to w through a buffered
// writer, flushing before it returns.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)
	if err := http1.WriteResponse(bw, r.prepare(), r.StatusCode, r.Reason, r.Header, r.Body); err != nil {
		return cw.n, err
	}
	err := bw.Flush()
	return cw.n, err
}

// prepare sets Content-Length from the body and returns the protocol
// version to write.
func (r *Response) prepare() string {
	if r.Header == nil {
		r.Header = Header{}
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	if r.Proto == "" {
		return DefaultProto
	}
	return r.Proto
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
