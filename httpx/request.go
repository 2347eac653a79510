package httpx

import (
	"io"
	"net"

	"dqx0.com/go/faras/httpx/internal/http1"
)

// RequestLine is the first line of a request. Target is kept opaque:
// path and query are not split or decoded.
type RequestLine struct {
	Method string
	Target string
	Proto  string
}

// Request represents a parsed HTTP request.
//
// A Request is built once per connection and is not modified after
// parsing. When a field name appears on more than one header line only
// the first line's values are kept.
type Request struct {
	RequestLine
	Header Header
	Body   []byte
	// RemoteAddr is the peer address of the connection the request
	// arrived on. It is nil for requests not read from a connection.
	RemoteAddr net.Addr
	// RequestID is the server generated identifier for this request.
	RequestID string
}

// ReadRequest parses one request from r. Errors match one of the parse
// failure sentinels (ErrMalformedStartLine and friends) under errors.Is.
func ReadRequest(r io.Reader) (*Request, error) {
	pr, err := http1.NewReader(r).ReadRequest()
	if err != nil {
		return nil, err
	}
	return &Request{
		RequestLine: RequestLine{Method: pr.Method, Target: pr.Target, Proto: pr.Proto},
		Header:      Header(pr.Header),
		Body:        pr.Body,
	}, nil
}

// RemoteIP returns the textual IP of RemoteAddr, without the port.
func (r *Request) RemoteIP() string {
	switch a := r.RemoteAddr.(type) {
	case nil:
		return ""
	case *net.TCPAddr:
		return a.IP.String()
	default:
		host, _, err := net.SplitHostPort(a.String())
		if err != nil {
			return a.String()
		}
		return host
	}
}
