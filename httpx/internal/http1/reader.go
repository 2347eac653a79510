package http1

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedStartLine = errors.New("http1: malformed start line")
	ErrMalformedHeader    = errors.New("http1: malformed header line")
	ErrTruncatedHeaders   = errors.New("http1: truncated headers")
	ErrIncompleteBody     = errors.New("http1: incomplete body")
)

// ParsedRequest is a minimal representation parsed from the wire.
type ParsedRequest struct {
	Method string
	Target string
	Proto  string
	// Header keys are kept exactly as received. Only the first line carrying
	// a given name is recorded; later duplicates are dropped.
	Header map[string][]string
	Body   []byte
}

type Reader struct {
	BR *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{BR: br}
	}
	return &Reader{BR: bufio.NewReader(r)}
}

// ReadRequest consumes exactly one request: the start line, the header
// block and Content-Length body bytes. Nothing past the body is read from
// the underlying stream beyond what bufio has already buffered.
func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, fmt.Errorf("%w: start line: %w", ErrTruncatedHeaders, err)
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	hdr, err := r.readHeaders()
	if err != nil {
		return nil, err
	}
	pr := &ParsedRequest{
		Method: parts[0],
		Target: parts[1],
		Proto:  parts[2],
		Header: hdr,
	}
	if n, ok := contentLength(hdr); ok && n > 0 {
		// Grow with the bytes that actually arrive rather than trusting n.
		var body bytes.Buffer
		got, err := io.CopyN(&body, r.BR, n)
		if err != nil {
			return nil, fmt.Errorf("%w: got %d of %d bytes: %w", ErrIncompleteBody, got, n, err)
		}
		pr.Body = body.Bytes()
	}
	return pr, nil
}

func (r *Reader) readHeaders() (map[string][]string, error) {
	h := make(map[string][]string)
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTruncatedHeaders, err)
		}
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		addHeader(h, strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return h, nil
}

// readLine returns the next line with its terminator (LF or CRLF) and any
// surrounding whitespace removed. A line cut short by EOF is an error.
func (r *Reader) readLine() (string, error) {
	s, err := r.BR.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// addHeader splits v on commas and records the pieces under k unless k has
// already been seen.
func addHeader(h map[string][]string, k, v string) {
	if _, seen := h[k]; seen {
		return
	}
	vals := strings.Split(v, ",")
	for i := range vals {
		vals[i] = strings.TrimSpace(vals[i])
	}
	h[k] = vals
}

// contentLength reports the declared body size. One leading '+' is
// accepted. A missing, negative or non-numeric value yields ok=false and
// the body is treated as empty.
func contentLength(h map[string][]string) (int64, bool) {
	vv, ok := h["Content-Length"]
	if !ok || len(vv) == 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(vv[0], "+"), 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}
