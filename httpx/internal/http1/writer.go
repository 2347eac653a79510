package http1

import (
	"bufio"
	"slices"
	"strconv"
	"strings"
)

// AppendResponse appends the wire form of a response to dst. Headers are
// written in sorted key order; multiple values under one key are joined
// with ", ". The body is appended verbatim. Callers own Content-Length.
func AppendResponse(dst []byte, proto string, status int, reason string, hdr map[string][]string, body []byte) []byte {
	dst = append(dst, proto...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(status), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	dst = append(dst, "\r\n"...)
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !isToken(k) {
			continue
		}
		dst = append(dst, k...)
		dst = append(dst, ": "...)
		dst = append(dst, stripControl(strings.Join(hdr[k], ", "))...)
		dst = append(dst, "\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	return append(dst, body...)
}

// WriteResponse writes the response to bw. It does not flush.
func WriteResponse(bw *bufio.Writer, proto string, status int, reason string, hdr map[string][]string, body []byte) error {
	_, err := bw.Write(AppendResponse(nil, proto, status, reason, hdr, body))
	return err
}

// StatusText returns the reason phrase for the codes this server emits,
// or "" for anything else.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	default:
		return ""
	}
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

// stripControl drops CR, LF, DEL and other control bytes except HTAB so a
// value can never terminate its header line early.
func stripControl(v string) string {
	b := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if c := v[i]; c == '\t' || (c >= 0x20 && c != 0x7f) {
			b = append(b, c)
		}
	}
	if len(b) == len(v) {
		return v
	}
	return string(b)
}
