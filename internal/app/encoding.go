package app

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"slices"
)

const EncodingGzip = "gzip"

// Negotiate returns the first coding in accepted, in the client's order,
// that also appears in supported, or "" when there is none. Values are
// compared exactly; quality parameters are not interpreted.
func Negotiate(accepted, supported []string) string {
	for _, a := range accepted {
		if a != "" && slices.Contains(supported, a) {
			return a
		}
	}
	return ""
}

// Encode compresses body in one shot with the named coding.
func Encode(enc string, body []byte) ([]byte, error) {
	switch enc {
	case EncodingGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("app: unsupported content coding %q", enc)
	}
}
