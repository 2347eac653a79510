// Package app holds the request router: an ordered table of routes, each a
// predicate over the request plus a behavior that fills in the response.
package app

import (
	"errors"
	"strings"

	"dqx0.com/go/faras/httpx"
	"dqx0.com/go/faras/internal/obs"
)

// Match reports whether a route applies to req.
type Match func(req *httpx.Request) bool

// Behavior fills in res for req. A returned *httpx.StatusError becomes that
// status with its reason as body; any other error becomes a 500.
type Behavior func(req *httpx.Request, res *httpx.Response) error

type Route struct {
	Name  string
	Match Match
	Serve Behavior
}

// Router evaluates Routes in order and runs the first match. It also
// negotiates a content coding from Accept-Encoding and applies it to any
// non-empty body the route produces.
type Router struct {
	Routes []Route
	// Encodings lists the supported content codings in preference order.
	// Nil means gzip only.
	Encodings []string
	Logger    obs.Logger
}

var _ httpx.Handler = (*Router)(nil)

func (rt *Router) ServeHTTP(req *httpx.Request) *httpx.Response {
	res := httpx.NewResponse()
	// Decided before routing, applied after the body exists.
	enc := Negotiate(req.Header.Values("Accept-Encoding"), rt.encodings())

	route, ok := rt.match(req)
	if !ok {
		res.Fail(404, "")
	} else {
		rt.logger().Logf(obs.Debug, "req=%s route=%s", req.RequestID, route.Name)
		if err := route.Serve(req, res); err != nil {
			rt.fail(req, res, route.Name, err)
		}
	}

	if enc != "" && len(res.Body) > 0 {
		body, err := Encode(enc, res.Body)
		if err != nil {
			rt.logger().Logf(obs.Error, "req=%s encode %s: %v", req.RequestID, enc, err)
			return res
		}
		res.Header.Set("Content-Encoding", enc)
		res.Body = body
	}
	return res
}

func (rt *Router) match(req *httpx.Request) (Route, bool) {
	for _, r := range rt.Routes {
		if r.Match(req) {
			return r, true
		}
	}
	return Route{}, false
}

func (rt *Router) fail(req *httpx.Request, res *httpx.Response, route string, err error) {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		rt.logger().Logf(obs.Info, "req=%s route=%s: %v", req.RequestID, route, err)
		res.Fail(se.Code, se.Reason)
		return
	}
	rt.logger().Logf(obs.Error, "req=%s route=%s: %v", req.RequestID, route, err)
	res.Fail(500, "")
}

func (rt *Router) encodings() []string {
	if rt.Encodings == nil {
		return []string{EncodingGzip}
	}
	return rt.Encodings
}

func (rt *Router) logger() obs.Logger {
	if rt.Logger == nil {
		return obs.NopLogger{}
	}
	return rt.Logger
}

// Method matches the request method exactly.
func Method(m string) Match {
	return func(req *httpx.Request) bool { return req.Method == m }
}

// Path matches the target exactly.
func Path(p string) Match {
	return func(req *httpx.Request) bool { return req.Target == p }
}

// PathFold matches the target under ASCII case folding.
func PathFold(p string) Match {
	return func(req *httpx.Request) bool { return strings.EqualFold(req.Target, p) }
}

// Prefix matches targets that begin with p.
func Prefix(p string) Match {
	return func(req *httpx.Request) bool { return strings.HasPrefix(req.Target, p) }
}

// All matches when every m matches.
func All(ms ...Match) Match {
	return func(req *httpx.Request) bool {
		for _, m := range ms {
			if !m(req) {
				return false
			}
		}
		return true
	}
}

// Always matches every request.
func Always(*httpx.Request) bool { return true }
