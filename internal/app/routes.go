package app

import (
	"errors"
	"fmt"
	"strings"

	"dqx0.com/go/faras/httpx"
	"dqx0.com/go/faras/internal/filestore"
	"dqx0.com/go/faras/internal/obs"
)

// New returns a Router with the standard route table, serving files from
// store. A POST to a path other than /files gets the default 200 response
// with an empty body.
func New(store filestore.Store, logger obs.Logger) *Router {
	var (
		get  = Method("GET")
		post = Method("POST")
	)
	f := files{store: store}
	return &Router{
		Logger: logger,
		Routes: []Route{
			{Name: "root", Match: All(get, Path("/")), Serve: hello},
			{Name: "echo", Match: All(get, Prefix("/echo")), Serve: echo},
			{Name: "user-agent", Match: All(get, PathFold("/user-agent")), Serve: userAgent},
			{Name: "ip", Match: All(get, PathFold("/ip")), Serve: remoteIP},
			{Name: "files-read", Match: All(get, Prefix("/files")), Serve: f.read},
			{Name: "get-not-found", Match: get, Serve: notFound},
			{Name: "files-write", Match: All(post, Prefix("/files")), Serve: f.write},
			{Name: "post-default", Match: post, Serve: keepDefault},
			{Name: "method-not-allowed", Match: Always, Serve: methodNotAllowed},
		},
	}
}

func hello(_ *httpx.Request, res *httpx.Response) error {
	res.Body = []byte("Hello, World!")
	return nil
}

// echo returns the target after "/echo/", undecoded. A target without that
// prefix is echoed whole.
func echo(req *httpx.Request, res *httpx.Response) error {
	res.Body = []byte(strings.TrimPrefix(req.Target, "/echo/"))
	return nil
}

func userAgent(req *httpx.Request, res *httpx.Response) error {
	if !req.Header.Has("User-Agent") {
		return httpx.Errorf(400, "missing User-Agent header")
	}
	res.Body = []byte(strings.Join(req.Header.Values("User-Agent"), ", "))
	return nil
}

func remoteIP(req *httpx.Request, res *httpx.Response) error {
	ip := req.RemoteIP()
	if ip == "" {
		return fmt.Errorf("no remote address for request %s", req.RequestID)
	}
	res.Body = []byte(ip)
	return nil
}

func notFound(_ *httpx.Request, res *httpx.Response) error {
	res.Fail(404, "")
	return nil
}

// keepDefault leaves the response untouched.
func keepDefault(*httpx.Request, *httpx.Response) error { return nil }

func methodNotAllowed(_ *httpx.Request, res *httpx.Response) error {
	res.Fail(405, "")
	return nil
}

var errNoStore = errors.New("no file store configured")

type files struct {
	store filestore.Store
}

func fileName(target string) string {
	return strings.TrimPrefix(target, "/files/")
}

// read answers 404 for every failure, including invalid names and
// unexpected I/O errors.
func (f files) read(req *httpx.Request, res *httpx.Response) error {
	res.Header.Set("Content-Type", "application/octet-stream")
	if f.store == nil {
		res.Fail(404, "")
		return nil
	}
	b, err := f.store.Read(fileName(req.Target))
	if err != nil {
		res.Fail(404, "")
		return nil
	}
	res.Body = b
	return nil
}

func (f files) write(req *httpx.Request, res *httpx.Response) error {
	if f.store == nil {
		return errNoStore
	}
	name := fileName(req.Target)
	if err := f.store.Write(name, req.Body); err != nil {
		if errors.Is(err, filestore.ErrInvalidName) {
			return &httpx.StatusError{Code: 400, Reason: httpx.StatusText(400), Err: err}
		}
		return fmt.Errorf("write %q: %w", name, err)
	}
	res.SetStatus(201)
	return nil
}
