package httpx

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"dqx0.com/go/faras/internal/obs"
)

// Handler produces the response for one request. It must not retain req
// after returning.
type Handler interface {
	ServeHTTP(req *Request) *Response
}

type HandlerFunc func(*Request) *Response

func (f HandlerFunc) ServeHTTP(req *Request) *Response {
	return f(req)
}

// Server accepts connections and serves exactly one request on each, in
// its own goroutine, then closes the connection.
type Server struct {
	Addr    string
	Handler Handler
	Logger  obs.Logger
	Meter   obs.Meter
	// ReadTimeout bounds reading the whole request. Zero means no limit.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing the response. Zero means no limit.
	WriteTimeout time.Duration

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    atomic.Bool
	conns     sync.WaitGroup
}

func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":4221"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop on l until the server is closed, in which
// case it returns ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	if !s.track(l) {
		l.Close()
		return ErrServerClosed
	}
	defer s.untrack(l)
	defer l.Close()
	s.logger().Logf(obs.Info, "listening on %s", l.Addr())

	var backoff time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.logger().Logf(obs.Warn, "accept: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		if !s.startConn() {
			c.Close()
			return ErrServerClosed
		}
		go s.serveConn(c)
	}
}

// Close stops all accept loops. Connections already accepted are served to
// completion.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed.Store(true)
	var err error
	for l := range s.listeners {
		if cerr := l.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
			err = cerr
		}
	}
	return err
}

// Shutdown closes the listeners and waits for in-flight connections to
// finish or for ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(l net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	if s.listeners == nil {
		s.listeners = make(map[net.Listener]struct{})
	}
	s.listeners[l] = struct{}{}
	return true
}

// startConn registers an accepted connection with the shutdown wait group.
// It reports false once Close has run, so Shutdown never waits on a
// counter that can still grow.
func (s *Server) startConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *Server) untrack(l net.Listener) {
	s.mu.Lock()
	delete(s.listeners, l)
	s.mu.Unlock()
}

func (s *Server) serveConn(c net.Conn) {
	defer s.conns.Done()
	defer c.Close()
	start := time.Now()
	id := genID()
	log := s.logger()

	if s.ReadTimeout > 0 {
		_ = c.SetReadDeadline(start.Add(s.ReadTimeout))
	}
	req, err := ReadRequest(c)
	if err != nil {
		// No response is written for a request that could not be read.
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			log.Logf(obs.Info, "req=%s peer=%s read timeout: %v", id, c.RemoteAddr(), err)
			s.meter().Counter("faras_read_timeouts_total", 1)
		case IsParseError(err):
			log.Logf(obs.Warn, "req=%s peer=%s read request: %v", id, c.RemoteAddr(), err)
			s.meter().Counter("faras_parse_errors_total", 1)
		default:
			log.Logf(obs.Warn, "req=%s peer=%s read: %v", id, c.RemoteAddr(), err)
		}
		return
	}
	req.RemoteAddr = c.RemoteAddr()
	req.RequestID = id

	res, ok := s.handle(req)
	if !ok {
		return
	}
	if s.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	if _, err := res.WriteTo(c); err != nil {
		log.Logf(obs.Warn, "req=%s peer=%s write response: %v", id, c.RemoteAddr(), err)
		return
	}

	elapsed := time.Since(start)
	log.Logf(obs.Info, "req=%s %s %s %d %dB %v", id, req.Method, req.Target, res.StatusCode, len(res.Body), elapsed)
	s.meter().Counter("faras_requests_total", 1,
		obs.Label{Key: "method", Value: req.Method},
		obs.Label{Key: "status", Value: strconv.Itoa(res.StatusCode)})
	s.meter().Histogram("faras_request_duration_seconds", elapsed.Seconds())
}

// handle runs the handler, isolating a panic to this connection.
func (s *Server) handle(req *Request) (res *Response, ok bool) {
	defer func() {
		if v := recover(); v != nil {
			s.logger().Logf(obs.Error, "req=%s handler panic: %v", req.RequestID, v)
			res, ok = nil, false
		}
	}()
	h := s.Handler
	if h == nil {
		h = HandlerFunc(func(*Request) *Response {
			res := NewResponse()
			res.Fail(404, "")
			return res
		})
	}
	res = h.ServeHTTP(req)
	if res == nil {
		s.logger().Logf(obs.Error, "req=%s handler returned no response", req.RequestID)
		res = NewResponse()
		res.Fail(500, "")
	}
	return res, true
}

func (s *Server) logger() obs.Logger {
	if s.Logger == nil {
		return obs.NopLogger{}
	}
	return s.Logger
}

func (s *Server) meter() obs.Meter {
	if s.Meter == nil {
		return obs.NopMeter{}
	}
	return s.Meter
}
