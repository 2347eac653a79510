package httpx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"dqx0.com/go/faras/internal/obs"
)

func startServer(t *testing.T, h Handler, cfg func(*Server)) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{Handler: h}
	if cfg != nil {
		cfg(s)
	}
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		if err := <-errc; !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve returned %v, want ErrServerClosed", err)
		}
	})
	return s, ln.Addr().String()
}

// roundTrip writes raw to a fresh connection and returns everything the
// server sends before closing it.
func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	b, err := io.ReadAll(c)
	// A server that closes with unread input may reset the connection.
	if err != nil && !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestServer_OneRequestPerConnection(t *testing.T) {
	h := HandlerFunc(func(r *Request) *Response {
		res := NewResponse()
		res.Body = []byte(r.Method + " " + r.Target + " " + string(r.Body))
		return res
	})
	_, addr := startServer(t, h, nil)

	got := roundTrip(t, addr, "POST /x HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi")
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("response=%q", got)
	}
	if !strings.Contains(got, "\r\nContent-Length: 10\r\n") || !strings.HasSuffix(got, "\r\n\r\nPOST /x hi") {
		t.Fatalf("response=%q", got)
	}
}

func TestServer_RemoteAddrAndID(t *testing.T) {
	var mu sync.Mutex
	var ip, id string
	h := HandlerFunc(func(r *Request) *Response {
		mu.Lock()
		ip, id = r.RemoteIP(), r.RequestID
		mu.Unlock()
		return NewResponse()
	})
	_, addr := startServer(t, h, nil)
	roundTrip(t, addr, "GET /ip HTTP/1.1\r\n\r\n")
	mu.Lock()
	defer mu.Unlock()
	if ip != "127.0.0.1" {
		t.Fatalf("RemoteIP=%q", ip)
	}
	if len(id) != 32 {
		t.Fatalf("RequestID=%q", id)
	}
}

func TestServer_ParseFailureClosesWithoutResponse(t *testing.T) {
	called := make(chan struct{}, 1)
	h := HandlerFunc(func(r *Request) *Response {
		called <- struct{}{}
		return NewResponse()
	})
	m := &recordingMeter{}
	_, addr := startServer(t, h, func(s *Server) { s.Meter = m })

	for _, raw := range []string{
		"GARBAGE\r\n\r\n",
		"GET / HTTP/1.1\r\nHost: x\r\n",
		"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc",
	} {
		if got := roundTrip(t, addr, raw); got != "" {
			t.Fatalf("request %q got response %q", raw, got)
		}
	}
	select {
	case <-called:
		t.Fatal("handler ran for an unparseable request")
	default:
	}
	if n := m.count("faras_parse_errors_total"); n != 3 {
		t.Fatalf("parse errors counted = %v", n)
	}
}

func TestServer_PanicIsolated(t *testing.T) {
	h := HandlerFunc(func(r *Request) *Response {
		if r.Target == "/boom" {
			panic("boom")
		}
		return NewResponse()
	})
	_, addr := startServer(t, h, nil)
	if got := roundTrip(t, addr, "GET /boom HTTP/1.1\r\n\r\n"); got != "" {
		t.Fatalf("panic response=%q", got)
	}
	if got := roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n"); !strings.HasPrefix(got, "HTTP/1.1 200 OK") {
		t.Fatalf("server stopped serving after panic: %q", got)
	}
}

func TestServer_DefaultHandlerAndNilResponse(t *testing.T) {
	_, addr := startServer(t, nil, nil)
	if got := roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n"); !strings.HasPrefix(got, "HTTP/1.1 404 Not Found") {
		t.Fatalf("default handler response=%q", got)
	}
	_, addr = startServer(t, HandlerFunc(func(*Request) *Response { return nil }), nil)
	if got := roundTrip(t, addr, "GET / HTTP/1.1\r\n\r\n"); !strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error") {
		t.Fatalf("nil response=%q", got)
	}
}

func TestServer_ReadTimeout(t *testing.T) {
	m := &recordingMeter{}
	_, addr := startServer(t, HandlerFunc(func(*Request) *Response { return NewResponse() }), func(s *Server) {
		s.ReadTimeout = 50 * time.Millisecond
		s.Meter = m
	})
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	io.WriteString(c, "GET / HTTP/1.1\r\n")
	n, err := bufio.NewReader(c).Read(make([]byte, 1))
	if n != 0 || err == nil {
		t.Fatalf("expected closed connection, got n=%d err=%v", n, err)
	}
	// A stalled peer is a timeout, not a malformed request.
	if m.count("faras_read_timeouts_total") != 1 || m.count("faras_parse_errors_total") != 0 {
		t.Fatalf("timeouts=%v parse errors=%v", m.count("faras_read_timeouts_total"), m.count("faras_parse_errors_total"))
	}
}

func TestServer_ShutdownWaitsForInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := HandlerFunc(func(*Request) *Response {
		close(entered)
		<-release
		res := NewResponse()
		res.Body = []byte("late")
		return res
	})
	s, addr := startServer(t, h, nil)

	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c, "GET / HTTP/1.1\r\n\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-entered

	shut := make(chan error, 1)
	go func() { shut <- s.Shutdown(context.Background()) }()
	select {
	case err := <-shut:
		t.Fatalf("Shutdown returned %v with a request in flight", err)
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	if err := <-shut; err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	body, err := io.ReadAll(c)
	if err != nil || !strings.HasSuffix(string(body), "\r\n\r\nlate") {
		t.Fatalf("in-flight response=%q err=%v", body, err)
	}
}

func TestServer_ShutdownDeadline(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	s, addr := startServer(t, HandlerFunc(func(*Request) *Response {
		close(entered)
		<-release
		return NewResponse()
	}), nil)
	go func() {
		c, err := net.Dial("tcp", addr)
		if err == nil {
			io.WriteString(c, "GET / HTTP/1.1\r\n\r\n")
			<-release
			c.Close()
		}
	}()
	<-entered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown=%v, want deadline exceeded", err)
	}
}

func TestServer_AccessLogAndMetrics(t *testing.T) {
	lg := &recordingLogger{}
	m := &recordingMeter{}
	_, addr := startServer(t, HandlerFunc(func(*Request) *Response { return NewResponse() }), func(s *Server) {
		s.Logger = lg
		s.Meter = m
	})
	roundTrip(t, addr, "GET /hello HTTP/1.1\r\n\r\n")
	// The access line is logged after the write; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for m.count("faras_requests_total") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.count("faras_requests_total") != 1 {
		t.Fatal("request not counted")
	}
	if !lg.contains("GET /hello 200") {
		t.Fatalf("access line missing: %q", lg.lines())
	}
}

func TestServer_ServeAfterClose(t *testing.T) {
	s := &Server{}
	s.Close()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := s.Serve(ln); !errors.Is(err, ErrServerClosed) {
		t.Fatalf("Serve after Close = %v", err)
	}
}

type recordingMeter struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (m *recordingMeter) Counter(name string, value float64, labels ...obs.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]float64{}
	}
	m.counts[name] += value
}

func (m *recordingMeter) Histogram(name string, value float64, labels ...obs.Label) {}

func (m *recordingMeter) count(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

type recordingLogger struct {
	mu  sync.Mutex
	buf []string
}

func (l *recordingLogger) Logf(level obs.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, level.String()+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.buf...)
}

func (l *recordingLogger) contains(s string) bool {
	for _, line := range l.lines() {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
