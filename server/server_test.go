package server_test

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/server"
)

// echoHandler answers every request with "echo:<target>" and, for requests
// with a body, appends ":<body>".
var echoHandler = api.HandlerFunc(func(req *protocol.Request) *protocol.Response {
	body, _ := io.ReadAll(req.Body)
	text := "echo:" + req.Target
	if len(body) > 0 {
		text += ":" + string(body)
	}
	return protocol.NewResponse(protocol.StatusOK).SetBodyString(text)
})

func startServer(t *testing.T, cfg *server.Config, h api.Handler) *server.Server {
	t.Helper()
	if cfg == nil {
		cfg = server.DefaultConfig()
	}
	cfg.Addr = "127.0.0.1:0"
	srv := server.New(cfg, h)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = srv.Shutdown() })
	return srv
}

func dial(t *testing.T, srv *server.Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readResponse parses one fixed-length response off br.
func readResponse(t *testing.T, br *bufio.Reader) (status int, header map[string]string, body string) {
	t.Helper()
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(parts) < 2 {
		t.Fatalf("bad status line %q", line)
	}
	status, err = strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("bad status code in %q", line)
	}

	header = make(map[string]string)
	for {
		line, err = br.ReadString('\n')
		if err != nil {
			t.Fatalf("read header: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if idx := strings.IndexByte(line, ':'); idx > 0 {
			header[strings.ToLower(line[:idx])] = strings.TrimSpace(line[idx+1:])
		}
	}

	if cl := header["content-length"]; cl != "" && cl != "0" {
		n, err := strconv.Atoi(cl)
		if err != nil {
			t.Fatalf("bad content-length %q", cl)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			t.Fatalf("read body: %v", err)
		}
		body = string(buf)
	}
	return status, header, body
}

func TestKeepAliveServesSequentialRequests(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()
	br := bufio.NewReader(conn)

	for i := 0; i < 3; i++ {
		target := fmt.Sprintf("/req%d", i)
		fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\n\r\n", target)
		status, header, body := readResponse(t, br)
		if status != 200 {
			t.Fatalf("request %d: status = %d", i, status)
		}
		if header["connection"] != "keep-alive" {
			t.Fatalf("request %d: connection = %q", i, header["connection"])
		}
		if body != "echo:"+target {
			t.Fatalf("request %d: body = %q", i, body)
		}
	}
}

func TestPipelinedResponsesPreserveOrder(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()

	const n = 5
	var burst strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&burst, "GET /p%d HTTP/1.1\r\nHost: test\r\n\r\n", i)
	}
	// One write, no waiting for responses in between.
	if _, err := conn.Write([]byte(burst.String())); err != nil {
		t.Fatal(err)
	}

	br := bufio.NewReader(conn)
	for i := 0; i < n; i++ {
		status, _, body := readResponse(t, br)
		if status != 200 {
			t.Fatalf("response %d: status = %d", i, status)
		}
		if want := fmt.Sprintf("echo:/p%d", i); body != want {
			t.Fatalf("response %d arrived out of order: %q, want %q", i, body, want)
		}
	}
}

func TestMissingVersionYields400AndClose(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()

	// Pipelined bytes after the malformed line must never be parsed.
	fmt.Fprintf(conn, "GET /\r\n\r\nGET /next HTTP/1.1\r\nHost: test\r\n\r\n")
	br := bufio.NewReader(conn)
	status, header, _ := readResponse(t, br)
	if status != 400 {
		t.Fatalf("status = %d, want 400", status)
	}
	if header["connection"] != "close" {
		t.Fatalf("connection = %q, want close", header["connection"])
	}
	if _, err := br.ReadByte(); err != io.EOF {
		t.Fatalf("expected closed connection, read err = %v", err)
	}
}

func TestUnsupportedVersionYields501(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()

	fmt.Fprintf(conn, "GET / HTTP/3.0\r\nHost: test\r\n\r\n")
	status, _, _ := readResponse(t, bufio.NewReader(conn))
	if status != 501 {
		t.Fatalf("status = %d, want 501", status)
	}
}

func TestChunkedRequestBodyReachesHandler(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()

	fmt.Fprintf(conn, "POST /up HTTP/1.1\r\nHost: test\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n")
	status, _, body := readResponse(t, bufio.NewReader(conn))
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body != "echo:/up:Wikipedia" {
		t.Fatalf("body = %q", body)
	}
}

func TestHTTP10ClosesByDefault(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()

	fmt.Fprintf(conn, "GET /old HTTP/1.0\r\n\r\n")
	br := bufio.NewReader(conn)
	status, header, _ := readResponse(t, br)
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if header["connection"] != "close" {
		t.Fatalf("connection = %q, want close", header["connection"])
	}
	if _, err := br.ReadByte(); err != io.EOF {
		t.Fatalf("HTTP/1.0 connection should close, read err = %v", err)
	}
}

func TestHeadResponseHasNoBody(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()
	br := bufio.NewReader(conn)

	fmt.Fprintf(conn, "HEAD /h HTTP/1.1\r\nHost: test\r\n\r\n")
	line, err := br.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "HTTP/1.1 200") {
		t.Fatalf("status line %q, err %v", line, err)
	}
	var contentLength string
	for {
		line, err = br.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			contentLength = strings.TrimSpace(line[len("content-length:"):])
		}
	}
	if contentLength != "7" { // len("echo:/h")
		t.Fatalf("content-length = %q, want 7", contentLength)
	}

	// The stream must be aligned for the next request despite the declared
	// but absent body.
	fmt.Fprintf(conn, "GET /after HTTP/1.1\r\nHost: test\r\n\r\n")
	status, _, body := readResponse(t, br)
	if status != 200 || body != "echo:/after" {
		t.Fatalf("follow-up request broken: status %d body %q", status, body)
	}
}

func TestExpectContinueInterimResponse(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()
	br := bufio.NewReader(conn)

	fmt.Fprintf(conn, "POST /c HTTP/1.1\r\nHost: test\r\nExpect: 100-continue\r\nContent-Length: 2\r\n\r\n")
	line, err := br.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "HTTP/1.1 100") {
		t.Fatalf("interim line %q, err %v", line, err)
	}
	if line, err = br.ReadString('\n'); err != nil || line != "\r\n" {
		t.Fatalf("interim terminator %q, err %v", line, err)
	}

	fmt.Fprintf(conn, "ok")
	status, _, body := readResponse(t, br)
	if status != 200 || body != "echo:/c:ok" {
		t.Fatalf("status %d body %q", status, body)
	}
}

func TestIdleConnectionReaped(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.IdleTimeout = 100 * time.Millisecond
	cfg.ReapInterval = 20 * time.Millisecond
	srv := startServer(t, cfg, echoHandler)

	conn := dial(t, srv)
	defer conn.Close()
	br := bufio.NewReader(conn)

	fmt.Fprintf(conn, "GET /one HTTP/1.1\r\nHost: test\r\n\r\n")
	if status, _, _ := readResponse(t, br); status != 200 {
		t.Fatal("first request failed")
	}

	// Sit idle past the timeout; the reaper closes us with no bytes sent.
	_, err := br.ReadByte()
	if err != io.EOF {
		t.Fatalf("expected silent close by reaper, got %v", err)
	}
	if srv.Metrics().Reaped.Load() == 0 {
		t.Error("reaped counter should have advanced")
	}
}

func TestSaturationRefusedWith503(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.PoolSize = 1
	cfg.QueueCapacity = 1
	cfg.BlockOnSaturation = false

	gate := make(chan struct{})
	entered := make(chan struct{})
	blocking := api.HandlerFunc(func(req *protocol.Request) *protocol.Response {
		close(entered)
		<-gate
		return protocol.NewResponse(protocol.StatusOK)
	})
	srv := startServer(t, cfg, blocking)

	// Occupy the single worker.
	conn1 := dial(t, srv)
	defer conn1.Close()
	fmt.Fprintf(conn1, "GET /1 HTTP/1.1\r\nHost: test\r\n\r\n")
	<-entered

	// Fill the single queue slot.
	conn2 := dial(t, srv)
	defer conn2.Close()
	time.Sleep(100 * time.Millisecond)

	// Next admission must be refused.
	conn3 := dial(t, srv)
	defer conn3.Close()
	status, header, _ := readResponse(t, bufio.NewReader(conn3))
	if status != 503 {
		t.Fatalf("status = %d, want 503", status)
	}
	if header["connection"] != "close" {
		t.Fatalf("connection = %q, want close", header["connection"])
	}

	close(gate)
	if status, _, _ := readResponse(t, bufio.NewReader(conn1)); status != 200 {
		t.Fatalf("blocked request finished with %d", status)
	}
	if srv.Metrics().Rejected.Load() == 0 {
		t.Error("rejected counter should have advanced")
	}
}

func TestHandlerPanicIsolatedToConnection(t *testing.T) {
	panicky := api.HandlerFunc(func(req *protocol.Request) *protocol.Response {
		if req.Target == "/boom" {
			panic("handler exploded")
		}
		return protocol.NewResponse(protocol.StatusOK).SetBodyString("fine")
	})
	srv := startServer(t, nil, panicky)

	bad := dial(t, srv)
	defer bad.Close()
	fmt.Fprintf(bad, "GET /boom HTTP/1.1\r\nHost: test\r\n\r\n")
	// The panicking connection just dies.
	if _, err := bufio.NewReader(bad).ReadByte(); err == nil {
		t.Fatal("expected the panicking connection to be closed")
	}

	// Other connections keep working.
	good := dial(t, srv)
	defer good.Close()
	fmt.Fprintf(good, "GET /ok HTTP/1.1\r\nHost: test\r\n\r\n")
	status, _, body := readResponse(t, bufio.NewReader(good))
	if status != 200 || body != "fine" {
		t.Fatalf("healthy connection broken after peer panic: %d %q", status, body)
	}
}

func TestShutdownIsGracefulAndIdempotent(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.ShutdownTimeout = 5 * time.Second
	srv := startServer(t, cfg, echoHandler)

	conn := dial(t, srv)
	defer conn.Close()
	fmt.Fprintf(conn, "GET /x HTTP/1.1\r\nHost: test\r\n\r\n")
	if status, _, _ := readResponse(t, bufio.NewReader(conn)); status != 200 {
		t.Fatal("request before shutdown failed")
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := srv.Shutdown(); err != api.ErrServerClosed {
		t.Fatalf("second shutdown err = %v, want ErrServerClosed", err)
	}
	if _, err := net.Dial("tcp", srv.Addr().String()); err == nil {
		t.Error("listener should be closed after shutdown")
	}
}

func TestMetricsTrackRequests(t *testing.T) {
	srv := startServer(t, nil, echoHandler)
	conn := dial(t, srv)
	defer conn.Close()
	br := bufio.NewReader(conn)

	for i := 0; i < 2; i++ {
		fmt.Fprintf(conn, "GET /m HTTP/1.1\r\nHost: test\r\n\r\n")
		readResponse(t, br)
	}

	snap := srv.Metrics().Snapshot()
	if snap["accepted"] != 1 {
		t.Errorf("accepted = %d, want 1", snap["accepted"])
	}
	if snap["requests"] != 2 {
		t.Errorf("requests = %d, want 2", snap["requests"])
	}
	if snap["keepalive_reuses"] != 1 {
		t.Errorf("keepalive_reuses = %d, want 1", snap["keepalive_reuses"])
	}
}
