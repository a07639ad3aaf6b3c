package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cedrickchee/bitcask/internal/kvs"
	"github.com/cedrickchee/bitcask/internal/kvserr"
	"github.com/cedrickchee/bitcask/internal/protocol"
	"github.com/cedrickchee/bitcask/internal/server"
	"github.com/cedrickchee/bitcask/internal/threadpool"
)

func startServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()

	eng, err := kvs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("kvs.Open: %v", err)
	}
	pool := threadpool.NewNaivePool()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr = ln.Addr().String()
	ln.Close()

	srv := server.New(server.Config{Addr: addr}, eng, pool)
	go srv.Serve()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return addr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		pool.Close()
		eng.Close()
	}
}

func TestClient_SetGetRemove_EndToEnd(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	c1, err := Connect(addr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c1.Close()

	if err := c1.Set("foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c2, err := Connect(addr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c2.Close()

	value, ok, err := c2.Get("foo")
	if err != nil || !ok || value != "bar" {
		t.Fatalf("Get = %q, %v, %v, want bar, true, nil", value, ok, err)
	}

	if err := c2.Remove("foo"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	_, ok, err = c2.Get("foo")
	if err != nil || ok {
		t.Fatalf("Get after remove = _, %v, %v, want false, nil", ok, err)
	}
}

func TestClient_MismatchedResponseIsProtocolError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var req protocol.Request
		if err := protocol.ReadFrame(conn, &req); err != nil {
			return
		}
		// Respond with the wrong op tag for whatever request arrives.
		protocol.WriteResponse(conn, protocol.OpRemove, protocol.RemoveResponse{})
	}()

	c, err := Connect(ln.Addr().String())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	_, _, err = c.Get("k")
	if !kvserr.Is(err, kvserr.ProtocolError) {
		t.Fatalf("Get with mismatched response = %v, want ProtocolError", err)
	}
}
