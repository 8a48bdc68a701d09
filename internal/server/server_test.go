package server

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jassi-singh/toycask/internal/client"
	"github.com/jassi-singh/toycask/internal/engine"
	"github.com/jassi-singh/toycask/internal/kvserr"
	"github.com/jassi-singh/toycask/internal/threadpool"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	e, err := engine.Open(t.TempDir(), engine.DefaultCompactionThreshold)
	if err != nil {
		t.Fatalf("engine.Open() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })

	pool, err := threadpool.NaiveNew(0)
	if err != nil {
		t.Fatalf("threadpool.NaiveNew() error = %v", err)
	}
	t.Cleanup(pool.Release)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := ln.Addr().String()

	srv := New(e, pool)
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	return addr
}

func TestServer_SetGetRemoveRoundTrip(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	defer c.Close()

	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || *got != "v" {
		t.Fatalf("Get() = %v, want v", got)
	}

	if err := c.Remove("k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	got, err = c.Get("k")
	if err != nil {
		t.Fatalf("Get() after Remove error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() after Remove = %v, want nil", got)
	}
}

func TestServer_RemoveMissingKeyReturnsServerError(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	defer c.Close()

	err = c.Remove("nope")
	if err == nil {
		t.Fatal("Remove() error = nil, want server error")
	}
	if !errors.Is(err, kvserr.ErrKeyNotFound) {
		t.Errorf("Remove() error = %q, want message %q", err, kvserr.ErrKeyNotFound)
	}
}

func TestServer_MultipleConnectionsConcurrently(t *testing.T) {
	addr := startTestServer(t)

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			c, err := client.Connect(addr)
			if err != nil {
				done <- err
				return
			}
			defer c.Close()
			key := "k"
			if err := c.Set(key, "v"); err != nil {
				done <- err
				return
			}
			if _, err := c.Get(key); err != nil {
				done <- err
				return
			}
			done <- nil
		}(i)
	}

	for i := 0; i < 10; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("client round trip error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for concurrent clients")
		}
	}
}
