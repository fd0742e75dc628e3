package main

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/sliplink/internal/config"
	"github.com/danmuck/sliplink/internal/protocol/slip"
	"github.com/danmuck/sliplink/internal/testutil/testlog"
)

func listenOnce(t *testing.T) (string, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			ch <- c
		}
	}()
	return ln.Addr().String(), ch
}

func testConfig(dial string) config.Config {
	cfg := config.DefaultConfig()
	cfg.StatusAddr = "127.0.0.1:0"
	cfg.MaxFrameBytes = 1500
	cfg.Links = []config.LinkConfig{{Peer: "10.0.0.2", Dial: dial}}
	return cfg
}

func TestAppSendsAndServesUntilCancelled(t *testing.T) {
	testlog.Start(t)
	addr, accepted := listenOnce(t)
	cfg := testConfig(addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	streams, err := openStreams(ctx, cfg)
	if err != nil {
		t.Fatalf("open streams: %v", err)
	}
	a, err := newApp(cfg, streams)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	var peer net.Conn
	select {
	case peer = <-accepted:
	case <-ctx.Done():
		t.Fatalf("dial never reached listener")
	}
	defer peer.Close()

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.serve(serveCtx) }()

	if err := a.layer.Send([]byte("ping"), "10.0.0.2"); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := slip.Encode([]byte("ping"))
	got := make([]byte, len(want))
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(peer, got); err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("unexpected wire bytes: % x", got)
	}

	if _, err := peer.Write(slip.Encode([]byte("pong"))); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		l, _ := a.layer.Link("10.0.0.2")
		if l.Stats().FramesReceived == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("datagram never decoded: %+v", l.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestAppStopsWhenPeerHangsUp(t *testing.T) {
	testlog.Start(t)
	addr, accepted := listenOnce(t)
	cfg := testConfig(addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	streams, err := openStreams(ctx, cfg)
	if err != nil {
		t.Fatalf("open streams: %v", err)
	}
	a, err := newApp(cfg, streams)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	(<-accepted).Close()

	err = a.serve(ctx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected link failure, got %v", err)
	}
}

func TestOpenStreamsFailsFast(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig("")
	cfg.Links = []config.LinkConfig{{Peer: "10.0.0.3", Device: "/nonexistent/tty", Baud: 9600}}
	if _, err := openStreams(context.Background(), cfg); err == nil {
		t.Fatalf("expected missing device to fail")
	}
}
