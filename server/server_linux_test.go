//go:build linux

package server_test

import (
	"bytes"
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-nio/client"
	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/server"
)

type servable interface {
	Serve(ctx context.Context) error
}

func serve(t *testing.T, s servable) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
}

func fixture(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(7)).Read(data)
	path := filepath.Join(t.TempDir(), "1.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestUploadWithAck(t *testing.T) {
	results := make(chan server.UploadResult, 1)
	srv, err := server.NewUploadServer("127.0.0.1:0", t.TempDir(),
		func(r server.UploadResult) { results <- r },
		server.WithAck(true), server.WithBufferSize(64))
	if err != nil {
		t.Fatal(err)
	}
	serve(t, srv)

	path, want := fixture(t, 5000)
	mr := control.NewMetricsRegistry()
	res, err := client.Upload(context.Background(), srv.Addr().String(), path,
		client.UploadOptions{WaitAck: true, BufferSize: 128, Metrics: mr})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bytes != int64(len(want)) {
		t.Fatalf("uploaded %d bytes, want %d", res.Bytes, len(want))
	}
	if res.Ack != server.AckMessage {
		t.Fatalf("ack = %q, want %q", res.Ack, server.AckMessage)
	}
	if got := mr.GetSnapshot()["hioload_nio_bytes_written_total"]; got != float64(len(want)) {
		t.Fatalf("bytes written metric = %v", got)
	}

	select {
	case r := <-results:
		got, err := os.ReadFile(r.Path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) || r.Bytes != int64(len(want)) {
			t.Fatalf("stored %d bytes, content equal %v", r.Bytes, bytes.Equal(got, want))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("upload not reported")
	}
}

func TestUploadWithoutAck(t *testing.T) {
	results := make(chan server.UploadResult, 2)
	srv, err := server.NewUploadServer("127.0.0.1:0", t.TempDir(),
		func(r server.UploadResult) { results <- r }, server.WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	serve(t, srv)

	path, want := fixture(t, 3000)
	for i := 0; i < 2; i++ {
		res, err := client.Upload(context.Background(), srv.Addr().String(), path, client.UploadOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Ack != "" {
			t.Fatalf("unexpected ack %q", res.Ack)
		}
	}
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Bytes != int64(len(want)) {
				t.Fatalf("stored %d bytes", r.Bytes)
			}
			seen[r.Path] = true
		case <-time.After(5 * time.Second):
			t.Fatal("upload not reported")
		}
	}
	if len(seen) != 2 {
		t.Fatalf("uploads share a file: %v", seen)
	}
}

type received struct {
	from net.Addr
	msg  string
}

func collect(ch chan received) server.MessageHandler {
	return func(from net.Addr, msg []byte) {
		ch <- received{from: from, msg: string(msg)}
	}
}

func await(t *testing.T, ch chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
	return received{}
}

func TestChatServer(t *testing.T) {
	msgs := make(chan received, 16)
	mr := control.NewMetricsRegistry()
	srv, err := server.NewChatServer("127.0.0.1:0", collect(msgs),
		server.WithMetrics(mr), server.WithSelectTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	serve(t, srv)

	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	cli, err := client.DialChat(client.ChatConfig{
		Addr:     srv.Addr().String(),
		Nickname: "alice",
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := cli.Send("hello"); err != nil {
		t.Fatal(err)
	}
	r := await(t, msgs)
	if want := "2024-05-01 12:30:00：\nalice：hello"; r.msg != want {
		t.Fatalf("message = %q, want %q", r.msg, want)
	}
	if r.from == nil {
		t.Fatal("missing sender")
	}
	cli.Close()

	deadline := time.Now().Add(5 * time.Second)
	for mr.GetSnapshot()["hioload_nio_connections_accepted_total"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("accept not counted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatServerManyClients(t *testing.T) {
	msgs := make(chan received, 16)
	srv, err := server.NewChatServer("127.0.0.1:0", collect(msgs))
	if err != nil {
		t.Fatal(err)
	}
	serve(t, srv)

	const clients = 3
	for i := 0; i < clients; i++ {
		cli, err := client.DialChat(client.ChatConfig{Addr: srv.Addr().String(), Nickname: "n"})
		if err != nil {
			t.Fatal(err)
		}
		defer cli.Close()
		if err := cli.Send("x"); err != nil {
			t.Fatal(err)
		}
	}
	senders := map[string]bool{}
	for i := 0; i < clients; i++ {
		senders[await(t, msgs).from.String()] = true
	}
	if len(senders) != clients {
		t.Fatalf("messages from %d senders, want %d", len(senders), clients)
	}
}

func TestDatagramReceiver(t *testing.T) {
	msgs := make(chan received, 16)
	recv, err := server.NewDatagramReceiver("127.0.0.1:0", collect(msgs))
	if err != nil {
		t.Fatal(err)
	}
	serve(t, recv)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	snd, err := client.NewDatagramSender(client.ChatConfig{
		Addr:     recv.Addr().String(),
		Nickname: "bob",
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer snd.Close()
	if err := snd.Send("hi"); err != nil {
		t.Fatal(err)
	}
	if r := await(t, msgs); r.msg != client.FormatMessage(now, "bob", "hi") {
		t.Fatalf("datagram = %q", r.msg)
	}
}
