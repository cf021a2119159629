//go:build linux

package socket_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/socket"
)

func listen(t *testing.T) *socket.ServerSocketChannel {
	t.Helper()
	s, err := socket.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStreamRoundTrip(t *testing.T) {
	srv := listen(t)
	addr := srv.LocalAddr().String()

	accepted := make(chan *socket.SocketChannel, 1)
	go func() {
		c, err := srv.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			close(accepted)
			return
		}
		accepted <- c
	}()

	cli, err := socket.Dial(addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()
	if !cli.IsConnected() {
		t.Fatal("Dial returned an unconnected channel")
	}

	peer := <-accepted
	if peer == nil {
		t.FailNow()
	}
	defer peer.Close()

	out := buffer.MustAllocate(16)
	_ = out.PutString("hello")
	out.Flip()
	if n, err := cli.Write(out); n != 5 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := cli.ShutdownOutput(); err != nil {
		t.Fatal(err)
	}

	in := buffer.MustAllocate(16)
	for {
		_, err := peer.Read(in)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	in.Flip()
	if string(in.Bytes()) != "hello" {
		t.Fatalf("received %q", in.Bytes())
	}
	if peer.RemoteAddr() == nil || cli.LocalAddr() == nil {
		t.Fatal("missing endpoint addresses")
	}
}

func TestNonBlockingAccept(t *testing.T) {
	srv := listen(t)
	if err := srv.ConfigureBlocking(false); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Accept with nothing pending = %v, want ErrWouldBlock", err)
	}

	cli, err := socket.Dial(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer cli.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err := srv.Accept()
		if err == nil {
			c.Close()
			return
		}
		if !errors.Is(err, api.ErrWouldBlock) || time.Now().After(deadline) {
			t.Fatalf("Accept: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNonBlockingReadWouldBlock(t *testing.T) {
	srv := listen(t)
	cli, err := socket.Dial(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer cli.Close()
	peer, err := srv.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	if err := peer.ConfigureBlocking(false); err != nil {
		t.Fatal(err)
	}
	if peer.IsBlocking() {
		t.Fatal("IsBlocking() = true after ConfigureBlocking(false)")
	}
	if _, err := peer.Read(buffer.MustAllocate(4)); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Read = %v, want ErrWouldBlock", err)
	}
}

func TestNonBlockingConnect(t *testing.T) {
	srv := listen(t)
	c, err := socket.OpenSocket()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.ConfigureBlocking(false); err != nil {
		t.Fatal(err)
	}
	done, err := c.Connect(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !done {
		if !c.IsConnectionPending() {
			t.Fatal("connect neither done nor pending")
		}
		if time.Now().After(deadline) {
			t.Fatal("connect did not finish")
		}
		time.Sleep(5 * time.Millisecond)
		if done, err = c.FinishConnect(); err != nil {
			t.Fatal(err)
		}
	}
	if !c.IsConnected() {
		t.Fatal("IsConnected() = false")
	}
}

func TestConnectRefused(t *testing.T) {
	srv, err := socket.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	addr := srv.LocalAddr().String()
	srv.Close()
	if _, err := socket.Dial(addr); err == nil {
		t.Fatal("Dial to a closed port succeeded")
	}
}

func TestUnconnectedRead(t *testing.T) {
	c, err := socket.OpenSocket()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Read(buffer.MustAllocate(1)); !errors.Is(err, api.ErrNotConnected) {
		t.Fatalf("Read = %v, want ErrNotConnected", err)
	}
	if c.FD() != -1 {
		t.Fatalf("FD() = %d before connect", c.FD())
	}
}

func TestCloseWakesAccept(t *testing.T) {
	srv, err := socket.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() {
		_, err := srv.Accept()
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	srv.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, api.ErrClosed) {
			t.Fatalf("Accept after Close = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Accept still blocked after Close")
	}
}

func TestDatagram(t *testing.T) {
	recv, err := socket.OpenDatagram()
	if err != nil {
		t.Fatal(err)
	}
	defer recv.Close()
	if err := recv.Bind("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}

	send, err := socket.OpenDatagram()
	if err != nil {
		t.Fatal(err)
	}
	defer send.Close()

	out := buffer.MustAllocate(32)
	_ = out.PutString("ping")
	out.Flip()
	if n, err := send.Send(out, recv.LocalAddr().String()); n != 4 || err != nil {
		t.Fatalf("Send = %d, %v", n, err)
	}
	if out.HasRemaining() {
		t.Fatal("Send did not consume the buffer")
	}

	in := buffer.MustAllocate(2)
	from, err := recv.Receive(in)
	if err != nil {
		t.Fatal(err)
	}
	if from == nil {
		t.Fatal("missing sender address")
	}
	in.Flip()
	if string(in.Bytes()) != "pi" {
		t.Fatalf("truncated datagram = %q, want %q", in.Bytes(), "pi")
	}

	if err := recv.ConfigureBlocking(false); err != nil {
		t.Fatal(err)
	}
	in.Clear()
	if _, err := recv.Receive(in); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Receive on empty queue = %v, want ErrWouldBlock", err)
	}
}

func TestBadAddress(t *testing.T) {
	if _, err := socket.Listen("not-an-address", 0); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestShutdownInputAndNoDelay(t *testing.T) {
	srv := listen(t)
	accepted := make(chan *socket.SocketChannel, 1)
	go func() {
		c, _ := srv.Accept()
		accepted <- c
	}()

	cli, err := socket.Dial(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer cli.Close()
	peer := <-accepted
	if peer == nil {
		t.Fatal("Accept failed")
	}
	defer peer.Close()

	if err := cli.SetNoDelay(true); err != nil {
		t.Fatalf("SetNoDelay: %v", err)
	}
	if err := peer.ShutdownInput(); err != nil {
		t.Fatalf("ShutdownInput: %v", err)
	}
	if _, err := peer.Read(buffer.MustAllocate(8)); err != io.EOF {
		t.Fatalf("Read after ShutdownInput = %v, want io.EOF", err)
	}

	unopened, _ := socket.OpenSocket()
	defer unopened.Close()
	if err := unopened.SetNoDelay(true); !errors.Is(err, api.ErrNotConnected) {
		t.Fatalf("SetNoDelay before connect = %v, want ErrNotConnected", err)
	}
	if err := unopened.ShutdownInput(); !errors.Is(err, api.ErrNotConnected) {
		t.Fatalf("ShutdownInput before connect = %v, want ErrNotConnected", err)
	}
}
