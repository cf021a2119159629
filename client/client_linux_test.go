//go:build linux

package client_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/client"
	"github.com/momentics/hioload-nio/socket"
)

var epoch = time.Date(2020, 2, 2, 2, 2, 2, 0, time.UTC)

func clock() time.Time { return epoch }

func TestChatRunStopsAtQuit(t *testing.T) {
	ln, err := socket.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cli, err := client.DialChat(client.ChatConfig{Addr: ln.LocalAddr().String(), Nickname: "me", Clock: clock})
	if err != nil {
		t.Fatal(err)
	}
	peer, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	input := "one\ntwo\nquit\nthree\n"
	if err := cli.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	cli.Close()

	var got []byte
	buf := buffer.MustAllocate(64)
	for {
		_, err := peer.Read(buf)
		buf.Flip()
		got = append(got, buf.Bytes()...)
		buf.Clear()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	want := client.FormatMessage(epoch, "me", "one") + client.FormatMessage(epoch, "me", "two")
	if string(got) != want {
		t.Fatalf("server read %q, want %q", got, want)
	}
}

func TestChatSendLongMessage(t *testing.T) {
	ln, err := socket.Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	cli, err := client.DialChat(client.ChatConfig{Addr: ln.LocalAddr().String(), Nickname: "me", BufferSize: 8, Clock: clock})
	if err != nil {
		t.Fatal(err)
	}
	peer, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	long := strings.Repeat("z", 200_000)
	errc := make(chan error, 1)
	go func() {
		errc <- cli.Send(long)
		cli.Close()
	}()

	total := 0
	buf := buffer.MustAllocate(4096)
	for {
		n, err := peer.Read(buf)
		total += n
		buf.Clear()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if want := len(client.FormatMessage(epoch, "me", long)); total != want {
		t.Fatalf("received %d bytes, want %d", total, want)
	}
}

func TestDatagramRunWords(t *testing.T) {
	recv, err := socket.OpenDatagram()
	if err != nil {
		t.Fatal(err)
	}
	defer recv.Close()
	if err := recv.Bind("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}

	snd, err := client.NewDatagramSender(client.ChatConfig{Addr: recv.LocalAddr().String(), Nickname: "u", Clock: clock})
	if err != nil {
		t.Fatal(err)
	}
	defer snd.Close()
	if err := snd.Run(context.Background(), strings.NewReader("a b QUIT c")); err != nil {
		t.Fatal(err)
	}

	buf := buffer.MustAllocate(256)
	for _, word := range []string{"a", "b"} {
		if _, err := recv.Receive(buf); err != nil {
			t.Fatal(err)
		}
		buf.Flip()
		if got, want := string(buf.Bytes()), client.FormatMessage(epoch, "u", word); got != want {
			t.Fatalf("datagram = %q, want %q", got, want)
		}
		buf.Clear()
	}
	if err := recv.ConfigureBlocking(false); err != nil {
		t.Fatal(err)
	}
	if _, err := recv.Receive(buf); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("words after quit were sent: %v", err)
	}
}

func TestDatagramOverflow(t *testing.T) {
	snd, err := client.NewDatagramSender(client.ChatConfig{Addr: "127.0.0.1:9", Nickname: "u", BufferSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer snd.Close()
	if err := snd.Send("too long"); !errors.Is(err, api.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	_, err := client.Upload(context.Background(), "127.0.0.1:1", "/no/such/file", client.UploadOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
}
