package channel_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/channel"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeFixture(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(42)).Read(data)
	path := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestCopyModes(t *testing.T) {
	modes := []channel.CopyMode{channel.CopyBufferedMode, channel.CopyTransferMode}
	if runtime.GOOS == "linux" {
		modes = append(modes, channel.CopyMappedMode)
	}
	for _, size := range []int{0, 1, 1023, 1024, 100_000} {
		src, want := writeFixture(t, size)
		for _, mode := range modes {
			dst := filepath.Join(t.TempDir(), "dst.bin")
			res, err := channel.CopyFile(context.Background(), mode, dst, src, 1024)
			if err != nil {
				t.Fatalf("%s copy of %d bytes: %v", mode, size, err)
			}
			if res.Bytes != int64(size) {
				t.Errorf("%s copy reported %d bytes, want %d", mode, res.Bytes, size)
			}
			got, err := os.ReadFile(dst)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("%s copy of %d bytes produced different content", mode, size)
			}
		}
	}
}

func TestCopyBufferedCancelled(t *testing.T) {
	src, _ := writeFixture(t, 4096)
	in, err := channel.OpenRead(src)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	out, err := channel.Create(filepath.Join(t.TempDir(), "dst.bin"))
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = channel.CopyBuffered(ctx, out, in, buffer.MustAllocate(16))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseCopyMode(t *testing.T) {
	cases := map[string]channel.CopyMode{
		"buffered": channel.CopyBufferedMode,
		"MMAP":     channel.CopyMappedMode,
		"transfer": channel.CopyTransferMode,
	}
	for in, want := range cases {
		got, err := channel.ParseCopyMode(in)
		if err != nil || got != want {
			t.Errorf("ParseCopyMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := channel.ParseCopyMode("zip"); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestReadReturnsEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	_ = os.WriteFile(path, []byte("abc"), 0o644)
	fc, err := channel.OpenRead(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	buf := buffer.MustAllocate(8)
	n, err := fc.Read(buf)
	if n != 3 || err != nil {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if _, err := fc.Read(buf); err != io.EOF {
		t.Fatalf("second Read error = %v, want io.EOF", err)
	}
	if size, _ := fc.Size(); size != 3 {
		t.Fatalf("Size = %d", size)
	}
}

func TestScatterGather(t *testing.T) {
	content := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	path := filepath.Join(t.TempDir(), "a1.txt")
	_ = os.WriteFile(path, content, 0o644)

	in, err := channel.OpenRead(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	b1 := buffer.MustAllocate(26)
	b2 := buffer.MustAllocate(102)
	n, err := in.ReadScatter(b1, b2)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(content)) {
		t.Fatalf("ReadScatter = %d, want %d", n, len(content))
	}
	b1.Flip()
	b2.Flip()
	if string(b1.Bytes()) != "abcdefghijklmnopqrstuvwxyz" {
		t.Fatalf("first buffer = %q", b1.Bytes())
	}
	if string(b2.Bytes()) != "0123456789" {
		t.Fatalf("second buffer = %q", b2.Bytes())
	}

	outPath := filepath.Join(t.TempDir(), "a1_copy.txt")
	out, err := channel.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.WriteGather(b1, b2); err != nil {
		t.Fatal(err)
	}
	out.Close()
	got, _ := os.ReadFile(outPath)
	if !bytes.Equal(got, content) {
		t.Fatalf("gathered %q, want %q", got, content)
	}
	if b1.HasRemaining() || b2.HasRemaining() {
		t.Fatal("gather write left bytes behind")
	}
}

func TestTransferFrom(t *testing.T) {
	src, want := writeFixture(t, 5000)
	in, _ := channel.OpenRead(src)
	defer in.Close()
	out, _ := channel.Create(filepath.Join(t.TempDir(), "dst.bin"))
	defer out.Close()

	n, err := out.TransferFrom(in, 0, 5000)
	if err != nil || n != 5000 {
		t.Fatalf("TransferFrom = %d, %v", n, err)
	}
	got, _ := os.ReadFile(out.Name())
	if !bytes.Equal(got, want) {
		t.Fatal("content mismatch")
	}
}

func TestCharsetGBKRoundTrip(t *testing.T) {
	text := "我爱你，亲爱的姑娘。。。"
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(text)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "001.txt")
	_ = os.WriteFile(path, []byte(gbk), 0o644)
	fc, _ := channel.OpenRead(path)
	defer fc.Close()
	buf := buffer.MustAllocate(1024)
	if _, err := fc.Read(buf); err != nil {
		t.Fatal(err)
	}
	buf.Flip()

	if string(buf.Bytes()) == text {
		t.Fatal("GBK bytes should not read as UTF-8")
	}
	got, err := channel.Decode("GBK", buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != text {
		t.Fatalf("Decode = %q, want %q", got, text)
	}
	if buf.HasRemaining() {
		t.Fatal("Decode should consume the buffer")
	}

	enc, err := channel.Encode("gbk", text)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc.Bytes(), []byte(gbk)) {
		t.Fatal("Encode produced unexpected bytes")
	}
}

func TestCharsetUnknown(t *testing.T) {
	if _, err := channel.Encode("no-such-charset", "x"); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
