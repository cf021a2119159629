package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestBufferDemo(t *testing.T) {
	out := execute(t, "buffer-demo")
	for _, want := range []string{
		"allocate capacity=10 limit=10 position=0 remaining=10",
		"put      capacity=10 limit=10 position=5 remaining=5",
		"flip     capacity=10 limit=5 position=0 remaining=5",
		`get      "abcde"`,
		"rewind   capacity=10 limit=5 position=0 remaining=5",
		"clear    capacity=10 limit=10 position=0 remaining=10",
		`mark     position=2 read="ab"`,
		`get      position=4 read="abcd"`,
		`reset    position=2 next='c'`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCopyAndScatter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a1.txt")
	content := "abcdefghijklmnopqrstuvwxyz0123456789"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "copy.txt")
	out := execute(t, "copy", "--mode", "transfer", src, dst)
	if !strings.Contains(out, "transfer copy: 36 bytes") {
		t.Fatalf("copy output: %s", out)
	}
	if got, _ := os.ReadFile(dst); string(got) != content {
		t.Fatalf("copied %q", got)
	}

	gathered := filepath.Join(dir, "a1_copy.txt")
	out = execute(t, "scatter", src, gathered)
	if !strings.Contains(out, `buffer 0: "abcdefghijklmnopqrstuvwxyz"`) ||
		!strings.Contains(out, `buffer 1: "0123456789"`) {
		t.Fatalf("scatter output: %s", out)
	}
	if got, _ := os.ReadFile(gathered); string(got) != content {
		t.Fatalf("gathered %q", got)
	}
}

func TestDecode(t *testing.T) {
	text := "我爱你"
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(text)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "001.txt")
	_ = os.WriteFile(path, []byte(gbk), 0o644)
	out := execute(t, "decode", path)
	if !strings.Contains(out, "GBK: "+text) {
		t.Fatalf("decode output: %s", out)
	}
}

func TestPipe(t *testing.T) {
	out := execute(t, "pipe", "--count", "3", "--interval-ms", "0")
	if !strings.Contains(out, "sent 3 readings") {
		t.Fatalf("pipe output: %s", out)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"buffer-demo", "--buffer-size", "0"})
	if err := cmd.ExecuteContext(context.Background()); err == nil || !strings.Contains(err.Error(), "bufferSize") {
		t.Fatalf("expected bufferSize error, got %v", err)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nio.yaml")
	_ = os.WriteFile(path, []byte("bufferSize: 16\nnickname: filed\n"), 0o644)

	opts := NewOptions()
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	opts.AddFlags(cmd.Flags())
	if err := cmd.ParseFlags([]string{"--config-file", path, "--buffer-size", "32"}); err != nil {
		t.Fatal(err)
	}
	if err := opts.Complete(cmd); err != nil {
		t.Fatal(err)
	}
	if opts.Config.BufferSize != 32 {
		t.Errorf("BufferSize = %d, want flag value 32", opts.Config.BufferSize)
	}
	if opts.Config.Nickname != "filed" {
		t.Errorf("Nickname = %q, want file value", opts.Config.Nickname)
	}
}

func TestBufferDemoDirectFromConfigFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("direct buffers fall back to heap storage off linux")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("direct: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := execute(t, "--config-file", path, "buffer-demo")
	if !strings.Contains(out, "direct   true") {
		t.Fatalf("config file direct setting ignored:\n%s", out)
	}
	if out := execute(t, "buffer-demo"); !strings.Contains(out, "direct   false") {
		t.Fatalf("default demo should use a heap buffer:\n%s", out)
	}
}
