// File: client/chat.go
// Author: momentics <momentics@gmail.com>
//
// Chat client on a non-blocking connection. Partial writes wait for
// writability on a private selector.

package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/selector"
	"github.com/momentics/hioload-nio/socket"
)

// ChatConfig holds chat client parameters.
type ChatConfig struct {
	Addr       string
	Nickname   string
	BufferSize int              // send buffer capacity; longer messages get their own buffer
	Clock      func() time.Time // message timestamps; nil means time.Now
	Metrics    *control.MetricsRegistry
}

// ChatClient sends formatted chat lines to a chat server.
type ChatClient struct {
	cfg  ChatConfig
	conn *socket.SocketChannel
	sel  *selector.Selector
	key  *selector.SelectionKey
	buf  *buffer.ByteBuffer
}

// DialChat connects to cfg.Addr and switches the connection to
// non-blocking mode.
func DialChat(cfg ChatConfig) (*ChatClient, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	buf, err := buffer.Allocate(cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	conn, err := socket.Dial(cfg.Addr)
	if err != nil {
		return nil, err
	}
	if err := conn.ConfigureBlocking(false); err != nil {
		conn.Close()
		return nil, err
	}
	sel, err := selector.Open()
	if err != nil {
		conn.Close()
		return nil, err
	}
	key, err := sel.Register(conn, 0, nil)
	if err != nil {
		sel.Close()
		conn.Close()
		return nil, err
	}
	return &ChatClient{cfg: cfg, conn: conn, sel: sel, key: key, buf: buf}, nil
}

// Send formats text with the current time and nickname and writes it.
func (c *ChatClient) Send(text string) error {
	msg := FormatMessage(c.cfg.Clock(), c.cfg.Nickname, text)
	b := c.buf
	if len(msg) > b.Capacity() {
		b = buffer.Wrap([]byte(msg))
	} else {
		b.Clear()
		if err := b.PutString(msg); err != nil {
			return err
		}
		b.Flip()
	}
	return c.writeAll(b)
}

func (c *ChatClient) writeAll(b *buffer.ByteBuffer) error {
	for b.HasRemaining() {
		n, err := c.conn.Write(b)
		c.cfg.Metrics.AddBytesWritten("chat", n)
		if err == nil {
			continue
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			return err
		}
		if err := c.awaitWritable(); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChatClient) awaitWritable() (err error) {
	if err := c.key.SetInterest(api.OpWrite); err != nil {
		return err
	}
	defer func() {
		if rerr := c.key.SetInterest(0); err == nil {
			err = rerr
		}
	}()
	if _, err := c.sel.Select(time.Second); err != nil {
		return err
	}
	it := c.sel.SelectedKeys()
	for it.Next() {
		it.Remove()
	}
	return nil
}

// Run sends every line read from r until it reads QuitCommand, r is
// exhausted, or ctx is done.
func (c *ChatClient) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		if line == QuitCommand {
			return nil
		}
		if err := c.Send(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Close releases the connection and the selector.
func (c *ChatClient) Close() error {
	c.key.Cancel()
	c.sel.Close()
	return c.conn.Close()
}
