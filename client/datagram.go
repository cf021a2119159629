// File: client/datagram.go
// Author: momentics <momentics@gmail.com>

package client

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/socket"
)

// DatagramSender sends each message as one UDP datagram.
type DatagramSender struct {
	cfg ChatConfig
	ch  *socket.DatagramChannel
	buf *buffer.ByteBuffer
}

// NewDatagramSender opens a non-blocking datagram channel aimed at cfg.Addr.
func NewDatagramSender(cfg ChatConfig) (*DatagramSender, error) {
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
	ch, err := socket.OpenDatagram()
	if err != nil {
		return nil, err
	}
	if err := ch.ConfigureBlocking(false); err != nil {
		ch.Close()
		return nil, err
	}
	return &DatagramSender{cfg: cfg, ch: ch, buf: buf}, nil
}

// Send formats text and transmits it. Messages longer than the buffer are
// rejected with api.ErrOverflow.
func (s *DatagramSender) Send(text string) error {
	msg := FormatMessage(s.cfg.Clock(), s.cfg.Nickname, text)
	s.buf.Clear()
	if err := s.buf.PutString(msg); err != nil {
		return err
	}
	s.buf.Flip()
	n, err := s.ch.Send(s.buf, s.cfg.Addr)
	s.cfg.Metrics.AddBytesWritten("datagram", n)
	return err
}

// Run sends every whitespace-separated word read from r until it reads
// QuitCommand in any case, r is exhausted, or ctx is done.
func (s *DatagramSender) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		word := sc.Text()
		if strings.EqualFold(word, QuitCommand) {
			return nil
		}
		if err := s.Send(word); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Close releases the channel.
func (s *DatagramSender) Close() error {
	return s.ch.Close()
}
