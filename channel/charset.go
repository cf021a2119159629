// File: channel/charset.go
// Author: momentics <momentics@gmail.com>
//
// Charset decode/encode of buffer contents.

package channel

import (
	"fmt"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// LookupCharset resolves a WHATWG encoding label such as "gbk", "utf-8" or
// "shift_jis". Matching is case-insensitive.
func LookupCharset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "channel: unknown charset").WithContext("charset", name)
	}
	return enc, nil
}

// Decode decodes buf[position:limit] and advances the position to the limit.
func Decode(charset string, buf *buffer.ByteBuffer) (string, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("channel: decode %s: %w", charset, err)
	}
	_ = buf.Advance(buf.Remaining())
	return string(out), nil
}

// Encode encodes s and returns a buffer ready to drain.
func Encode(charset string, s string) (*buffer.ByteBuffer, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("channel: encode %s: %w", charset, err)
	}
	return buffer.Wrap([]byte(out)), nil
}
