//go:build !unix
// +build !unix

package pipe

import "github.com/momentics/hioload-nio/api"

func (e *end) readNow(p []byte) (int, error) {
	return 0, api.ErrNotSupported
}

func (e *end) writeNow(p []byte) (int, error) {
	return 0, api.ErrNotSupported
}
