//go:build !linux

package rtmpproxy

import (
	"net"

	"go.uber.org/atomic"
)

func zeroCopy(dst, src net.Conn, counter *atomic.Uint64) (int64, bool, error) {
	return 0, false, nil
}
