//go:build linux

package rtmpproxy

import (
	"net"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

const defaultPipeSize = 1 << 16

// zeroCopy splices src into a pipe and the pipe into dst, so the payload never enters user space.
// handled is false when the splice path could not be set up and nothing was copied.
func zeroCopy(dst, src net.Conn, counter *atomic.Uint64) (written int64, handled bool, err error) {
	srcTCP, ok := src.(*net.TCPConn)
	if !ok {
		return 0, false, nil
	}
	dstTCP, ok := dst.(*net.TCPConn)
	if !ok {
		return 0, false, nil
	}
	rc, err := srcTCP.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	wc, err := dstTCP.SyscallConn()
	if err != nil {
		return 0, false, nil
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return 0, false, nil
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	pipeSize, err := unix.FcntlInt(uintptr(p[0]), unix.F_GETPIPE_SZ, 0)
	if err != nil || pipeSize <= 0 {
		pipeSize = defaultPipeSize
	}

	for {
		var n int64
		var serr error
		err := rc.Read(func(fd uintptr) bool {
			for {
				n, serr = unix.Splice(int(fd), nil, p[1], nil, pipeSize, unix.SPLICE_F_MOVE|unix.SPLICE_F_NONBLOCK)
				if serr != unix.EINTR {
					return serr != unix.EAGAIN
				}
			}
		})
		if err == nil {
			err = serr
		}
		if err != nil {
			return written, true, err
		}
		if n == 0 {
			return written, true, nil
		}

		for n > 0 {
			var m int64
			var werr error
			err := wc.Write(func(fd uintptr) bool {
				for {
					m, werr = unix.Splice(p[0], nil, int(fd), nil, int(n), unix.SPLICE_F_MOVE|unix.SPLICE_F_NONBLOCK)
					if werr != unix.EINTR {
						return werr != unix.EAGAIN
					}
				}
			})
			if err == nil {
				err = werr
			}
			if err != nil {
				return written, true, err
			}
			n -= m
			written += m
			counter.Add(uint64(m))
		}
	}
}
