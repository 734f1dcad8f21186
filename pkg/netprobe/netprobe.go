// Package netprobe waits for TCP services to accept connections.
package netprobe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// WaitNetService blocks until host:port accepts a TCP connection.
//
// A zero timeout waits forever. It returns false without an error when the
// timeout elapses or the connection is refused. Other socket errors are
// returned to the caller.
func WaitNetService(ctx context.Context, host string, port int, timeout time.Duration) (bool, error) {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		dialer := net.Dialer{}
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
			dialer.Deadline = deadline
		}

		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			conn.Close()
			return true, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return false, nil
		}
		if isTimeout(err) {
			if !deadline.IsZero() {
				return false, nil
			}
			continue
		}
		return false, err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
