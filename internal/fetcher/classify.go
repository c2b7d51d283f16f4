package fetcher

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// failureKind labels a transport error with the retry policy it falls under.
type failureKind string

const (
	failureTimeout     failureKind = "timeout"
	failureConnRefused failureKind = "connection_refused"
	failureConnReset   failureKind = "connection_reset"
	failureOther       failureKind = "other"
)

// classify maps a fetch error to its retry policy. Timeouts back off
// exponentially, refused connections wait a fixed interval (the upstream is
// likely restarting), resets retry immediately, anything else is terminal.
func classify(err error) failureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return failureConnRefused
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return failureConnReset
	}
	return failureOther
}
