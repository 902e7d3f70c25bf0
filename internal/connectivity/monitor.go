package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Monitor reports whether the network is currently usable.
type Monitor interface {
	Check(ctx context.Context) error
}

// ErrEmptyTarget is returned when a DialMonitor has no address to probe.
var ErrEmptyTarget = errors.New("connectivity target is empty")

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialMonitor considers the network available when a TCP connection to target can be opened.
type DialMonitor struct {
	dialer  Dialer
	target  string
	timeout time.Duration
}

// NewDialMonitor creates a monitor probing target ("host:port") with the given timeout.
func NewDialMonitor(target string, timeout time.Duration) *DialMonitor {
	return NewDialMonitorWithDialer(&net.Dialer{}, target, timeout)
}

// NewDialMonitorWithDialer allows injecting a custom dialer.
func NewDialMonitorWithDialer(dialer Dialer, target string, timeout time.Duration) *DialMonitor {
	return &DialMonitor{dialer: dialer, target: target, timeout: timeout}
}

// Check dials the target and closes the connection right away.
func (dm *DialMonitor) Check(ctx context.Context) error {
	if dm.target == "" {
		return ErrEmptyTarget
	}

	if dm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dm.timeout)
		defer cancel()
	}

	conn, err := dm.dialer.DialContext(ctx, "tcp", dm.target)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", dm.target, err)
	}

	return conn.Close()
}
