package transport

import (
	"context"
	"net"
	"time"
)

// writeTimeoutConn bounds every Write with a fresh deadline, giving the
// socket-level write timeout that net/http exposes no setting for.
type writeTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

// WriteTimeoutConn wraps conn so that each Write must complete within timeout.
// A non-positive timeout returns conn unchanged.
func WriteTimeoutConn(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &writeTimeoutConn{Conn: conn, timeout: timeout}
}

func (c *writeTimeoutConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

// DialFunc matches http.Transport.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Dialer returns a DialFunc honouring cfg.ConnectTimeout for dialing and
// cfg.WriteTimeout for every write on the resulting connection.
func Dialer(cfg PoolConfig, keepAlive time.Duration) DialFunc {
	d := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: keepAlive,
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return WriteTimeoutConn(conn, cfg.WriteTimeout), nil
	}
}
