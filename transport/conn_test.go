package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTimeoutConn(t *testing.T) {
	t.Run("zero timeout returns the raw conn", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		assert.Same(t, client, WriteTimeoutConn(client, 0))
	})

	t.Run("stalled peer times out", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		conn := WriteTimeoutConn(client, 20*time.Millisecond)
		_, err := conn.Write([]byte("nobody reads this"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))

		var netErr net.Error
		require.True(t, errors.As(err, &netErr))
		assert.True(t, netErr.Timeout())
	})

	t.Run("reading peer gets the data", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		got := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 5)
			n, _ := server.Read(buf)
			got <- buf[:n]
		}()

		conn := WriteTimeoutConn(client, time.Second)
		n, err := conn.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("hello"), <-got)
	})
}

func TestDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			_, _ = io.Copy(io.Discard, conn)
		}
	}()

	t.Run("wraps with write deadline", func(t *testing.T) {
		dial := Dialer(PoolConfig{ConnectTimeout: time.Second, WriteTimeout: time.Second}, time.Second)
		conn, err := dial(context.Background(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, ok := conn.(*writeTimeoutConn)
		assert.True(t, ok)
		_, err = conn.Write([]byte("ping"))
		assert.NoError(t, err)
	})

	t.Run("no write timeout leaves the conn bare", func(t *testing.T) {
		dial := Dialer(PoolConfig{ConnectTimeout: time.Second}, time.Second)
		conn, err := dial(context.Background(), "tcp", ln.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, ok := conn.(*writeTimeoutConn)
		assert.False(t, ok)
	})

	t.Run("dial failure", func(t *testing.T) {
		dial := Dialer(PoolConfig{ConnectTimeout: time.Second}, time.Second)
		_, err := dial(context.Background(), "tcp", "127.0.0.1:1")
		assert.Error(t, err)
	})
}
