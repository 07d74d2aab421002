// Package testutil provides test helper functions.
package testutil

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"io"
	"math/rand"
	"sync"
	"time"
)

// GenerateRandomData generates random bytes of the specified size.
// This is useful for creating test data for uploads.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256)) //nolint:gosec
	}
	return data
}

// MD5Hex returns the hex MD5 digest of data, the format of a single-part ETag.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// OnceReader wraps a reader and hides any Seek or ReadAt methods, modelling a
// single-pass byte source such as a network stream.
type OnceReader struct {
	R io.Reader
}

// Read implements io.Reader.
func (o *OnceReader) Read(p []byte) (int, error) {
	return o.R.Read(p)
}

// RecordingSleeper records requested backoff delays without sleeping.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns immediately unless ctx is already done.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Delays returns the recorded delays.
func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
