// Package payload prepares upload bodies so that every attempt sends the
// same bytes.
//
// Seekable bodies are rewound before each attempt. Anything else is read once
// into memory. Both paths enforce that the body holds exactly the declared
// content length and optionally compute its MD5 digest.
package payload

import (
	"bytes"
	"crypto/md5" //nolint:gosec // MD5 is the S3 Content-MD5 and ETag format
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrLengthMismatch indicates the body does not hold exactly the declared length.
var ErrLengthMismatch = errors.New("body length does not match content length")

// Payload is a replayable upload body.
type Payload struct {
	size int64

	// exactly one of data or src is set
	data  []byte
	src   io.ReadSeeker
	at    io.ReaderAt
	start int64

	md5Sum []byte
}

// Prepare inspects body and returns a Payload that can be replayed for each
// attempt. When withMD5 is set the body is hashed up front.
func Prepare(body io.Reader, contentLength int64, withMD5 bool) (*Payload, error) {
	if body == nil {
		return nil, errors.New("body cannot be nil")
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("content length cannot be negative: %d", contentLength)
	}

	if rs, ok := body.(io.ReadSeeker); ok {
		return prepareSeekable(rs, contentLength, withMD5)
	}
	return prepareBuffered(body, contentLength, withMD5)
}

func prepareSeekable(rs io.ReadSeeker, contentLength int64, withMD5 bool) (*Payload, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locate body offset: %w", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("locate body end: %w", err)
	}
	if remaining := end - start; remaining != contentLength {
		return nil, fmt.Errorf("%w: body has %d bytes, declared %d", ErrLengthMismatch, remaining, contentLength)
	}

	p := &Payload{size: contentLength, src: rs, start: start}
	if at, ok := rs.(io.ReaderAt); ok {
		p.at = at
	}

	if withMD5 {
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind body: %w", err)
		}
		h := md5.New() //nolint:gosec
		if _, err := io.CopyN(h, rs, contentLength); err != nil {
			return nil, fmt.Errorf("hash body: %w", err)
		}
		p.md5Sum = h.Sum(nil)
	}

	return p, nil
}

func prepareBuffered(body io.Reader, contentLength int64, withMD5 bool) (*Payload, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, body, contentLength)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: body ended after %d bytes, declared %d", ErrLengthMismatch, n, contentLength)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}

	var probe [1]byte
	switch extra, err := io.ReadFull(body, probe[:]); {
	case extra > 0:
		return nil, fmt.Errorf("%w: body is longer than declared %d bytes", ErrLengthMismatch, contentLength)
	case err != nil && !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("read body: %w", err)
	}

	p := &Payload{size: contentLength, data: buf.Bytes()}
	if withMD5 {
		sum := md5.Sum(p.data) //nolint:gosec
		p.md5Sum = sum[:]
	}
	return p, nil
}

// Size returns the number of bytes each attempt sends.
func (p *Payload) Size() int64 {
	return p.size
}

// Buffered reports whether the body was copied into memory.
func (p *Payload) Buffered() bool {
	return p.src == nil
}

// Reader returns a reader positioned at the start of the payload.
// Each call starts over; readers returned for concurrent attempts must not
// overlap unless the source supports io.ReaderAt.
func (p *Payload) Reader() (io.ReadSeeker, error) {
	if p.src == nil {
		return bytes.NewReader(p.data), nil
	}
	if p.at != nil {
		return io.NewSectionReader(p.at, p.start, p.size), nil
	}
	if _, err := p.src.Seek(p.start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind body: %w", err)
	}
	return p.src, nil
}

// ContentMD5 returns the base64 digest for the Content-MD5 header, or "" when
// the payload was prepared without hashing.
func (p *Payload) ContentMD5() string {
	if p.md5Sum == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(p.md5Sum)
}

// MD5Hex returns the hex digest, or "" when the payload was prepared without hashing.
func (p *Payload) MD5Hex() string {
	if p.md5Sum == nil {
		return ""
	}
	return hex.EncodeToString(p.md5Sum)
}

// ETagMatches reports whether etag is consistent with the payload digest.
// Only plain single-part MD5 tags (32 hex characters, optionally quoted) are
// compared; any other tag, or a payload without a digest, is accepted.
func (p *Payload) ETagMatches(etag string) bool {
	if p.md5Sum == nil {
		return true
	}
	tag := strings.Trim(strings.TrimSpace(etag), `"`)
	if !IsPlainMD5(tag) {
		return true
	}
	return strings.EqualFold(tag, p.MD5Hex())
}

// IsPlainMD5 reports whether s is 32 hexadecimal characters.
func IsPlainMD5(s string) bool {
	if len(s) != 2*md5.Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
