// Package filesource opens local files as upload bodies.
//
// It keeps file access out of the upload client: a Source carries a seekable
// file handle, its exact size and a sniffed content type, which is everything
// PutObject needs.
package filesource

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// DefaultContentType is used when neither content sniffing nor the file
// extension identify the type.
const DefaultContentType = "application/octet-stream"

// sniffLen is the number of leading bytes inspected for content detection.
const sniffLen = 3072

// ErrIsDirectory indicates the path names a directory.
var ErrIsDirectory = errors.New("path is a directory")

// Source is an open file ready to be uploaded.
type Source struct {
	// File is positioned at offset 0.
	File billy.File

	Path        string
	Size        int64
	ContentType string
}

// Close closes the underlying file.
func (s *Source) Close() error {
	return s.File.Close()
}

// OS returns a filesystem rooted at "/" for absolute host paths.
func OS() billy.Filesystem {
	return osfs.New("/")
}

// Open opens path on fs and detects its content type.
func Open(fs billy.Filesystem, path string) (*Source, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: %w", path, ErrIsDirectory)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	contentType, err := detectContentType(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Source{
		File:        f,
		Path:        path,
		Size:        info.Size(),
		ContentType: contentType,
	}, nil
}

// detectContentType sniffs the head of f, falling back to the extension of
// path when the content is not recognized. f is rewound afterwards.
func detectContentType(f billy.File, path string) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", path, err)
	}

	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String(), nil
		}
	}
	return fromExtension(path), nil
}

func fromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}
