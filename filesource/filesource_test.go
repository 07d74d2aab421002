package filesource

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestOpen(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "images/logo.png", append(pngHeader, make([]byte, 64)...), 0o644))
	require.NoError(t, util.WriteFile(fs, "notes.txt", []byte("hello object storage\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, "empty.json", nil, 0o644))
	require.NoError(t, util.WriteFile(fs, "large.txt", bytes.Repeat([]byte("line of text\n"), 1000), 0o644))

	tests := []struct {
		name     string
		path     string
		wantType string
		wantSize int64
	}{
		{name: "sniffed binary", path: "images/logo.png", wantType: "image/png", wantSize: int64(len(pngHeader) + 64)},
		{name: "sniffed text", path: "notes.txt", wantType: "text/plain; charset=utf-8", wantSize: 21},
		{name: "empty falls back to extension", path: "empty.json", wantType: "application/json", wantSize: 0},
		{name: "larger than sniff window", path: "large.txt", wantType: "text/plain; charset=utf-8", wantSize: 13000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(fs, tt.path)
			require.NoError(t, err)
			defer func() { assert.NoError(t, src.Close()) }()

			assert.Equal(t, tt.path, src.Path)
			assert.Equal(t, tt.wantSize, src.Size)
			assert.Equal(t, tt.wantType, src.ContentType)

			// detection must leave the file at offset 0
			data, err := io.ReadAll(src.File)
			require.NoError(t, err)
			assert.Len(t, data, int(tt.wantSize))
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("dir", 0o755))

	_, err := Open(fs, "dir")
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = Open(fs, "missing.bin")
	assert.Error(t, err)
}

func TestFromExtension(t *testing.T) {
	assert.Equal(t, "application/json", fromExtension("a/b/data.JSON"))
	assert.Equal(t, DefaultContentType, fromExtension("blob.zzzunknown"))
	assert.Equal(t, DefaultContentType, fromExtension("no-extension"))
}

func TestOS(t *testing.T) {
	assert.Equal(t, "/", OS().Root())
}
