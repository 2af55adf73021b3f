package engine

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecExt(t *testing.T) {
	assert.Equal(t, ".tar.gz", CodecGzip.Ext())
	assert.Equal(t, ".tar.zst", CodecZstd.Ext())
	assert.Equal(t, ".tar.lz4", CodecLZ4.Ext())
}

func TestNewArchiver_UnknownCodecFallsBackToGzip(t *testing.T) {
	assert.Equal(t, CodecGzip, NewArchiver("bzip2").Codec())
	assert.Equal(t, CodecZstd, NewArchiver("zstd").Codec())
	assert.Equal(t, CodecLZ4, NewArchiver("lz4").Codec())
}

func stageDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "week_2025-week-19")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "repositories"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archived_resources", "notes"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "archived_resources", "notes", "todo.txt"),
		[]byte("rotate the backups"), 0o644))
	return dir
}

func readTarNames(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	entries := map[string]string{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		var body []byte
		if hdr.Typeflag == tar.TypeReg {
			body, err = io.ReadAll(tr)
			require.NoError(t, err)
		}
		entries[hdr.Name] = string(body)
	}
	return entries
}

func TestArchiver_Create(t *testing.T) {
	tests := []struct {
		codec  string
		open   func(t *testing.T, f *os.File) io.Reader
	}{
		{"gzip", func(t *testing.T, f *os.File) io.Reader {
			zr, err := gzip.NewReader(f)
			require.NoError(t, err)
			return zr
		}},
		{"zstd", func(t *testing.T, f *os.File) io.Reader {
			zr, err := zstd.NewReader(f)
			require.NoError(t, err)
			return zr.IOReadCloser()
		}},
		{"lz4", func(t *testing.T, f *os.File) io.Reader {
			return lz4.NewReader(f)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			src := stageDir(t)
			a := NewArchiver(tt.codec)
			dst := filepath.Join(t.TempDir(), "week_2025-week-19"+a.Codec().Ext())

			require.NoError(t, a.Create(src, dst))

			f, err := os.Open(dst)
			require.NoError(t, err)
			defer f.Close()

			entries := readTarNames(t, tt.open(t, f))
			assert.Contains(t, entries, "week_2025-week-19/repositories")
			assert.Equal(t, "rotate the backups",
				entries["week_2025-week-19/archived_resources/notes/todo.txt"])
		})
	}
}

func TestArchiver_Create_MissingSource(t *testing.T) {
	a := NewArchiver("gzip")
	dst := filepath.Join(t.TempDir(), "out.tar.gz")

	err := a.Create(filepath.Join(t.TempDir(), "absent"), dst)
	require.Error(t, err)
	assert.Equal(t, ErrorKindCompression, KindOf(err))

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "no artifact may be left behind")
}

func TestArchiver_Create_SourceIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := NewArchiver("gzip").Create(file, filepath.Join(t.TempDir(), "out.tar.gz"))
	require.Error(t, err)
	assert.Equal(t, ErrorKindCompression, KindOf(err))
}
