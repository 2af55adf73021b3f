package engine

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a compression codec for rotation archives.
type Codec string

const (
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// Ext returns the artifact file extension for the codec.
func (c Codec) Ext() string {
	switch c {
	case CodecZstd:
		return ".tar.zst"
	case CodecLZ4:
		return ".tar.lz4"
	default:
		return ".tar.gz"
	}
}

// Archiver packs a staging directory into a single compressed tar artifact.
type Archiver struct {
	codec Codec
}

// NewArchiver creates an archiver using the given codec. Unknown codec names
// fall back to gzip.
func NewArchiver(codec string) *Archiver {
	switch Codec(codec) {
	case CodecZstd:
		return &Archiver{codec: CodecZstd}
	case CodecLZ4:
		return &Archiver{codec: CodecLZ4}
	default:
		return &Archiver{codec: CodecGzip}
	}
}

// Codec returns the codec the archiver compresses with.
func (a *Archiver) Codec() Codec {
	return a.codec
}

// Create writes a compressed tar archive of srcDir to dstPath. Entries are
// stored relative to srcDir's parent so extraction reproduces the staging
// directory under its own name. A partially written artifact is removed on
// failure.
func (a *Archiver) Create(srcDir, dstPath string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return NewCompressionError(fmt.Sprintf("cannot stat %s", srcDir), err)
	}
	if !info.IsDir() {
		return NewCompressionError(fmt.Sprintf("%s is not a directory", srcDir), nil)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return NewCompressionError(fmt.Sprintf("cannot create artifact %s", dstPath), err)
	}

	if err := a.pack(srcDir, out); err != nil {
		out.Close()
		os.Remove(dstPath)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(dstPath)
		return NewCompressionError(fmt.Sprintf("cannot finalize artifact %s", dstPath), err)
	}
	return nil
}

func (a *Archiver) pack(srcDir string, out io.Writer) error {
	cw, err := a.newCompressWriter(out)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	base := filepath.Base(srcDir)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		// Sockets, pipes and device nodes cannot be represented in the
		// archive; they are filtered out during sync already.
		if !info.Mode().IsRegular() && !info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			return nil
		}

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		tw.Close()
		cw.Close()
		return NewCompressionError(fmt.Sprintf("failed to archive %s", srcDir), walkErr)
	}

	if err := tw.Close(); err != nil {
		cw.Close()
		return NewCompressionError("failed to finalize tar stream", err)
	}
	if err := cw.Close(); err != nil {
		return NewCompressionError("failed to finalize compressed stream", err)
	}
	return nil
}

func (a *Archiver) newCompressWriter(out io.Writer) (io.WriteCloser, error) {
	switch a.codec {
	case CodecZstd:
		zw, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, NewCompressionError("failed to create zstd writer", err)
		}
		return zw, nil
	case CodecLZ4:
		return lz4.NewWriter(out), nil
	default:
		return gzip.NewWriter(out), nil
	}
}
