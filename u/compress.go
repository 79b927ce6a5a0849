package u

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/kjk/linedb/atomicfile"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is a compression format picked by file extension
type Codec string

const (
	CodecNone   Codec = ""
	CodecGzip   Codec = "gzip"
	CodecZstd   Codec = "zstd"
	CodecBrotli Codec = "brotli"
	CodecLz4    Codec = "lz4"
)

// CodecForPath returns compression format based on file extension:
// .gz, .zst (or .zstd), .br, .lz4
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	case ".br":
		return CodecBrotli
	case ".lz4":
		return CodecLz4
	}
	return CodecNone
}

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	onClose func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.onClose != nil {
		rc.onClose()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// OpenFileMaybeCompressed opens a file that might be compressed, based on
// CodecForPath
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc := &readerWrappedFile{f: f}
	switch CodecForPath(path) {
	case CodecGzip:
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.r = r
	case CodecZstd:
		r, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		rc.r = r
		rc.onClose = r.Close
	case CodecBrotli:
		rc.r = brotli.NewReader(f)
	case CodecLz4:
		rc.r = lz4.NewReader(f)
	default:
		return f, nil
	}
	return rc, nil
}

// ReadFileMaybeCompressed reads a file, decompressing based on extension
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func newCompressWriter(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case CodecZstd:
		// in my tests zstd.SpeedBestCompression is much slower and
		// not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case CodecBrotli:
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	case CodecLz4:
		return lz4.NewWriter(w), nil
	}
	return nil, nil
}

// CompressData compresses d with codec. CodecNone returns d
func CompressData(d []byte, codec Codec) ([]byte, error) {
	var buf bytes.Buffer
	w, err := newCompressWriter(&buf, codec)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return d, nil
	}
	if _, err = w.Write(d); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileMaybeCompressed atomically writes d to path, compressed
// based on extension
func WriteFileMaybeCompressed(path string, d []byte) error {
	d, err := CompressData(d, CodecForPath(path))
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomicfile.WriteFile(path, d)
}
