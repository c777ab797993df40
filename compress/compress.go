package compress

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm wrapped around a stream.
type Type uint8

const (
	// None leaves the stream uncompressed.
	None Type = 0
	// LZ4 wraps the stream in an LZ4 frame (fast, the common choice for grids).
	LZ4 Type = 1
	// Zstd wraps the stream in a zstd frame (better ratio).
	Zstd Type = 2
)

const (
	lz4Magic  = 0x184D2204
	zstdMagic = 0xFD2FB528
)

// ErrUnknownType is returned for compression types outside None, LZ4 and Zstd.
var ErrUnknownType = errors.New("compress: unknown compression type")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Extension returns the file-name suffix conventionally used for t.
func (t Type) Extension() string {
	switch t {
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// FromName picks the compression type from the extension of name.
func FromName(name string) Type {
	switch strings.ToLower(path.Ext(name)) {
	case ".lz4":
		return LZ4
	case ".zst", ".zstd":
		return Zstd
	default:
		return None
	}
}

// Detect returns the compression type announced by the frame magic at the
// start of header. Anything else is treated as uncompressed.
func Detect(header []byte) Type {
	if len(header) < 4 {
		return None
	}
	switch binary.LittleEndian.Uint32(header) {
	case lz4Magic:
		return LZ4
	case zstdMagic:
		return Zstd
	default:
		return None
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compress wraps data in a frame of type t.
func Compress(data []byte, t Type) ([]byte, error) {
	switch t {
	case None:
		return data, nil
	case LZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)

		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

// Decompress unwraps data according to its frame magic. Data without a
// known magic is returned unchanged.
func Decompress(data []byte) ([]byte, Type, error) {
	t := Detect(data)
	switch t {
	case LZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, t, fmt.Errorf("compress: lz4: %w", err)
		}
		return out, t, nil
	case Zstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, t, fmt.Errorf("compress: zstd: %w", err)
		}
		return out, t, nil
	default:
		return data, None, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer that compresses into w. Close flushes the
// frame but does not close w.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{w}, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

// NewReader returns a reader that decompresses r according to its frame
// magic, together with the detected type.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, None, err
	}

	t := Detect(header)
	switch t {
	case LZ4:
		return io.NopCloser(lz4.NewReader(br)), t, nil
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, t, err
		}
		return dec.IOReadCloser(), t, nil
	default:
		return io.NopCloser(br), None, nil
	}
}
