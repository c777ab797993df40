package pinegrid

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/pinegrid/compress"
	"github.com/hupe1980/pinegrid/internal/fs"
	"github.com/hupe1980/pinegrid/internal/hash"
)

const (
	binaryMagic   = 0x44524750 // "PGRD"
	binaryVersion = 1
	headerSize    = 24
	// maxPayload bounds the payload length accepted from a header.
	maxPayload = 1 << 40
)

// Container layout:
//
//	Magic         (4 bytes)
//	Version       (4 bytes)
//	Flags         (4 bytes) - reserved, zero
//	Checksum      (4 bytes) - CRC32C of payload
//	PayloadLength (8 bytes)
//	Payload       (see binary.go)

// WriteTo writes the uncompressed container to w. It implements
// io.WriterTo.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	data, err := g.container()
	if err == nil {
		var n int
		n, err = w.Write(data)
		g.metrics.RecordWrite(n, err)
		if err != nil {
			return int64(n), &CodecError{Op: "write", Err: err}
		}
		return int64(n), nil
	}
	g.metrics.RecordWrite(0, err)
	return 0, err
}

// Write writes the container to w, wrapped in a frame of type t.
func (g *Grid) Write(w io.Writer, t compress.Type) error {
	data, err := g.MarshalBinary()
	if err == nil {
		data, err = compress.Compress(data, t)
	}
	if err == nil {
		_, err = w.Write(data)
	}
	g.metrics.RecordWrite(len(data), err)
	if err != nil {
		return &CodecError{Op: "write", Err: err}
	}
	return nil
}

// WriteFile writes the grid to path, compressed according to the file
// extension. The file is replaced atomically.
func (g *Grid) WriteFile(path string) error {
	data, err := g.MarshalBinary()
	if err == nil {
		data, err = compress.Compress(data, compress.FromName(path))
	}
	if err == nil {
		err = fs.WriteFileAtomic(g.fileSystem(), path, data)
	}

	g.metrics.RecordWrite(len(data), err)
	g.logger.LogWrite(context.Background(), path, len(data), err)
	if err != nil {
		var ce *CodecError
		if errors.As(err, &ce) {
			return err
		}
		return &CodecError{Op: "write", Err: err}
	}
	return nil
}

func (g *Grid) fileSystem() fs.FileSystem {
	if g.fs == nil {
		return fs.Default
	}
	return g.fs
}

// MarshalBinary returns the uncompressed container.
func (g *Grid) MarshalBinary() ([]byte, error) {
	return g.container()
}

func (g *Grid) container() ([]byte, error) {
	payload, err := g.encodePayload()
	if err != nil {
		return nil, &CodecError{Op: "write", Err: err}
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint32(out[4:8], binaryVersion)
	binary.LittleEndian.PutUint32(out[8:12], 0)
	binary.LittleEndian.PutUint32(out[12:16], hash.CRC32C(payload))
	binary.LittleEndian.PutUint64(out[16:24], uint64(len(payload)))
	return append(out, payload...), nil
}

// ReadFrom replaces g with the uncompressed container read from r. It
// implements io.ReaderFrom. On error g is left unchanged.
func (g *Grid) ReadFrom(r io.Reader) (int64, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil {
		return int64(n), &CodecError{Op: "read", Err: err}
	}

	length, err := checkHeader(header)
	if err != nil {
		return int64(n), err
	}

	payload, err := io.ReadAll(io.LimitReader(r, int64(length)))
	total := int64(n + len(payload))
	if err != nil {
		return total, &CodecError{Op: "read", Err: err}
	}
	if uint64(len(payload)) != length {
		return total, &CodecError{Op: "read", Err: io.ErrUnexpectedEOF}
	}

	decoded, err := decodeContainer(header, payload, g.options())
	if err != nil {
		return total, err
	}
	*g = *decoded
	return total, nil
}

// Read reads a grid from r. Compressed streams are recognized by their
// frame magic.
func Read(r io.Reader, opts ...Option) (*Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &CodecError{Op: "read", Err: err}
	}
	return decode(data, applyOptions(opts))
}

// ReadFile reads a grid from a file written by WriteFile or Write.
func ReadFile(path string, opts ...Option) (*Grid, error) {
	o := applyOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		err = &CodecError{Op: "read", Err: err}
		o.logger.LogRead(context.Background(), path, 0, err)
		return nil, err
	}

	g, err := decode(data, o)
	o.logger.LogRead(context.Background(), path, len(data), err)
	return g, err
}

// UnmarshalBinary replaces g with the grid in data, compressed or not.
func (g *Grid) UnmarshalBinary(data []byte) error {
	decoded, err := decode(data, g.options())
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

func (g *Grid) options() options {
	o := applyOptions(nil)
	if g.logger != nil {
		o.logger = g.logger
	}
	if g.metrics != nil {
		o.metricsCollector = g.metrics
	}
	if g.fs != nil {
		o.fs = g.fs
	}
	return o
}

func decode(data []byte, o options) (*Grid, error) {
	raw, _, err := compress.Decompress(data)
	if err != nil {
		err = &CodecError{Op: "read", Err: err}
		o.metricsCollector.RecordRead(len(data), err)
		return nil, err
	}

	if len(raw) < headerSize {
		err = &CodecError{Op: "read", Err: io.ErrUnexpectedEOF}
		o.metricsCollector.RecordRead(len(data), err)
		return nil, err
	}
	header, payload := raw[:headerSize], raw[headerSize:]

	length, err := checkHeader(header)
	if err == nil && uint64(len(payload)) != length {
		err = &CodecError{Op: "read", Err: fmt.Errorf("payload has %d bytes, header announces %d", len(payload), length)}
	}
	if err != nil {
		o.metricsCollector.RecordRead(len(data), err)
		return nil, err
	}

	g, err := decodeContainer(header, payload, o)
	o.metricsCollector.RecordRead(len(data), err)
	return g, err
}

func checkHeader(header []byte) (uint64, error) {
	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != binaryMagic {
		return 0, &CodecError{Op: "read", Err: fmt.Errorf("invalid magic: %x", magic)}
	}
	if version := binary.LittleEndian.Uint32(header[4:8]); version != binaryVersion {
		return 0, &CodecError{Op: "read", Err: fmt.Errorf("unsupported version: %d", version)}
	}
	if flags := binary.LittleEndian.Uint32(header[8:12]); flags != 0 {
		return 0, &CodecError{Op: "read", Err: fmt.Errorf("unsupported flags: %x", flags)}
	}
	length := binary.LittleEndian.Uint64(header[16:24])
	if length > maxPayload {
		return 0, &CodecError{Op: "read", Err: fmt.Errorf("payload length %d exceeds limit", length)}
	}
	return length, nil
}

func decodeContainer(header, payload []byte, o options) (*Grid, error) {
	if sum := hash.CRC32C(payload); sum != binary.LittleEndian.Uint32(header[12:16]) {
		return nil, &CodecError{Op: "read", Err: errors.New("checksum mismatch")}
	}

	g, err := decodePayload(payload, o)
	if err != nil {
		var ce *CodecError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CodecError{Op: "read", Err: err}
	}
	return g, nil
}

// Equal reports whether both grids serialize to identical containers.
func (g *Grid) Equal(other *Grid) bool {
	a, errA := g.container()
	b, errB := other.container()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
