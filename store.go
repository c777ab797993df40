package pinegrid

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/pinegrid/blobstore"
	"github.com/hupe1980/pinegrid/compress"
)

// Save streams g into store under name. The compression follows the name's
// extension (".lz4", ".zst").
func Save(ctx context.Context, store blobstore.BlobStore, name string, g *Grid) error {
	data, err := g.container()
	if err != nil {
		g.logger.LogWrite(ctx, name, 0, err)
		return err
	}

	var written int
	err = func() error {
		w, err := store.Create(ctx, name)
		if err != nil {
			return err
		}
		cw, err := compress.NewWriter(&countingWriter{w: w, n: &written}, compress.FromName(name))
		if err != nil {
			_ = w.Close()
			return err
		}
		if _, err := cw.Write(data); err != nil {
			_ = cw.Close()
			_ = w.Close()
			return err
		}
		return errors.Join(cw.Close(), w.Close())
	}()
	if err != nil {
		err = &CodecError{Op: "write", Err: err}
	}

	g.metrics.RecordWrite(written, err)
	g.logger.LogWrite(ctx, name, written, err)
	return err
}

// Load reads the grid stored under name. Compressed blobs are recognized
// by their frame magic regardless of the name.
func Load(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*Grid, error) {
	o := applyOptions(opts)

	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		err = &CodecError{Op: "read", Err: err}
		o.metricsCollector.RecordRead(0, err)
		o.logger.LogRead(ctx, name, 0, err)
		return nil, err
	}

	g, err := decode(data, o)
	o.logger.LogRead(ctx, name, len(data), err)
	return g, err
}

type countingWriter struct {
	w io.Writer
	n *int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += n
	return n, err
}
