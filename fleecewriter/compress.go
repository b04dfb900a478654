// Package fleecewriter holds Writer decorators that sit downstream of
// an Encoder: unlike fleece.Writer, which an Encoder appends to live
// while computing pointer offsets against the uncompressed stream,
// these operate on an already-finished document's bytes.
package fleecewriter

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressingWriter persists a finished Fleece document zstd-compressed.
// It is unrelated to the in-memory fleece.Writer an Encoder writes to:
// pointer back-offsets are computed against uncompressed byte
// positions, so compression can only ever apply after Encoder.End has
// produced the final bytes.
type CompressingWriter struct {
	enc *zstd.Encoder
}

// NewCompressingWriter wraps dst so that WriteDocument compresses
// before writing.
func NewCompressingWriter(dst io.Writer) (*CompressingWriter, error) {
	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return nil, err
	}
	return &CompressingWriter{enc: enc}, nil
}

// WriteDocument compresses and writes a complete Fleece document.
func (w *CompressingWriter) WriteDocument(doc []byte) error {
	if _, err := w.enc.Write(doc); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes the underlying zstd stream. It must be
// called once WriteDocument is done.
func (w *CompressingWriter) Close() error {
	return w.enc.Close()
}

// ReadDocument reverses CompressingWriter, decompressing r back into a
// complete Fleece document.
func ReadDocument(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}
