package encoding

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated implies the stream ended before a field was read in full
	ErrTruncated = errors.New("truncated data")
)

// Writer writes big-endian fixed width fields to an io.Writer.
// The first error is kept & all later writes are no-ops, see Err()
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter wraps w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered (if any)
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(field string, data []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(data); err != nil {
		w.err = errors.Wrapf(err, "write %s", field)
	}
}

// PutUint64 writes in as 8 bytes
func (w *Writer) PutUint64(field string, in uint64) {
	binary.BigEndian.PutUint64(w.buf[:], in)
	w.write(field, w.buf[:8])
}

// PutInt64 writes in as 8 bytes, two's complement
func (w *Writer) PutInt64(field string, in int64) {
	w.PutUint64(field, uint64(in))
}

// PutUint8 writes a single byte
func (w *Writer) PutUint8(field string, in uint8) {
	w.buf[0] = in
	w.write(field, w.buf[:1])
}

// PutInt8 writes a single signed byte
func (w *Writer) PutInt8(field string, in int8) {
	w.PutUint8(field, uint8(in))
}

// PutBlob writes the length of data (8 bytes) followed by data
func (w *Writer) PutBlob(field string, data []byte) {
	w.PutUint64(field+" length", uint64(len(data)))
	w.write(field, data)
}

// Reader reads big-endian fixed width fields from an io.Reader.
// Like Writer the first error sticks; values read after it are zero.
type Reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewReader wraps r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered (if any)
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) read(field string, data []byte) bool {
	if r.err != nil {
		return false
	}
	_, err := io.ReadFull(r.r, data)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		r.err = errors.Wrapf(ErrTruncated, "read %s (%d bytes)", field, len(data))
	} else if err != nil {
		r.err = errors.Wrapf(err, "read %s", field)
	}
	return r.err == nil
}

// Uint64 reads 8 bytes
func (r *Reader) Uint64(field string) uint64 {
	if !r.read(field, r.buf[:8]) {
		return 0
	}
	return binary.BigEndian.Uint64(r.buf[:8])
}

// Int64 reads 8 bytes, two's complement
func (r *Reader) Int64(field string) int64 {
	return int64(r.Uint64(field))
}

// Uint8 reads a single byte
func (r *Reader) Uint8(field string) uint8 {
	if !r.read(field, r.buf[:1]) {
		return 0
	}
	return r.buf[0]
}

// Int8 reads a single signed byte
func (r *Reader) Int8(field string) int8 {
	return int8(r.Uint8(field))
}

// Blob reads a length prefixed blob as written by PutBlob.
// Blobs longer than max are refused rather than allocated.
func (r *Reader) Blob(field string, max uint64) []byte {
	n := r.Uint64(field + " length")
	if r.err != nil {
		return nil
	}
	if n > max {
		r.err = errors.Errorf("read %s: length %d exceeds limit %d", field, n, max)
		return nil
	}
	data := make([]byte, n)
	if !r.read(field, data) {
		return nil
	}
	return data
}
