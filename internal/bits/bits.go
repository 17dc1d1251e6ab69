// Package bits provides msb-first bit-level I/O for packed token streams.
package bits

import (
	"io"
)

// Reader reads bit fields from a byte stream, most significant bit first.
// Fetched bytes collect in an accumulator, so a multi-bit field costs one
// shift and mask rather than a per-bit loop.
type Reader struct {
	r   io.Reader
	acc uint64 // pending bits, right-aligned
	n   uint   // number of pending bits (0-39)
}

// NewReader creates a new bit reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadBit reads a single bit (0 or 1).
func (r *Reader) ReadBit() (int, error) {
	v, err := r.ReadBits(1)
	return int(v), err
}

// ReadBits reads n bits (1-32).
func (r *Reader) ReadBits(n uint) (uint32, error) {
	for r.n < n {
		var b [1]byte
		if _, err := io.ReadFull(r.r, b[:]); err != nil {
			return 0, err
		}
		r.acc = r.acc<<8 | uint64(b[0])
		r.n += 8
	}
	r.n -= n
	return uint32(r.acc >> r.n & (1<<n - 1)), nil
}

// Align discards any remaining bits of the current byte. Pending bits
// never span a byte boundary, so dropping them all realigns the stream.
func (r *Reader) Align() {
	r.n = 0
}

// Writer writes bit fields to a byte stream, most significant bit first.
// Bits collect in an accumulator and leave as whole bytes.
type Writer struct {
	w   io.Writer
	acc uint64 // pending bits, right-aligned
	n   uint   // number of pending bits (0-7 between calls)
}

// NewWriter creates a new bit writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBit writes a single bit.
func (w *Writer) WriteBit(bit int) error {
	return w.WriteBits(uint32(bit), 1)
}

// WriteBits writes the lowest n bits of val (n at most 32).
func (w *Writer) WriteBits(val uint32, n uint) error {
	w.acc = w.acc<<n | uint64(val)&(1<<n-1)
	w.n += n
	for w.n >= 8 {
		w.n -= 8
		b := [1]byte{byte(w.acc >> w.n)}
		if _, err := w.w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any remaining bits, padding the final byte with zeros.
func (w *Writer) Flush() error {
	if w.n == 0 {
		return nil
	}
	b := [1]byte{byte(w.acc << (8 - w.n))}
	w.n = 0
	_, err := w.w.Write(b[:])
	return err
}
