package jpegrle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/mrjoshuak/go-jpegrle/internal/bits"
)

// Token-stream container format:
//
//	4 bytes  magic "JRL1"
//	4 bytes  big-endian block count
//	zstd frame of the packed payload; per block an 8-bit token count
//	followed by that many 17-bit words, byte-aligned at each block end.

var tokenMagic = [4]byte{'J', 'R', 'L', '1'}

// WriteTokens serializes encoded blocks into the compressed container
// format, suitable for storing encoder output between pipeline runs.
func WriteTokens(w io.Writer, blocks [][]Token) error {
	if _, err := w.Write(tokenMagic[:]); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(blocks)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing block count: %w", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}
	bw := bits.NewWriter(zw)
	for i, block := range blocks {
		if len(block) > BlockSize {
			return fmt.Errorf("block %d has %d tokens, max %d", i, len(block), BlockSize)
		}
		if err := bw.WriteBits(uint32(len(block)), 8); err != nil {
			return fmt.Errorf("writing block %d count: %w", i, err)
		}
		for _, t := range block {
			if err := bw.WriteBits(t.Pack(), 17); err != nil {
				return fmt.Errorf("writing block %d tokens: %w", i, err)
			}
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flushing block %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zstd stream: %w", err)
	}
	return nil
}

// ReadTokens deserializes a container written by WriteTokens.
func ReadTokens(r io.Reader) ([][]Token, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != tokenMagic {
		return nil, fmt.Errorf("not a token container: bad magic %q", magic[:])
	}
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading block count: %w", err)
	}
	count := binary.BigEndian.Uint32(hdr[:])

	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer zr.Close()

	br := bits.NewReader(zr)
	// The declared count is untrusted; grow the slice only as blocks
	// actually decode, so a corrupt header cannot force a giant
	// allocation before the payload is touched.
	var blocks [][]Token
	for i := uint32(0); i < count; i++ {
		n, err := br.ReadBits(8)
		if err != nil {
			return nil, fmt.Errorf("reading block %d count: %w", i, err)
		}
		if n > BlockSize {
			return nil, fmt.Errorf("block %d has %d tokens, max %d", i, n, BlockSize)
		}
		block := make([]Token, 0, n)
		for j := uint32(0); j < n; j++ {
			w, err := br.ReadBits(17)
			if err != nil {
				return nil, fmt.Errorf("reading block %d tokens: %w", i, err)
			}
			block = append(block, UnpackToken(w))
		}
		br.Align()
		blocks = append(blocks, block)
	}
	return blocks, nil
}
