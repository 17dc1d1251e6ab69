package jpegrle

import (
	"fmt"

	"github.com/mrjoshuak/go-jpegrle/internal/rle"
)

// Decoder reconstructs coefficient blocks from valid token streams,
// inverting the run-length stage. Like the encoder it accumulates the DC
// value across blocks, so the blocks of one image must pass through a
// single Decoder instance in order.
type Decoder struct {
	prevDC int16
}

// NewDecoder creates a decoder in its reset state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset clears the accumulated DC state.
func (d *Decoder) Reset() {
	d.prevDC = 0
}

// DecodeBlock expands one block's valid tokens back into 64 coefficients.
// The token slice must contain only tokens with the validity bit set, in
// encoder output order; positions not covered by any token are zero.
func (d *Decoder) DecodeBlock(tokens []Token) ([]int16, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty token stream: missing DC token")
	}

	if !tokens[0].Valid {
		return nil, fmt.Errorf("DC token not valid")
	}
	block := make([]int16, BlockSize)
	dc := rle.Signed12(int32(d.prevDC) + int32(tokens[0].Amplitude))
	block[0] = dc
	d.prevDC = dc

	pos := 1
	for i, t := range tokens[1:] {
		if !t.Valid {
			return nil, fmt.Errorf("filler token at index %d in valid stream", i+1)
		}
		switch {
		case t.IsEOB():
			if i != len(tokens)-2 {
				return nil, fmt.Errorf("token after end-of-block marker")
			}
			pos = BlockSize
		case t.IsZRL():
			// One marker stands for 16 zeros.
			pos += int(MaxRunLength) + 1
			if pos > BlockSize {
				return nil, fmt.Errorf("zero run overflows block at token %d", i+1)
			}
		default:
			pos += int(t.RunLength)
			if pos >= BlockSize {
				return nil, fmt.Errorf("coefficient position overflows block at token %d", i+1)
			}
			block[pos] = t.Amplitude
			pos++
		}
	}
	return block, nil
}

// DecodeBlocks decodes a sequence of blocks through one decoder instance,
// preserving the differential DC chain between them.
func (d *Decoder) DecodeBlocks(blocks [][]Token) ([][]int16, error) {
	decoded := make([][]int16, 0, len(blocks))
	for i, tokens := range blocks {
		block, err := d.DecodeBlock(tokens)
		if err != nil {
			return nil, fmt.Errorf("decoding block %d: %w", i, err)
		}
		decoded = append(decoded, block)
	}
	return decoded, nil
}
