package jpegrle

import (
	"fmt"

	"github.com/mrjoshuak/go-jpegrle/internal/sched"
)

// Encoder encodes quantized coefficient blocks into run-length tokens by
// driving the cycle-accurate scheduler core. It is the reference consumer
// of the stage's output stream: it accepts every output cycle and keeps
// only the tokens whose embedded validity bit is set.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	core *sched.Scheduler
}

// NewEncoder creates an encoder in its reset state.
func NewEncoder() *Encoder {
	return &Encoder{core: sched.New()}
}

// Latency reports the stage's fixed processing latency in cycles.
func (e *Encoder) Latency() int {
	return e.core.Latency()
}

// Reset reinitializes the encoder, clearing the persistent previous-DC
// state along with all counters and slot selectors.
func (e *Encoder) Reset() {
	e.core.Reset()
}

var _ Stage = (*Encoder)(nil)

// EncodeBlock feeds one block of 64 signed 12-bit coefficients through
// the core and returns its valid tokens in order: the DC token first,
// then AC tokens, long-zero-run markers and, when the block ends inside a
// zero run, an end-of-block marker. The previous-DC state carries over to
// the next call.
func (e *Encoder) EncodeBlock(block []int16) ([]Token, error) {
	if len(block) != BlockSize {
		return nil, fmt.Errorf("block has %d coefficients, want %d", len(block), BlockSize)
	}

	var tokens []Token
	fed, drained := 0, 0
	for drained < BlockSize {
		in := sched.In{CE: true, SourceReady: true}
		if fed < BlockSize {
			in.SinkValid = true
			in.SinkData = block[fed]
		}
		out := e.core.Step(in)
		if out.SinkReady && in.SinkValid {
			fed++
		}
		if out.SourceValid {
			if out.Word.Valid {
				tokens = append(tokens, tokenFromWord(out.Word))
			}
			drained++
		}
	}
	return tokens, nil
}

// EncodeBlocks encodes a sequence of blocks through one encoder instance,
// preserving the differential DC chain between them.
func (e *Encoder) EncodeBlocks(blocks [][]int16) ([][]Token, error) {
	encoded := make([][]Token, 0, len(blocks))
	for i, block := range blocks {
		tokens, err := e.EncodeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("encoding block %d: %w", i, err)
		}
		encoded = append(encoded, tokens)
	}
	return encoded, nil
}
