// Package jpegrle implements the run-length encoding stage of a
// block-based image compression pipeline.
//
// The stage converts ordered blocks of 64 quantized transform
// coefficients into a compact token stream: the first coefficient of each
// block (DC) becomes a delta against the previous block's DC value, and
// the remaining coefficients (AC) become (run-of-zeros, amplitude) pairs
// ready for entropy coding. The core is a cycle-accurate model of the
// hardware stage: a three-cycle datapath behind a double-buffered block
// scheduler with ready/valid handshakes on both streams.
//
// Basic usage:
//
//	enc := jpegrle.NewEncoder()
//	tokens, err := enc.EncodeBlock(coefficients)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The previous-DC state persists across blocks, so all blocks of one
// image must pass through a single Encoder instance.
package jpegrle

import (
	"github.com/mrjoshuak/go-jpegrle/internal/rle"
)

const (
	// BlockSize is the number of coefficients in one transform block.
	BlockSize = rle.BlockSize

	// MaxRunLength is the largest zero run a single token can describe.
	MaxRunLength = rle.MaxZeroRun

	// Latency is the fixed processing latency of the stage in cycles,
	// reported to the enclosing pipeline flow controller.
	Latency = rle.Latency
)

// Stage is the contract a pipeline stage exposes to the enclosing flow
// controller, which uses the reported latency to coordinate the shared
// pause signal across chained stages.
type Stage interface {
	// Latency reports the stage's fixed processing latency in cycles.
	Latency() int

	// Reset reinitializes all stage state, including state that
	// persists across blocks.
	Reset()
}

// Token is one encoded output unit.
type Token struct {
	// Amplitude is the DC delta for the first token of a block and the
	// raw coefficient value for AC tokens. 12-bit two's complement.
	Amplitude int16

	// RunLength counts the zero coefficients immediately preceding
	// Amplitude, 0-15.
	RunLength uint8

	// Valid reports whether the token carries a real encoded event.
	// Cycle-level consumers see filler cycles with Valid clear; the
	// Encoder filters these out.
	Valid bool

	// Magnitude is the absolute value of Amplitude, the input to the
	// bit-length category computation in the downstream entropy stage.
	Magnitude uint16
}

// IsEOB reports whether the token is an end-of-block marker: a block
// ended with zero coefficients still outstanding. Meaningful only for AC
// tokens; the DC token of a block with an unchanged DC value has the same
// shape.
func (t Token) IsEOB() bool {
	return t.Valid && t.Amplitude == 0 && t.RunLength == 0
}

// IsZRL reports whether the token is a long-zero-run marker, emitted once
// for every 16 consecutive zero coefficients.
func (t Token) IsZRL() bool {
	return t.Valid && t.Amplitude == 0 && t.RunLength == MaxRunLength
}

// Pack packs the token into the 17-bit stream word: amplitude in bits
// 0-11, run length in bits 12-15, validity in bit 16. The magnitude is
// derived state and is not part of the word.
func (t Token) Pack() uint32 {
	w := uint32(t.Amplitude) & 0xFFF
	w |= uint32(t.RunLength&0xF) << 12
	if t.Valid {
		w |= 1 << 16
	}
	return w
}

// UnpackToken is the inverse of Pack. The magnitude is recomputed from
// the amplitude.
func UnpackToken(w uint32) Token {
	amp := rle.Signed12(int32(w & 0xFFF))
	return Token{
		Amplitude: amp,
		RunLength: uint8(w>>12) & 0xF,
		Valid:     w&(1<<16) != 0,
		Magnitude: rle.Magnitude(amp),
	}
}

// tokenFromWord converts a datapath output word into a public token.
func tokenFromWord(w rle.Word) Token {
	return Token{
		Amplitude: w.Amplitude,
		RunLength: w.Run,
		Valid:     w.Valid,
		Magnitude: w.Magnitude,
	}
}
