// Package rle implements the coefficient-level datapath of the run-length
// encoding stage.
//
// The datapath consumes one quantized transform coefficient per cycle and
// produces one output word per cycle. The first coefficient of each block
// (the DC coefficient) is encoded as a delta against the previous block's
// DC value; the remaining coefficients (AC) are encoded as an amplitude
// preceded by the count of zero coefficients since the last amplitude.
// Runs longer than 15 zeros are broken up with long-zero-run markers, and
// a block that ends while a run is still open closes with an end-of-block
// word.
package rle

const (
	// BlockSize is the number of coefficients in one transform block.
	BlockSize = 64

	// MaxZeroRun is the longest run of zeros a single word can describe,
	// the capacity of the 4-bit run counter.
	MaxZeroRun = 15

	// Latency is the fixed number of cycles between a coefficient
	// entering the datapath and its word leaving it.
	Latency = 3
)

// Word is one datapath output cycle.
type Word struct {
	// Amplitude is the encoded value: the DC delta at position 0, or the
	// raw coefficient at a nonzero AC position. 12-bit two's complement.
	Amplitude int16

	// Run is the number of zero coefficients preceding Amplitude.
	Run uint8

	// Valid reports whether this cycle carries an encoded event. Cycles
	// that merely extend a zero run are filler and leave Valid clear.
	Valid bool

	// Magnitude is the sign-corrected absolute amplitude. It feeds the
	// bit-length computation in the downstream entropy stage and is not
	// consumed here.
	Magnitude uint16
}

// In presents one coefficient cycle to the datapath.
type In struct {
	Pos   uint8 // position within the block, 0..63
	Data  int16 // signed 12-bit coefficient
	Valid bool  // whether this cycle carries a real coefficient
}

// Datapath maps one coefficient per cycle to an encoded word, keeping the
// previous DC value and the current zero run across cycles. Outputs trail
// inputs by Latency cycles; pending words travel through a fixed-depth
// delay line so the alignment survives input bubbles.
//
// The zero state is the power-on state: previous DC of 0 and an empty run.
type Datapath struct {
	prevDC  int16
	zeroRun uint8

	stage Word              // compute-stage register
	delay [Latency - 1]Word // output alignment
}

// Reset returns the datapath to its power-on state.
func (d *Datapath) Reset() {
	*d = Datapath{}
}

// Out returns the word leaving the datapath this cycle. It reflects the
// input presented Latency cycles earlier.
func (d *Datapath) Out() Word {
	return d.delay[len(d.delay)-1]
}

// Tick commits one clock cycle: the compute stage consumes in, the delay
// line shifts, and all registers update together.
func (d *Datapath) Tick(in In) {
	word, prevDC, zeroRun := d.next(in)
	for i := len(d.delay) - 1; i > 0; i-- {
		d.delay[i] = d.delay[i-1]
	}
	d.delay[0] = d.stage
	d.stage = word
	d.prevDC = prevDC
	d.zeroRun = zeroRun
}

// next computes the word and state produced by one cycle. It reads only
// current register values, so evaluating it does not disturb the datapath.
func (d *Datapath) next(in In) (word Word, prevDC int16, zeroRun uint8) {
	if !in.Valid {
		// Input bubble: the delay line advances, state holds.
		return Word{}, d.prevDC, d.zeroRun
	}

	v := Signed12(int32(in.Data))
	switch {
	case in.Pos == 0:
		// DC coefficient: encode the difference from the previous
		// block's DC value and remember the new one.
		delta := Signed12(int32(v) - int32(d.prevDC))
		return Word{Amplitude: delta, Valid: true, Magnitude: Magnitude(delta)}, v, 0

	case v == 0 && d.zeroRun == MaxZeroRun:
		// Sixteenth zero in a row: emit the long-zero-run marker. The
		// 4-bit counter wraps 15 -> 0, so the next run starts fresh.
		return Word{Run: MaxZeroRun, Valid: true}, d.prevDC, 0

	case v == 0 && in.Pos == BlockSize-1:
		// The block ended with a run still open: end-of-block.
		return Word{Valid: true}, d.prevDC, d.zeroRun

	case v == 0:
		return Word{}, d.prevDC, d.zeroRun + 1

	default:
		// A nonzero AC coefficient closes the current run.
		return Word{Amplitude: v, Run: d.zeroRun, Valid: true, Magnitude: Magnitude(v)}, d.prevDC, 0
	}
}

// Signed12 truncates v to 12-bit two's complement, the width of the
// amplitude field.
func Signed12(v int32) int16 {
	v &= 0xFFF
	if v&0x800 != 0 {
		v -= 0x1000
	}
	return int16(v)
}

// Magnitude folds the sign out of a 12-bit amplitude.
func Magnitude(v int16) uint16 {
	if v < 0 {
		return uint16(-int32(v))
	}
	return uint16(v)
}
