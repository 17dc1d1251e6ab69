package sched

import (
	"testing"

	"github.com/mrjoshuak/go-jpegrle/internal/rle"
)

type cycleOut struct {
	word rle.Word
	last bool
}

func always(int) bool { return true }

// runStream drives blocks through the scheduler under the given
// producer-valid, consumer-ready and clock-enable patterns, returning the
// accepted output cycles grouped by block and the cycle count used.
func runStream(t *testing.T, s *Scheduler, blocks [][]int16, produce, consume, enable func(cycle int) bool) ([][]cycleOut, int) {
	t.Helper()

	var flat []int16
	for _, b := range blocks {
		flat = append(flat, b...)
	}

	limit := 100*len(flat) + 2000
	out := make([][]cycleOut, 0, len(blocks))
	var cur []cycleOut
	fed := 0
	cycle := 0
	for ; len(out) < len(blocks); cycle++ {
		if cycle > limit {
			t.Fatalf("scheduler stalled after %d cycles", cycle)
		}
		in := In{CE: enable(cycle), SourceReady: consume(cycle)}
		if fed < len(flat) && produce(cycle) {
			in.SinkValid = true
			in.SinkData = flat[fed]
		}
		o := s.Step(in)
		if !in.CE {
			continue
		}
		if o.SinkReady && in.SinkValid {
			fed++
		}
		if o.SourceValid && in.SourceReady {
			cur = append(cur, cycleOut{o.Word, o.SourceLast})
			if o.SourceLast {
				out = append(out, cur)
				cur = nil
			}
		}
	}
	return out, cycle
}

// block64 builds a 64-coefficient block from sparse position/value pairs.
func block64(values map[int]int16) []int16 {
	block := make([]int16, rle.BlockSize)
	for pos, v := range values {
		block[pos] = v
	}
	return block
}

func wordSeq(blocks [][]cycleOut) []rle.Word {
	var words []rle.Word
	for _, b := range blocks {
		for _, c := range b {
			if c.word.Valid {
				words = append(words, c.word)
			}
		}
	}
	return words
}

func TestSchedulerLatencyReport(t *testing.T) {
	if got := New().Latency(); got != rle.Latency {
		t.Errorf("Latency() = %d, want %d", got, rle.Latency)
	}
}

func TestSchedulerSingleBlock(t *testing.T) {
	s := New()
	blocks, _ := runStream(t, s, [][]int16{block64(map[int]int16{0: 5, 4: 3})}, always, always, always)

	cycles := blocks[0]
	if len(cycles) != rle.BlockSize {
		t.Fatalf("block produced %d output cycles, want %d", len(cycles), rle.BlockSize)
	}
	for i, c := range cycles {
		if c.last != (i == rle.BlockSize-1) {
			t.Errorf("cycle %d: last = %v", i, c.last)
		}
	}

	want := map[int]rle.Word{
		0:  {Amplitude: 5, Valid: true, Magnitude: 5},
		4:  {Amplitude: 3, Run: 3, Valid: true, Magnitude: 3},
		20: {Run: rle.MaxZeroRun, Valid: true},
		36: {Run: rle.MaxZeroRun, Valid: true},
		52: {Run: rle.MaxZeroRun, Valid: true},
		63: {Valid: true},
	}
	for pos, c := range cycles {
		expect, ok := want[pos]
		if !ok {
			if c.word.Valid {
				t.Errorf("cycle %d: unexpected valid word %+v", pos, c.word)
			}
			continue
		}
		if c.word != expect {
			t.Errorf("cycle %d: got %+v, want %+v", pos, c.word, expect)
		}
	}
}

func TestSchedulerDCChain(t *testing.T) {
	s := New()
	blocks, _ := runStream(t, s, [][]int16{
		block64(map[int]int16{0: 10, 1: 4}),
		block64(map[int]int16{0: 7, 1: 4}),
	}, always, always, always)

	if got := blocks[0][0].word.Amplitude; got != 10 {
		t.Errorf("first block DC delta = %d, want 10", got)
	}
	if got := blocks[1][0].word.Amplitude; got != -3 {
		t.Errorf("second block DC delta = %d, want -3", got)
	}
}

func TestSchedulerBlockOverlap(t *testing.T) {
	// With the consumer always ready, the write side must accept the
	// second block while the first is still draining: two blocks take
	// well under the 4*64 cycles a fully serialized schedule would need.
	s := New()
	blocks, cycles := runStream(t, s, [][]int16{
		block64(map[int]int16{0: 1, 5: 2}),
		block64(map[int]int16{0: 2, 9: -4}),
	}, always, always, always)

	for i, b := range blocks {
		if len(b) != rle.BlockSize {
			t.Errorf("block %d: %d output cycles, want %d", i, len(b), rle.BlockSize)
		}
	}
	if cycles > 3*rle.BlockSize+16 {
		t.Errorf("two overlapped blocks took %d cycles", cycles)
	}
}

func TestSchedulerBackpressure(t *testing.T) {
	ref := New()
	want, _ := runStream(t, ref, [][]int16{
		block64(map[int]int16{0: 5, 4: 3, 40: -100}),
		block64(map[int]int16{0: -5, 63: 1}),
	}, always, always, always)

	patterns := []struct {
		name    string
		produce func(int) bool
		consume func(int) bool
	}{
		{"producer gaps", func(c int) bool { return c%3 != 0 }, always},
		{"consumer stalls", always, func(c int) bool { return c%2 == 0 }},
		{"both sides stall", func(c int) bool { return c%5 != 1 }, func(c int) bool { return c%7 != 3 }},
	}
	for _, tt := range patterns {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			got, _ := runStream(t, s, [][]int16{
				block64(map[int]int16{0: 5, 4: 3, 40: -100}),
				block64(map[int]int16{0: -5, 63: 1}),
			}, tt.produce, tt.consume, always)

			gotWords, wantWords := wordSeq(got), wordSeq(want)
			if len(gotWords) != len(wantWords) {
				t.Fatalf("%d valid words, want %d", len(gotWords), len(wantWords))
			}
			for i := range wantWords {
				if gotWords[i] != wantWords[i] {
					t.Errorf("word %d: got %+v, want %+v", i, gotWords[i], wantWords[i])
				}
			}
			for i, b := range got {
				if len(b) != rle.BlockSize {
					t.Errorf("block %d: %d output cycles, want %d", i, len(b), rle.BlockSize)
				}
			}
		})
	}
}

func TestSchedulerClockEnable(t *testing.T) {
	// Cycles with the enable deasserted must be complete holds.
	ref := New()
	want, _ := runStream(t, ref, [][]int16{block64(map[int]int16{0: 9, 7: -2})}, always, always, always)

	s := New()
	got, _ := runStream(t, s, [][]int16{block64(map[int]int16{0: 9, 7: -2})},
		always, always, func(c int) bool { return c%2 == 0 })

	gotWords, wantWords := wordSeq(got), wordSeq(want)
	if len(gotWords) != len(wantWords) {
		t.Fatalf("%d valid words under gated clock, want %d", len(gotWords), len(wantWords))
	}
	for i := range wantWords {
		if gotWords[i] != wantWords[i] {
			t.Errorf("word %d: got %+v, want %+v", i, gotWords[i], wantWords[i])
		}
	}
}

func TestSchedulerNoOutputBeforeFirstBlockWritten(t *testing.T) {
	s := New()
	block := block64(map[int]int16{0: 3})
	for i := 0; i < len(block); i++ {
		out := s.Step(In{CE: true, SinkValid: true, SinkData: block[i], SourceReady: true})
		if out.SourceValid {
			t.Fatalf("source valid at cycle %d, before the block completed", i)
		}
		if !out.SinkReady {
			i-- // awaiting the slot out of reset
		}
	}
}

func TestSchedulerReset(t *testing.T) {
	s := New()
	// Abandon a half-written block, then reset mid-stream.
	for i := 0; i < 10; i++ {
		s.Step(In{CE: true, SinkValid: true, SinkData: 77, SourceReady: true})
	}
	s.Reset()

	blocks, _ := runStream(t, s, [][]int16{block64(map[int]int16{0: 77})}, always, always, always)
	if got := blocks[0][0].word.Amplitude; got != 77 {
		t.Errorf("DC delta after reset = %d, want raw value 77", got)
	}
}
