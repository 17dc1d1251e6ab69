// Package sched implements the block-level controller around the
// run-length datapath.
//
// Two state machines share the controller: the write side feeds one
// coefficient per cycle into the datapath under a ready/valid handshake,
// and the read side drains one output cycle per block position to the
// consumer. The sides communicate only through two single-bit slot
// selectors, each toggled once per completed block; their equality encodes
// a pipeline depth of exactly one block in flight, so a new block can be
// accepted while the previous block's words are still draining.
package sched

import (
	"github.com/mrjoshuak/go-jpegrle/internal/rle"
)

type writeState uint8

const (
	writeAwaitSlot writeState = iota
	writeBlock
)

type readState uint8

const (
	readAwaitData readState = iota
	readBlock
)

// In carries the signals presented to the scheduler for one cycle.
type In struct {
	// CE is the shared pipeline clock enable. When clear the cycle is a
	// hold: outputs are still driven but no state changes.
	CE bool

	// SinkValid and SinkData present one coefficient on the input stream.
	SinkValid bool
	SinkData  int16

	// SourceReady reports that the consumer accepts the output cycle.
	SourceReady bool
}

// Out carries the signals the scheduler drives during one cycle.
type Out struct {
	// SinkReady is asserted while the write side accepts coefficients.
	SinkReady bool

	// SourceValid is asserted on every cycle of an output block,
	// regardless of the word's embedded validity bit. The consumer
	// filters on Word.Valid.
	SourceValid bool

	// SourceLast marks the 64th cycle of an output block.
	SourceLast bool

	// Word is the output cycle, meaningful while SourceValid.
	Word rle.Word
}

// tag rides alongside the datapath delay line, remembering where each
// in-flight word lands once it flushes.
type tag struct {
	live bool
	slot uint8
	pos  uint8
}

// Scheduler couples the write and read state machines around the
// run-length datapath. Flushed datapath words land in a two-slot block
// buffer indexed by the slot selector captured when the coefficient was
// accepted; the read side serves the opposite slot, which is what lets a
// block be written while the previous one drains.
type Scheduler struct {
	dp rle.Datapath

	writeSt  writeState
	writeCnt uint8
	writeSel uint8

	readSt  readState
	readCnt uint8
	readSel uint8

	tags [rle.Latency]tag
	buf  [2][rle.BlockSize]rle.Word
}

// New returns a scheduler in its reset state.
func New() *Scheduler {
	s := &Scheduler{}
	s.Reset()
	return s
}

// Latency reports the fixed coefficient-to-word latency of the stage, for
// the enclosing pipeline flow controller.
func (s *Scheduler) Latency() int {
	return rle.Latency
}

// Reset reinitializes both state machines, the slot selectors, the block
// buffer tags and the datapath, including its persistent DC state.
func (s *Scheduler) Reset() {
	*s = Scheduler{}
	// The read selector resets high so the write side runs first.
	s.readSel = 1
}

// Step evaluates one clock cycle: it returns the signals driven during the
// cycle and, when in.CE is set, commits the next state atomically. All
// next-state decisions read the cycle-start register values, never values
// written earlier in the same call.
func (s *Scheduler) Step(in In) Out {
	out := s.drive()
	if !in.CE {
		return out
	}

	// Cycle-start snapshot of everything the two machines share.
	writeSel, readSel := s.writeSel, s.readSel
	writeCnt := s.writeCnt
	accept := out.SinkReady && in.SinkValid
	emit := out.SourceValid && in.SourceReady

	// Land the word flushing out of the delay line this cycle.
	if flushed := s.tags[rle.Latency-1]; flushed.live {
		s.buf[flushed.slot][flushed.pos] = s.dp.Out()
	}

	// The datapath and its routing tags advance on every enabled cycle,
	// so a block's tail words flush even when the input stalls.
	s.dp.Tick(rle.In{Pos: writeCnt, Data: in.SinkData, Valid: accept})
	for i := len(s.tags) - 1; i > 0; i-- {
		s.tags[i] = s.tags[i-1]
	}
	s.tags[0] = tag{live: accept, slot: writeSel, pos: writeCnt}

	// Write side.
	switch s.writeSt {
	case writeAwaitSlot:
		s.writeCnt = 0
		if writeSel != readSel {
			s.writeSt = writeBlock
		}
	case writeBlock:
		if accept {
			if writeCnt == rle.BlockSize-1 {
				s.writeSel = writeSel ^ 1
				s.writeSt = writeAwaitSlot
			} else {
				s.writeCnt = writeCnt + 1
			}
		}
	}

	// Read side. The slot toggles on entry, which is what frees the
	// write side to start the next block while this one drains.
	switch s.readSt {
	case readAwaitData:
		s.readCnt = 0
		if readSel == writeSel {
			s.readSel = readSel ^ 1
			s.readSt = readBlock
		}
	case readBlock:
		if emit {
			if s.readCnt == rle.BlockSize-1 {
				s.readSt = readAwaitData
			} else {
				s.readCnt++
			}
		}
	}

	return out
}

// drive computes the combinational outputs for the current cycle.
func (s *Scheduler) drive() Out {
	var out Out
	out.SinkReady = s.writeSt == writeBlock
	if s.readSt == readBlock {
		out.SourceValid = true
		out.SourceLast = s.readCnt == rle.BlockSize-1
		out.Word = s.buf[s.readSel][s.readCnt]
	}
	return out
}
