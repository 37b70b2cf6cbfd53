package software

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/life/gpucore"
)

// slot is one resolved binding as seen by an executing kernel.
type slot struct {
	id       gpucore.BufferID
	data     []byte
	writable bool
	read     bool
	written  bool
}

// Bindings gives kernels access to the buffers bound for a pass, addressed
// the way WGSL addresses them: @group, @binding and an element index.
//
// Values are 32-bit little-endian words. Out-of-range loads return zero and
// out-of-range stores are dropped, mirroring robust buffer access. A store
// through a uniform or read-only binding is not performed and fails the
// submission with ErrReadOnlyBinding.
//
// A Bindings value belongs to one worker and must not be shared between
// goroutines.
type Bindings struct {
	groups [][]slot
	err    error
}

func newBindings(groups []*bindGroup) *Bindings {
	b := &Bindings{groups: make([][]slot, len(groups))}
	for g, bg := range groups {
		if bg == nil {
			continue
		}
		slots := make([]slot, bg.maxBinding+1)
		for _, e := range bg.entries {
			slots[e.binding] = slot{
				id:       e.id,
				data:     e.buf.data[e.offset : e.offset+e.size],
				writable: e.typ.Writable(),
			}
		}
		b.groups[g] = slots
	}
	return b
}

func (b *Bindings) slot(group, binding uint32) *slot {
	if int(group) < len(b.groups) && int(binding) < len(b.groups[group]) {
		if s := &b.groups[group][binding]; s.data != nil {
			return s
		}
	}
	b.fail(fmt.Errorf("software: no buffer at @group(%d) @binding(%d)", group, binding))
	return nil
}

func (b *Bindings) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first access error recorded by this Bindings.
func (b *Bindings) Err() error { return b.err }

// Len returns the number of 32-bit elements in a binding, like
// arrayLength() in WGSL.
func (b *Bindings) Len(group, binding uint32) uint32 {
	s := b.slot(group, binding)
	if s == nil {
		return 0
	}
	return uint32(len(s.data) / 4)
}

// Load32 reads element index of a binding as a u32.
func (b *Bindings) Load32(group, binding, index uint32) uint32 {
	s := b.slot(group, binding)
	if s == nil {
		return 0
	}
	s.read = true
	off := uint64(index) * 4
	if off+4 > uint64(len(s.data)) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.data[off:])
}

// LoadF32 reads element index of a binding as an f32.
func (b *Bindings) LoadF32(group, binding, index uint32) float32 {
	return math.Float32frombits(b.Load32(group, binding, index))
}

// Store32 writes v to element index of a binding.
func (b *Bindings) Store32(group, binding, index, v uint32) {
	s := b.slot(group, binding)
	if s == nil {
		return
	}
	if !s.writable {
		b.fail(fmt.Errorf("%w: @group(%d) @binding(%d)", ErrReadOnlyBinding, group, binding))
		return
	}
	s.written = true
	off := uint64(index) * 4
	if off+4 > uint64(len(s.data)) {
		return
	}
	binary.LittleEndian.PutUint32(s.data[off:], v)
}

// StoreF32 writes v to element index of a binding as an f32.
func (b *Bindings) StoreF32(group, binding, index uint32, v float32) {
	b.Store32(group, binding, index, math.Float32bits(v))
}

// access folds the read and written flags of several workers' Bindings into
// sorted buffer ID lists.
func access(all []*Bindings) (reads, writes []gpucore.BufferID) {
	seenR := make(map[gpucore.BufferID]bool)
	seenW := make(map[gpucore.BufferID]bool)
	for _, b := range all {
		if b == nil {
			continue
		}
		for _, group := range b.groups {
			for _, s := range group {
				if s.read && !seenR[s.id] {
					seenR[s.id] = true
					reads = append(reads, s.id)
				}
				if s.written && !seenW[s.id] {
					seenW[s.id] = true
					writes = append(writes, s.id)
				}
			}
		}
	}
	slices.Sort(reads)
	slices.Sort(writes)
	return reads, writes
}
