// Package tickmap maps between logical ticks and their coordinates in
// the sparse two-level tick bitmap index. Everything here is a pure
// function of its inputs; there is no shared index structure.
package tickmap

import (
	mathbits "math/bits"

	"github.com/holiman/uint256"
)

// MinTick and MaxTick bound the valid tick domain for V3/V4 pools.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Valid reports whether tick lies in the protocol tick domain.
func Valid(tick int32) bool {
	return tick >= MinTick && tick <= MaxTick
}

// Compress divides tick by spacing with floor semantics, rounding
// toward negative infinity. Native truncating division would round
// -61/60 to -1 instead of -2 and land negative ticks in the wrong
// bitmap position.
func Compress(tick, spacing int32) int32 {
	c := tick / spacing
	if tick%spacing != 0 && (tick < 0) != (spacing < 0) {
		c--
	}
	return c
}

// WordPos returns the bitmap word index holding a compressed tick.
// Arithmetic right shift keeps the sign.
func WordPos(compressed int32) int16 {
	return int16(compressed >> 8)
}

// BitPos returns the bit offset of a compressed tick within its word,
// normalized to [0, 256) for negative values.
func BitPos(compressed int32) uint8 {
	return uint8(compressed & 0xff)
}

// TickFor inverts Compress/WordPos/BitPos.
func TickFor(wordPos int16, bit uint8, spacing int32) int32 {
	return (int32(wordPos)*256 + int32(bit)) * spacing
}

// SetBits returns every set bit index of a bitmap word in ascending
// order. A zero or nil word yields an empty slice.
func SetBits(bits *uint256.Int) []uint8 {
	out := []uint8{}
	if bits == nil {
		return out
	}
	for limb := 0; limb < 4; limb++ {
		w := bits[limb]
		base := uint(limb * 64)
		for w != 0 {
			out = append(out, uint8(base+uint(mathbits.TrailingZeros64(w))))
			w &= w - 1
		}
	}
	return out
}

// FullWordRange returns the inclusive word positions covering the
// whole tick domain for a spacing.
func FullWordRange(spacing int32) (int16, int16) {
	return WordPos(Compress(MinTick, spacing)), WordPos(Compress(MaxTick, spacing))
}

// WordsAround returns the inclusive word positions within radius words
// of the given tick, clamped to the full-domain range.
func WordsAround(tick, spacing int32, radius int16) (int16, int16) {
	minWord, maxWord := FullWordRange(spacing)
	center := int32(WordPos(Compress(tick, spacing)))
	lo := center - int32(radius)
	hi := center + int32(radius)
	if lo < int32(minWord) {
		lo = int32(minWord)
	}
	if hi > int32(maxWord) {
		hi = int32(maxWord)
	}
	return int16(lo), int16(hi)
}
