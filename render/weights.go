package render

import (
	"errors"
	"fmt"
)

// MaxCycle bounds the levels a Scheduler can encode (and so its cycle length).
const MaxCycle = 255

// ErrMaxLevel is returned for a max level outside [1, MaxCycle].
var ErrMaxLevel = errors.New("render: max level out of range")

// Weights returns the sub-frame durations, in ticks, used to encode levels
// 0..maxLevel.
//
// The table holds binary weights 1, 2, 4, ... for as long as their sum stays
// within maxLevel, followed by a single remainder sub-frame that makes the
// total exactly maxLevel. For maxLevel 9 that is {1, 2, 4, 2}.
func Weights(maxLevel int) ([]int, error) {
	if maxLevel < 1 || maxLevel > MaxCycle {
		return nil, fmt.Errorf("%w: %d", ErrMaxLevel, maxLevel)
	}
	var w []int
	sum := 0
	for p := 1; sum+p <= maxLevel; p <<= 1 {
		w = append(w, p)
		sum += p
	}
	if rem := maxLevel - sum; rem > 0 {
		w = append(w, rem)
	}
	return w, nil
}

// planeMasks returns, for each level, the set of sub-frames (bit i = plane i)
// during which a pixel at that level is lit.
//
// Levels up to the binary sum use their own bits. Higher levels light the
// remainder plane plus the bits of (level - remainder). Either way the lit
// weights add up to the level.
func planeMasks(weights []int, maxLevel int) []uint16 {
	binary := len(weights)
	rem := 0
	sum := 0
	for i, w := range weights {
		if w != 1<<i {
			binary, rem = i, w
			break
		}
		sum += w
	}

	masks := make([]uint16, maxLevel+1)
	for l := range masks {
		if l <= sum {
			masks[l] = uint16(l)
			continue
		}
		masks[l] = uint16(l-rem) | 1<<binary
	}
	return masks
}
