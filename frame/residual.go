package frame

import (
	"math/bits"

	"github.com/pkg/errors"

	alacbits "github.com/go-alac/alac/internal/bits"
	"github.com/go-alac/alac/internal/ints"
)

// riceThreshold is the maximum unary run length before a residual falls
// back to a raw sample_size-bit binary encoding.
const riceThreshold = 8

// Log2Floor returns -1 for v == 0, else the index of the highest set bit
// of v (equivalently bit_width(v)-1): 2^Log2Floor(v) <= v < 2^(Log2Floor(v)+1).
func Log2Floor(v int32) int32 {
	if v == 0 {
		return -1
	}
	return int32(bits.Len32(uint32(v))) - 1
}

// Sign returns +1, -1, or 0 matching the sign of x.
func Sign(x int32) int32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// DecodeResiduals decodes exactly count signed residuals into out (which
// is reset first), using adaptive Rice coding with a history-driven
// parameter k and a zero-run escape.
//
// sampleSize is the bit width used for the raw fallback encoding (see
// readResidual); initialHistory seeds the running history estimator;
// historyMultiplier scales its update; maxK bounds the Rice parameter.
func DecodeResiduals(
	br *alacbits.Reader,
	out *ints.Array,
	count int,
	sampleSize uint8,
	initialHistory uint32,
	historyMultiplier uint32,
	maxK uint8,
) error {
	out.Reset()

	history := initialHistory
	signModifier := uint32(0)

	for i := 0; i < count; i++ {
		k := kFromHistory(history, maxK)

		u, err := readResidual(br, k, sampleSize)
		if err != nil {
			return errors.Wrap(err, "frame: decoding residual")
		}
		decoded := u + signModifier

		residual := int32((decoded + 1) >> 1)
		if decoded&1 != 0 {
			residual = -residual
		}
		out.Append(residual)

		signModifier = 0

		if decoded > 0xFFFF {
			history = 0xFFFF
		} else {
			history = history + decoded*historyMultiplier - ((history * historyMultiplier) >> 9)
		}

		if history < 128 && i+1 < count {
			k2 := zeroRunK(history, maxK)

			blockSize, err := readResidual(br, k2, 16)
			if err != nil {
				return errors.Wrap(err, "frame: decoding zero-run block size")
			}

			if blockSize > 0 {
				for j := uint32(0); j < blockSize; j++ {
					out.Append(0)
					i++
				}
			}
			if blockSize <= 0xFFFF {
				signModifier = 1
			}

			history = 0
		}
	}

	return nil
}

// kFromHistory computes the adaptive Rice parameter from the running
// history estimator.
func kFromHistory(history uint32, maxK uint8) uint8 {
	k := Log2Floor(int32(history>>9) + 3)
	if k < 0 {
		k = 0
	}
	if uint8(k) > maxK {
		return maxK
	}
	return uint8(k)
}

// zeroRunK computes the Rice parameter used to decode the zero-run block
// size once history has collapsed below 128.
func zeroRunK(history uint32, maxK uint8) uint8 {
	k := 7 - Log2Floor(int32(history)) + int32((history+16)/64)
	if k < 0 {
		k = 0
	}
	if uint8(k) > maxK {
		return maxK
	}
	return uint8(k)
}

// readResidual decodes one unsigned Rice-coded value with a raw-binary
// escape: a unary prefix bounded by riceThreshold, followed (when k > 1)
// by a k-bit remainder whose two smallest values are folded back into the
// stream via a one-bit pushback rather than spent on an explicit code.
func readResidual(br *alacbits.Reader, k uint8, sampleSize uint8) (uint32, error) {
	x, err := br.ReadUnary(riceThreshold)
	if err != nil {
		return 0, err
	}

	if x > riceThreshold {
		v, err := br.ReadBits(sampleSize)
		if err != nil {
			return 0, err
		}
		return v, nil
	}

	if k <= 1 {
		return x, nil
	}

	x *= (uint32(1) << k) - 1

	extrabits, err := br.ReadBits(k)
	if err != nil {
		return 0, err
	}

	if extrabits > 1 {
		x += extrabits - 1
	} else {
		br.UnreadBit(extrabits)
	}

	return x, nil
}
