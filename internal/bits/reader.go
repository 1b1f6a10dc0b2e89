// Package bits implements the MSB-first bit reading primitives the ALAC
// frame decoder is built on: unsigned field reads, sign extension, a
// single-bit pushback slot, unary run counting bounded by a threshold, and
// byte alignment.
package bits

import (
	"io"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// ErrUnexpectedEOF is returned when the underlying stream ends before a
// requested bit field could be read in full.
var ErrUnexpectedEOF = errors.New("bits: unexpected end of stream")

// Reader reads MSB-first bit fields from an underlying byte stream. It
// wraps a *bitio.Reader and layers on top of it the single-bit pushback
// slot and bounded unary counting that bitio does not provide natively.
type Reader struct {
	br *bitio.Reader

	pushed    bool
	pushedBit uint32

	// totalBits counts logical bits consumed from the stream, accounting
	// for pushback, so ByteAlign can find the next byte boundary without
	// relying on bitio's own internal counters.
	totalBits uint64
}

// NewReader returns a bit reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(r)}
}

// ReadBits reads an n-bit (0 <= n <= 32) unsigned field, MSB first.
func (r *Reader) ReadBits(n uint8) (uint32, error) {
	if n == 0 {
		return 0, nil
	}

	var result uint32

	if r.pushed {
		r.pushed = false

		if n == 1 {
			result = r.pushedBit
		} else {
			rest, err := r.readRaw(n - 1)
			if err != nil {
				r.pushed = true
				return 0, err
			}
			result = r.pushedBit<<(n-1) | rest
		}
	} else {
		v, err := r.readRaw(n)
		if err != nil {
			return 0, err
		}
		result = v
	}

	r.totalBits += uint64(n)

	return result, nil
}

func (r *Reader) readRaw(n uint8) (uint32, error) {
	v, err := r.br.ReadBits(n)
	if err != nil {
		return 0, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	return uint32(v), nil
}

// ReadSignedBits reads an n-bit field and sign-extends its top bit into a
// signed 32-bit value.
func (r *Reader) ReadSignedBits(n uint8) (int32, error) {
	u, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return signExtend(u, n), nil
}

// signExtend interprets x as a signed n-bit two's complement value and
// extends its sign to 32 bits.
func signExtend(x uint32, n uint8) int32 {
	if n == 0 || n >= 32 {
		return int32(x)
	}
	signBit := uint32(1) << (n - 1)
	if x&signBit != 0 {
		return int32(x | (^uint32(0) << n))
	}
	return int32(x)
}

// UnreadBit pushes one bit back onto the stream. It must only be called
// with the value of the last bit just read (the Rice decoder calls it after
// a k-bit read whose value is 0 or 1, i.e. equal to its final bit); the
// next read of any width will see that bit as its most significant bit.
func (r *Reader) UnreadBit(value uint32) {
	r.pushed = true
	r.pushedBit = value & 1
	r.totalBits--
}

// ReadUnary decodes a run of 1-bits terminated by a 0-bit, reading at most
// threshold+1 bits. If threshold+1 consecutive 1-bits are read without a
// terminating 0, it stops there and returns threshold+1 (mirroring the
// reference decoder, which treats that count as the signal to fall back
// to a raw binary encoding).
func (r *Reader) ReadUnary(threshold uint32) (uint32, error) {
	var x uint32
	for x <= threshold {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if bit != 1 {
			break
		}
		x++
	}
	return x, nil
}

// ByteAlign discards any buffered bits up to the next byte boundary.
func (r *Reader) ByteAlign() error {
	rem := uint8(r.totalBits % 8)
	if rem == 0 {
		return nil
	}
	_, err := r.ReadBits(8 - rem)
	return err
}

// BitPosition returns the number of logical bits consumed from the stream
// so far, used by callers wishing to assert byte alignment.
func (r *Reader) BitPosition() uint64 {
	return r.totalBits
}
