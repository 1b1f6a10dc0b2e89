package frame

import "github.com/go-alac/alac/internal/ints"

// Decorrelate undoes the encoder's inter-channel joint-stereo transform,
// parameterised per frame by shift and leftWeight. For anything other than
// two channels it is a pure copy; for two channels with leftWeight == 0 it
// is also a pure copy (the encoder chose not to decorrelate this frame).
// Bit-exactness matters here: these formulas are the algebraic inverse of
// the encoder's mid/side-like transform.
func Decorrelate(out, in ints.Channels, shift, leftWeight uint8, outputSamples int) {
	if len(in) != 2 {
		for ch := range in {
			out[ch].Copy(in[ch])
		}
		return
	}

	ch0, ch1 := in[0], in[1]
	left, right := out[0], out[1]

	if leftWeight == 0 {
		left.Copy(ch0)
		right.Copy(ch1)
		return
	}

	left.Reset()
	right.Reset()

	for i := 0; i < outputSamples; i++ {
		r := ch0.At(i) - ((ch1.At(i) * int32(leftWeight)) >> shift)
		right.Append(r)
		left.Append(ch1.At(i) + r)
	}
}
