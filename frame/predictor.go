package frame

import (
	"github.com/pkg/errors"

	"github.com/go-alac/alac/internal/ints"
)

// ErrEmptyCoefficientTable is returned when a subframe's predictor
// coefficient count is zero, which the format treats as fatal.
var ErrEmptyCoefficientTable = errors.New("frame: subframe coefficient table is empty")

// CoefficientCountWarning is returned by Predict (alongside a nil error)
// when the coefficient count is not one of the two values ALAC encoders
// actually emit. It is advisory: decoding still proceeds normally.
type CoefficientCountWarning struct {
	Count int
}

func (w CoefficientCountWarning) Error() string {
	return "frame: subframe coefficient count is neither 4 nor 8"
}

// Predict reconstructs one channel's samples from its decoded residuals
// using ALAC's adaptive LPC predictor. coef is mutated in place as part of
// the adaptation step, which is the mechanism distinguishing ALAC's
// predictor from a static FLAC-style LPC filter: every nonzero residual is
// first added to the prediction to form the reconstructed sample, then
// nudges the coefficients, being attenuated step by step as it does so.
//
// quant is the subframe's prediction_quantitization, the right-shift
// amount applied to the LPC accumulator. out is reset and sized to
// outputSamples.
//
// A non-nil, non-error warning is returned when coef's length is outside
// {4, 8}; callers that care may type-assert it to CoefficientCountWarning.
func Predict(residuals *ints.Array, coef []int32, quant uint8, outputSamples int, out *ints.Array) (warning error, err error) {
	n := len(coef)
	if n < 1 {
		return nil, ErrEmptyCoefficientTable
	}
	if n != 4 && n != 8 {
		warning = CoefficientCountWarning{Count: n}
	}

	out.Reset()
	if outputSamples == 0 {
		return warning, nil
	}

	// Step A: warm-up. The first sample is copied verbatim; the next n
	// samples are additive adjustments to the previous sample.
	out.Append(residuals.At(0))
	for j := 1; j <= n && j < outputSamples; j++ {
		out.Append(residuals.At(j) + out.At(j-1))
	}

	// Step B: one LPC-predicted sample per remaining residual.
	for i := n + 1; i < outputSamples; i++ {
		residual := residuals.At(i)

		base := out.At(i - n - 1)

		lpcSum := int64(1) << (quant - 1)
		for j := 0; j < n; j++ {
			lpcSum += int64(coef[j]) * int64(out.At(i-j-1)-base)
		}
		lpcSum >>= quant
		lpcSum += int64(base)

		sample := int32(int64(residual) + lpcSum)
		out.Append(sample)

		if residual == 0 {
			continue
		}

		origSign := Sign(residual)
		for j := 0; j < n; j++ {
			val := base - out.At(i-n+j)

			sign := Sign(val)
			if origSign < 0 {
				sign = -sign
			}

			coef[n-j-1] -= sign
			residual -= int32(((int64(val) * int64(sign)) >> quant) * int64(j+1))

			if Sign(residual) != origSign {
				break
			}
		}
	}

	return warning, nil
}
