package frame

import (
	"testing"

	"github.com/go-alac/alac/internal/ints"
)

// TestPredictWarmupOnly exercises S2: with N=4 zero coefficients and
// output_samples=5, the loop never leaves the warm-up phase (Step B's
// range [N+1, output_samples) is empty when output_samples == N+1), so
// every sample is the additive warm-up reconstruction.
func TestPredictWarmupOnly(t *testing.T) {
	residuals := ints.NewArray(8)
	for _, v := range []int32{100, 3, 7, -2, 5} {
		residuals.Append(v)
	}

	coef := []int32{0, 0, 0, 0}
	out := ints.NewArray(8)

	warning, err := Predict(residuals, coef, 0, 5, out)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if warning != nil {
		t.Fatalf("unexpected warning: %v", warning)
	}

	want := []int32{100, 103, 110, 108, 113}
	if out.Len() != len(want) {
		t.Fatalf("out.Len() = %d, want %d", out.Len(), len(want))
	}
	for i, w := range want {
		if got := out.At(i); got != w {
			t.Errorf("out.At(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestPredictEmptyCoefficientTable(t *testing.T) {
	residuals := ints.NewArray(1)
	residuals.Append(1)
	out := ints.NewArray(1)

	_, err := Predict(residuals, nil, 0, 1, out)
	if err != ErrEmptyCoefficientTable {
		t.Fatalf("err = %v, want ErrEmptyCoefficientTable", err)
	}
}

func TestPredictCoefficientCountWarning(t *testing.T) {
	residuals := ints.NewArray(8)
	for _, v := range []int32{1, 2, 3} {
		residuals.Append(v)
	}
	coef := []int32{1, 2, 3}
	out := ints.NewArray(8)

	warning, err := Predict(residuals, coef, 1, 3, out)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	w, ok := warning.(CoefficientCountWarning)
	if !ok {
		t.Fatalf("expected CoefficientCountWarning, got %v", warning)
	}
	if w.Count != 3 {
		t.Errorf("Count = %d, want 3", w.Count)
	}
}

// TestPredictAdaptiveStep exercises Step B and the coefficient adaptation
// loop with a single nonzero coefficient, verifying the coefficient
// mutates when residuals are nonzero.
func TestPredictAdaptiveStep(t *testing.T) {
	residuals := ints.NewArray(8)
	for _, v := range []int32{10, 1, 1, 4} {
		residuals.Append(v)
	}
	coef := []int32{2}
	out := ints.NewArray(8)

	_, err := Predict(residuals, coef, 1, 4, out)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if out.Len() != 4 {
		t.Fatalf("out.Len() = %d, want 4", out.Len())
	}
	// Warm-up: out[0]=10, out[1]=11.
	if out.At(0) != 10 || out.At(1) != 11 {
		t.Fatalf("warm-up samples = [%d, %d], want [10, 11]", out.At(0), out.At(1))
	}
	// Step B runs for i=2 and i=3 (N=1); the coefficient must have been
	// mutated away from its initial value of 2 given nonzero residuals.
	if coef[0] == 2 {
		t.Errorf("coefficient was not adapted: still %d", coef[0])
	}
}
