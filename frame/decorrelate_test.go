package frame

import (
	"testing"

	"github.com/go-alac/alac/internal/ints"
)

func channelsFrom(rows ...[]int32) ints.Channels {
	chans := make(ints.Channels, len(rows))
	for i, row := range rows {
		a := ints.NewArray(len(row))
		for _, v := range row {
			a.Append(v)
		}
		chans[i] = a
	}
	return chans
}

// TestDecorrelateStereo exercises S3.
func TestDecorrelateStereo(t *testing.T) {
	in := channelsFrom(
		[]int32{1000, 2000, 3000},
		[]int32{10, 20, 30},
	)
	out := channelsFrom([]int32{0, 0, 0}, []int32{0, 0, 0})

	Decorrelate(out, in, 2, 1, 3)

	wantRight := []int32{998, 1995, 2993}
	wantLeft := []int32{1008, 2015, 3023}

	for i := 0; i < 3; i++ {
		if got := out[1].At(i); got != wantRight[i] {
			t.Errorf("right[%d] = %d, want %d", i, got, wantRight[i])
		}
		if got := out[0].At(i); got != wantLeft[i] {
			t.Errorf("left[%d] = %d, want %d", i, got, wantLeft[i])
		}
	}
}

// TestDecorrelatePassThroughLeftWeightZero exercises invariant 8.
func TestDecorrelatePassThroughLeftWeightZero(t *testing.T) {
	in := channelsFrom([]int32{5, 6}, []int32{7, 8})
	out := channelsFrom([]int32{0, 0}, []int32{0, 0})

	Decorrelate(out, in, 3, 0, 2)

	if out[0].At(0) != 5 || out[0].At(1) != 6 {
		t.Errorf("left = [%d, %d], want [5, 6]", out[0].At(0), out[0].At(1))
	}
	if out[1].At(0) != 7 || out[1].At(1) != 8 {
		t.Errorf("right = [%d, %d], want [7, 8]", out[1].At(0), out[1].At(1))
	}
}

// TestDecorrelatePassThroughNonStereo exercises invariant 7.
func TestDecorrelatePassThroughNonStereo(t *testing.T) {
	in := channelsFrom([]int32{1, 2}, []int32{3, 4}, []int32{5, 6})
	out := channelsFrom([]int32{0, 0}, []int32{0, 0}, []int32{0, 0})

	Decorrelate(out, in, 4, 9, 2)

	for ch := range in {
		for i := 0; i < 2; i++ {
			if out[ch].At(i) != in[ch].At(i) {
				t.Errorf("channel %d sample %d = %d, want %d", ch, i, out[ch].At(i), in[ch].At(i))
			}
		}
	}
}
