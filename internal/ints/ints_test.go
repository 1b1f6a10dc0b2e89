package ints_test

import (
	"testing"

	"github.com/go-alac/alac/internal/ints"
)

func TestArrayResetKeepsCapacity(t *testing.T) {
	a := ints.NewArray(4)
	a.Append(1)
	a.Append(2)
	a.Reset()

	if a.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", a.Len())
	}
	a.Append(3)
	if a.At(0) != 3 {
		t.Errorf("At(0) = %d, want 3", a.At(0))
	}
}

func TestArrayCopy(t *testing.T) {
	src := ints.NewArray(2)
	src.Append(7)
	src.Append(8)

	dst := ints.NewArray(0)
	dst.Append(99)
	dst.Copy(src)

	if dst.Len() != 2 {
		t.Fatalf("dst.Len() = %d, want 2", dst.Len())
	}
	if dst.At(0) != 7 || dst.At(1) != 8 {
		t.Errorf("dst = [%d, %d], want [7, 8]", dst.At(0), dst.At(1))
	}
}

func TestChannelsReset(t *testing.T) {
	chans := ints.NewChannels(2, 4)
	chans[0].Append(1)
	chans[1].Append(2)

	chans.Reset()

	for i, ch := range chans {
		if ch.Len() != 0 {
			t.Errorf("channel %d Len() = %d, want 0", i, ch.Len())
		}
	}
}
