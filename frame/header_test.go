package frame

import (
	"bytes"
	"testing"

	alacbits "github.com/go-alac/alac/internal/bits"
)

// TestReadFrameHeaderUncompressed exercises the S1 header bit layout:
// channels_minus_one=0, reserved=0, has_size=0, wasted=0,
// is_not_compressed=1.
func TestReadFrameHeaderUncompressed(t *testing.T) {
	raw := bitsFromString("000" + "0000000000000000" + "0" + "00" + "1")
	br := alacbits.NewReader(bytes.NewReader(raw))

	hdr, err := ReadFrameHeader(br, 4)
	if err != nil {
		t.Fatalf("ReadFrameHeader: %v", err)
	}
	if hdr.Channels != 1 {
		t.Errorf("Channels = %d, want 1", hdr.Channels)
	}
	if hdr.HasSize {
		t.Error("HasSize = true, want false")
	}
	if hdr.WastedBits != 0 {
		t.Errorf("WastedBits = %d, want 0", hdr.WastedBits)
	}
	if !hdr.IsNotCompressed {
		t.Error("IsNotCompressed = false, want true")
	}
	if hdr.OutputSamples != 4 {
		t.Errorf("OutputSamples = %d, want 4 (from max_spf)", hdr.OutputSamples)
	}
}

func TestReadFrameHeaderHasSize(t *testing.T) {
	raw := bitsFromString("001" + "0000000000000000" + "1" + "10" + "0" + "00000000000000000000000000000101")
	br := alacbits.NewReader(bytes.NewReader(raw))

	hdr, err := ReadFrameHeader(br, 4)
	if err != nil {
		t.Fatalf("ReadFrameHeader: %v", err)
	}
	if hdr.Channels != 2 {
		t.Errorf("Channels = %d, want 2", hdr.Channels)
	}
	if !hdr.HasSize {
		t.Error("HasSize = false, want true")
	}
	if hdr.WastedBits != 2 {
		t.Errorf("WastedBits = %d, want 2", hdr.WastedBits)
	}
	if hdr.IsNotCompressed {
		t.Error("IsNotCompressed = true, want false")
	}
	if hdr.OutputSamples != 5 {
		t.Errorf("OutputSamples = %d, want 5", hdr.OutputSamples)
	}
}

func TestReadSubframeHeader(t *testing.T) {
	// prediction_type=0 (4b), prediction_quantitization=9 (4b),
	// rice_modifier=4 (3b), coef_count=2 (5b), then two signed 16-bit
	// coefficients: -1, 256.
	raw := bitsFromString(
		"0000" + "1001" + "100" + "00010" +
			"1111111111111111" + "0000000100000000",
	)
	br := alacbits.NewReader(bytes.NewReader(raw))

	var sh SubframeHeader
	if err := ReadSubframeHeader(br, &sh); err != nil {
		t.Fatalf("ReadSubframeHeader: %v", err)
	}

	if sh.PredictionType != 0 {
		t.Errorf("PredictionType = %d, want 0", sh.PredictionType)
	}
	if sh.PredictionQuantitization != 9 {
		t.Errorf("PredictionQuantitization = %d, want 9", sh.PredictionQuantitization)
	}
	if sh.RiceModifier != 4 {
		t.Errorf("RiceModifier = %d, want 4", sh.RiceModifier)
	}
	if len(sh.CoefTable) != 2 {
		t.Fatalf("len(CoefTable) = %d, want 2", len(sh.CoefTable))
	}
	if sh.CoefTable[0] != -1 || sh.CoefTable[1] != 256 {
		t.Errorf("CoefTable = %v, want [-1, 256]", sh.CoefTable)
	}
}

// TestReadSubframeHeaderResetsCoefTable ensures a stale, longer
// coefficient table from a previous frame is fully overwritten rather
// than merely appended to.
func TestReadSubframeHeaderResetsCoefTable(t *testing.T) {
	raw := bitsFromString("0000" + "0000" + "000" + "00001" + "0000000000000001")
	br := alacbits.NewReader(bytes.NewReader(raw))

	sh := SubframeHeader{CoefTable: []int32{9, 9, 9, 9, 9}}
	if err := ReadSubframeHeader(br, &sh); err != nil {
		t.Fatalf("ReadSubframeHeader: %v", err)
	}
	if len(sh.CoefTable) != 1 || sh.CoefTable[0] != 1 {
		t.Errorf("CoefTable = %v, want [1]", sh.CoefTable)
	}
}
