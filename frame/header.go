// Package frame implements parsing and reconstruction of a single ALAC
// frame: the fixed-layout frame and subframe headers, the adaptive Rice
// residual decoder, the adaptive LPC predictor, and inter-channel
// decorrelation. The package is stateless aside from the caller-owned
// coefficient tables it mutates (see SubframeHeader.CoefTable).
package frame

import (
	"github.com/pkg/errors"

	"github.com/go-alac/alac/internal/bits"
)

// MaxCoefCount is the largest predictor coefficient count a conforming
// ALAC subframe header can carry (the field is 5 bits wide).
const MaxCoefCount = 31

// FrameHeader describes the fixed-layout header that precedes every ALAC
// frame's subframe data.
type FrameHeader struct {
	// Channels is channels_minus_one+1; it must equal the stream's
	// channel count.
	Channels int
	// HasSize reports whether OutputSamples was carried explicitly in
	// the header rather than defaulting to the stream's
	// max_samples_per_frame.
	HasSize bool
	// WastedBits is 0..3; multiplied by 8 it gives the number of
	// least-significant bits stripped from each sample before encoding.
	WastedBits uint8
	// IsNotCompressed selects the raw interleaved-sample path.
	IsNotCompressed bool
	// OutputSamples is the number of PCM frames this ALAC frame decodes
	// to.
	OutputSamples uint32
}

// ReadFrameHeader parses a FrameHeader. maxSamplesPerFrame supplies
// OutputSamples when the header does not carry its own size.
func ReadFrameHeader(br *bits.Reader, maxSamplesPerFrame uint32) (*FrameHeader, error) {
	channelsMinusOne, err := br.ReadBits(3)
	if err != nil {
		return nil, errors.Wrap(err, "frame: reading channel count")
	}

	// 16 reserved bits; present in every frame, always ignored.
	if _, err := br.ReadBits(16); err != nil {
		return nil, errors.Wrap(err, "frame: reading reserved header field")
	}

	hasSizeBit, err := br.ReadBits(1)
	if err != nil {
		return nil, errors.Wrap(err, "frame: reading has_size flag")
	}

	wastedBits, err := br.ReadBits(2)
	if err != nil {
		return nil, errors.Wrap(err, "frame: reading wasted_bits field")
	}

	isNotCompressed, err := br.ReadBits(1)
	if err != nil {
		return nil, errors.Wrap(err, "frame: reading is_not_compressed flag")
	}

	hdr := &FrameHeader{
		Channels:        int(channelsMinusOne) + 1,
		HasSize:         hasSizeBit != 0,
		WastedBits:      uint8(wastedBits),
		IsNotCompressed: isNotCompressed != 0,
		OutputSamples:   maxSamplesPerFrame,
	}

	if hdr.HasSize {
		outputSamples, err := br.ReadBits(32)
		if err != nil {
			return nil, errors.Wrap(err, "frame: reading output_samples field")
		}
		hdr.OutputSamples = outputSamples
	}

	return hdr, nil
}

// SubframeHeader describes one channel's prediction parameters. Its
// CoefTable is owned-by-the-decoder scratch: ReadSubframeHeader resets
// and repopulates it at the start of every frame, and the predictor (see
// Predict) mutates it as part of ALAC's adaptive-LPC scheme. There is no
// explicit per-frame reset beyond that overwrite.
type SubframeHeader struct {
	// PredictionType; only 0 (the sole defined ALAC predictor) is
	// supported.
	PredictionType uint8
	// PredictionQuantitization is the right-shift amount applied to the
	// LPC accumulator.
	PredictionQuantitization uint8
	// RiceModifier is parsed for diagnostics only; the decoder core does
	// not consume it.
	RiceModifier uint8
	// CoefTable holds the subframe's predictor coefficients, reused and
	// overwritten across frames.
	CoefTable []int32
}

// ReadSubframeHeader parses one subframe header, resetting and
// repopulating sh.CoefTable.
func ReadSubframeHeader(br *bits.Reader, sh *SubframeHeader) error {
	predictionType, err := br.ReadBits(4)
	if err != nil {
		return errors.Wrap(err, "frame: reading prediction_type")
	}

	predictionQuant, err := br.ReadBits(4)
	if err != nil {
		return errors.Wrap(err, "frame: reading prediction_quantitization")
	}

	riceModifier, err := br.ReadBits(3)
	if err != nil {
		return errors.Wrap(err, "frame: reading rice_modifier")
	}

	coefCount, err := br.ReadBits(5)
	if err != nil {
		return errors.Wrap(err, "frame: reading predictor_coef_num")
	}

	sh.PredictionType = uint8(predictionType)
	sh.PredictionQuantitization = uint8(predictionQuant)
	sh.RiceModifier = uint8(riceModifier)
	sh.CoefTable = sh.CoefTable[:0]

	for i := uint32(0); i < coefCount; i++ {
		coef, err := br.ReadSignedBits(16)
		if err != nil {
			return errors.Wrap(err, "frame: reading predictor coefficient")
		}
		sh.CoefTable = append(sh.CoefTable, coef)
	}

	return nil
}
