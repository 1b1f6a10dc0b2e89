package alac

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-alac/alac/frame"
)

// SubframeDescription is the diagnostic view of one channel's subframe
// header, as returned by AnalyzeFrame.
type SubframeDescription struct {
	PredictionType           uint8
	PredictionQuantitization uint8
	// RiceModifier is parsed from the bitstream but has no effect on
	// decoding; it is surfaced here purely for diagnostics.
	RiceModifier  uint8
	CoefCount     int
	ResidualCount int
}

// FrameDescription is the structured, non-destructive view of one frame
// returned by AnalyzeFrame: everything up through residual decoding, but
// without running the predictor or decorrelator.
type FrameDescription struct {
	Channels              int
	OutputSamples         uint32
	WastedBits            uint8
	IsNotCompressed       bool
	InterlacingShift      uint8
	InterlacingLeftWeight uint8
	Subframes             []SubframeDescription
}

// AnalyzeFrame parses one frame's header, subframe headers, wasted bits,
// and residuals, returning their structured description without running
// the predictor or decorrelator. It consumes exactly the same bits as a
// full ReadFrame, including the trailing 0b111 marker and byte
// alignment, and returns io.EOF once remainingFrames has been exhausted.
func (d *Decoder) AnalyzeFrame() (*FrameDescription, error) {
	if d.remainingFrames <= 0 {
		return nil, io.EOF
	}

	hdr, err := frame.ReadFrameHeader(d.br, d.info.MaxSamplesPerFrame)
	if err != nil {
		return nil, errors.Wrap(err, "alac: reading frame header")
	}
	if hdr.Channels != int(d.info.Channels) {
		return nil, errors.Wrapf(ErrChannelMismatch, "frame declares %d channels, stream has %d", hdr.Channels, d.info.Channels)
	}

	outputSamples := int(hdr.OutputSamples)

	desc := &FrameDescription{
		Channels:        hdr.Channels,
		OutputSamples:   hdr.OutputSamples,
		WastedBits:      hdr.WastedBits,
		IsNotCompressed: hdr.IsNotCompressed,
	}

	if hdr.IsNotCompressed {
		for i := 0; i < outputSamples; i++ {
			for ch := 0; ch < hdr.Channels; ch++ {
				if _, err := d.br.ReadSignedBits(d.info.BitsPerSample); err != nil {
					return nil, errors.Wrap(err, "alac: reading uncompressed sample")
				}
			}
		}
	} else {
		shift, err := d.br.ReadBits(8)
		if err != nil {
			return nil, errors.Wrap(err, "alac: reading interlacing_shift")
		}
		leftWeight, err := d.br.ReadBits(8)
		if err != nil {
			return nil, errors.Wrap(err, "alac: reading interlacing_leftweight")
		}
		desc.InterlacingShift = uint8(shift)
		desc.InterlacingLeftWeight = uint8(leftWeight)

		// Unlike readCompressed, AnalyzeFrame does not reject an unsupported
		// prediction_type: it is a diagnostic view of whatever the
		// bitstream contains, and the original decoder's own analysis path
		// (ALACDecoder_analyze_frame) never performs this check either,
		// reserving it for the real decode path.
		for ch := 0; ch < hdr.Channels; ch++ {
			if err := frame.ReadSubframeHeader(d.br, &d.subframeHeaders[ch]); err != nil {
				return nil, errors.Wrapf(err, "alac: reading subframe header for channel %d", ch)
			}
		}

		if hdr.WastedBits > 0 {
			if err := d.readWastedBits(hdr, outputSamples); err != nil {
				return nil, err
			}
		}

		sampleSize := int(d.info.BitsPerSample) - int(hdr.WastedBits)*8 + hdr.Channels - 1

		desc.Subframes = make([]SubframeDescription, hdr.Channels)
		for ch := 0; ch < hdr.Channels; ch++ {
			if err := frame.DecodeResiduals(
				d.br,
				d.residuals[ch],
				outputSamples,
				uint8(sampleSize),
				uint32(d.info.InitialHistory),
				uint32(d.info.HistoryMultiplier),
				d.info.MaximumK,
			); err != nil {
				return nil, errors.Wrapf(err, "alac: decoding residuals for channel %d", ch)
			}

			sh := d.subframeHeaders[ch]
			desc.Subframes[ch] = SubframeDescription{
				PredictionType:           sh.PredictionType,
				PredictionQuantitization: sh.PredictionQuantitization,
				RiceModifier:             sh.RiceModifier,
				CoefCount:                len(sh.CoefTable),
				ResidualCount:            d.residuals[ch].Len(),
			}
		}
	}

	if err := d.verifyFrameEnd(); err != nil {
		return nil, err
	}

	d.remainingFrames -= int64(outputSamples)

	return desc, nil
}
