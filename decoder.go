// Package alac implements an ALAC (Apple Lossless Audio Codec) frame
// decoder: given a byte stream positioned at the start of a compressed
// ALAC frame, together with stream parameters either supplied directly
// or recovered from an MP4 container via package mp4, it produces
// deinterleaved PCM for that frame.
package alac

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"

	alacbits "github.com/go-alac/alac/internal/bits"
	"github.com/go-alac/alac/internal/ints"

	"github.com/go-alac/alac/frame"
	"github.com/go-alac/alac/mp4"
)

// frameSignature is the 3-bit marker required at the end of every frame,
// compressed or not, before byte alignment.
const frameSignature = 0b111

// Decoder is the owning handle for a single ALAC stream: the underlying
// byte source, the bit reader built on top of it, the stream parameters,
// reusable per-channel buffers, and the per-channel subframe headers
// whose coefficient tables persist and mutate across frames.
type Decoder struct {
	r  io.ReadSeeker
	br *alacbits.Reader

	info StreamInfo

	subframeHeaders []frame.SubframeHeader

	residuals         ints.Channels
	subframeSamples   ints.Channels
	wastedBitsSamples ints.Channels
	output            ints.Channels

	remainingFrames int64
	closed          bool

	logger *charmlog.Logger
}

// NewDecoder returns a Decoder reading ALAC frames from r. It seeks r back
// to its start, walks the top-level atoms with mp4.LocateMdat, and leaves
// r positioned at the mdat payload; r's position on entry is ignored.
func NewDecoder(r io.ReadSeeker, info StreamInfo) (*Decoder, error) {
	info, err := NewStreamInfo(info)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "alac: seeking to start of stream")
	}

	payloadOffset, _, err := mp4.LocateMdat(r)
	if err != nil {
		return nil, errors.Wrap(err, "alac: locating mdat")
	}
	if _, err := r.Seek(payloadOffset, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "alac: seeking to mdat payload")
	}

	channels := int(info.Channels)
	capacity := int(info.MaxSamplesPerFrame)

	d := &Decoder{
		r:                 r,
		br:                alacbits.NewReader(r),
		info:              info,
		subframeHeaders:   make([]frame.SubframeHeader, channels),
		residuals:         ints.NewChannels(channels, capacity),
		subframeSamples:   ints.NewChannels(channels, capacity),
		wastedBitsSamples: ints.NewChannels(channels, capacity),
		output:            ints.NewChannels(channels, capacity),
		remainingFrames:   info.TotalFrames,
		logger:            charmlog.New(os.Stderr),
	}
	d.logger.SetPrefix("alac")

	return d, nil
}

// Open opens path, locates its ALAC track via package mp4, and returns a
// Decoder configured from the track's magic cookie.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "alac: opening file")
	}

	cookie, samples, err := mp4.FindALACTrack(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "alac: locating ALAC track")
	}

	config, err := mp4.ParseALACSpecificConfig(cookie)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "alac: parsing magic cookie")
	}

	// The sample table gives a packet count, not a PCM frame count (that
	// would require reading 'stts' as well, which is outside the core
	// decoder's concern); treat it as an upper bound on total_frames and
	// let ReadFrame's own end-of-mdat handling end the stream precisely.
	totalFrames := int64(len(samples)) * int64(config.FrameLength)

	info := config.StreamInfo(totalFrames)

	d, err := NewDecoder(f, info)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

// SampleRate returns the stream's sample rate in Hz.
func (d *Decoder) SampleRate() uint32 { return d.info.SampleRate }

// Channels returns the stream's channel count.
func (d *Decoder) Channels() uint8 { return d.info.Channels }

// ChannelMask returns the stream's opaque channel layout mask.
func (d *Decoder) ChannelMask() uint32 { return d.info.ChannelMask }

// BitsPerSample returns the stream's bit depth.
func (d *Decoder) BitsPerSample() uint8 { return d.info.BitsPerSample }

// Close releases the decoder's resources. It is safe to call multiple
// times.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if closer, ok := d.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadFrame decodes one frame, returning io.EOF once remainingFrames has
// been exhausted.
func (d *Decoder) ReadFrame() (*audio.IntBuffer, error) {
	if d.remainingFrames <= 0 {
		return nil, io.EOF
	}

	d.output.Reset()

	hdr, err := frame.ReadFrameHeader(d.br, d.info.MaxSamplesPerFrame)
	if err != nil {
		return nil, errors.Wrap(err, "alac: reading frame header")
	}
	if hdr.Channels != int(d.info.Channels) {
		return nil, errors.Wrapf(ErrChannelMismatch, "frame declares %d channels, stream has %d", hdr.Channels, d.info.Channels)
	}

	outputSamples := int(hdr.OutputSamples)

	if hdr.IsNotCompressed {
		if err := d.readUncompressed(hdr, outputSamples); err != nil {
			return nil, err
		}
	} else {
		if err := d.readCompressed(hdr, outputSamples); err != nil {
			return nil, err
		}
	}

	if err := d.verifyFrameEnd(); err != nil {
		return nil, err
	}

	d.remainingFrames -= int64(outputSamples)

	return toIntBuffer(d.output, outputSamples, int(d.info.SampleRate), int(d.info.BitsPerSample)), nil
}

// readUncompressed reads the raw interleaved-sample path directly into
// the output channel buffers.
func (d *Decoder) readUncompressed(hdr *frame.FrameHeader, outputSamples int) error {
	for ch := range d.output {
		d.output[ch].Reset()
	}

	for i := 0; i < outputSamples; i++ {
		for ch := 0; ch < hdr.Channels; ch++ {
			v, err := d.br.ReadSignedBits(d.info.BitsPerSample)
			if err != nil {
				return errors.Wrap(err, "alac: reading uncompressed sample")
			}
			d.output[ch].Append(v)
		}
	}

	return nil
}

// readCompressed drives the full compressed path: subframe headers,
// wasted bits, per-channel residual decode and prediction, and
// decorrelation.
func (d *Decoder) readCompressed(hdr *frame.FrameHeader, outputSamples int) error {
	shift, err := d.br.ReadBits(8)
	if err != nil {
		return errors.Wrap(err, "alac: reading interlacing_shift")
	}
	leftWeight, err := d.br.ReadBits(8)
	if err != nil {
		return errors.Wrap(err, "alac: reading interlacing_leftweight")
	}

	for ch := 0; ch < hdr.Channels; ch++ {
		if err := frame.ReadSubframeHeader(d.br, &d.subframeHeaders[ch]); err != nil {
			return errors.Wrapf(err, "alac: reading subframe header for channel %d", ch)
		}
		if d.subframeHeaders[ch].PredictionType != 0 {
			return errors.Wrapf(ErrUnsupportedPrediction, "channel %d prediction_type %d", ch, d.subframeHeaders[ch].PredictionType)
		}
	}

	if hdr.WastedBits > 0 {
		if err := d.readWastedBits(hdr, outputSamples); err != nil {
			return err
		}
	}

	sampleSize := int(d.info.BitsPerSample) - int(hdr.WastedBits)*8 + hdr.Channels - 1

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
			return errors.Wrapf(err, "alac: decoding residuals for channel %d", ch)
		}

		warning, err := frame.Predict(
			d.residuals[ch],
			d.subframeHeaders[ch].CoefTable,
			d.subframeHeaders[ch].PredictionQuantitization,
			outputSamples,
			d.subframeSamples[ch],
		)
		if err != nil {
			return errors.Wrapf(err, "alac: predicting channel %d", ch)
		}
		if warning != nil {
			d.logger.Warn("non-standard coefficient count", "channel", ch, "error", warning)
		}
	}

	frame.Decorrelate(d.output, d.subframeSamples, uint8(shift), uint8(leftWeight), outputSamples)

	if hdr.WastedBits > 0 {
		d.mergeWastedBits(hdr, outputSamples)
	}

	return nil
}

// readWastedBits reads the wasted-bits block: output_samples*channels
// fixed-width unsigned values, interleaved sample-major, each
// wasted_bits*8 bits wide.
func (d *Decoder) readWastedBits(hdr *frame.FrameHeader, outputSamples int) error {
	width := uint8(hdr.WastedBits) * 8

	for ch := range d.wastedBitsSamples {
		d.wastedBitsSamples[ch].Reset()
	}

	for i := 0; i < outputSamples; i++ {
		for ch := 0; ch < hdr.Channels; ch++ {
			v, err := d.br.ReadBits(width)
			if err != nil {
				return errors.Wrap(err, "alac: reading wasted-bits sample")
			}
			d.wastedBitsSamples[ch].Append(int32(v))
		}
	}

	return nil
}

// mergeWastedBits folds the previously-read wasted-bits block back into
// the decorrelated output samples.
func (d *Decoder) mergeWastedBits(hdr *frame.FrameHeader, outputSamples int) {
	shift := uint8(hdr.WastedBits) * 8

	for ch := 0; ch < hdr.Channels; ch++ {
		for i := 0; i < outputSamples; i++ {
			merged := (d.output[ch].At(i) << shift) | d.wastedBitsSamples[ch].At(i)
			d.output[ch].Set(i, merged)
		}
	}
}

// verifyFrameEnd requires the next 3 bits to equal 0b111, then
// byte-aligns the reader.
func (d *Decoder) verifyFrameEnd() error {
	marker, err := d.br.ReadBits(3)
	if err != nil {
		return errors.Wrap(err, "alac: reading end-of-frame marker")
	}
	if marker != frameSignature {
		return errors.Wrapf(ErrFrameSignature, "got %03b", marker)
	}
	return d.br.ByteAlign()
}
