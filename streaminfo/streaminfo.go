// Package streaminfo holds the stream parameters an ALAC decoder needs
// and that cannot be derived from the frame stream itself. It is kept
// separate from the top-level decoder package so that package mp4 (which
// produces a StreamInfo from a magic cookie) and the decoder package
// (which consumes one) do not need to import each other.
package streaminfo

import "github.com/pkg/errors"

// ErrInvalid is returned by New when a stream parameter is outside the
// range the decoder core can operate on.
var ErrInvalid = errors.New("streaminfo: invalid stream parameters")

// StreamInfo holds the nine stream parameters that are immutable for the
// lifetime of a decoder. They are ordinarily supplied out-of-band by an
// MP4 demuxer (see package mp4's ALACSpecificConfig, which parses them out
// of the 'alac' magic cookie) rather than derived from the frame stream
// itself.
type StreamInfo struct {
	SampleRate         uint32
	Channels           uint8
	ChannelMask        uint32
	BitsPerSample      uint8
	TotalFrames        int64
	MaxSamplesPerFrame uint32
	HistoryMultiplier  uint8
	InitialHistory     uint16
	MaximumK           uint8
}

// New validates and returns a StreamInfo.
func New(info StreamInfo) (StreamInfo, error) {
	if info.Channels < 1 || info.Channels > 8 {
		return StreamInfo{}, errors.Wrapf(ErrInvalid, "channel count %d outside 1..8", info.Channels)
	}
	if info.MaxSamplesPerFrame == 0 {
		return StreamInfo{}, errors.Wrap(ErrInvalid, "max_samples_per_frame must be nonzero")
	}
	if info.BitsPerSample == 0 {
		return StreamInfo{}, errors.Wrap(ErrInvalid, "bits_per_sample must be nonzero")
	}
	return info, nil
}
