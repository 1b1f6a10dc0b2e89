package mp4

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/go-alac/alac/streaminfo"
)

// ALACSpecificConfigSize is the fixed size, in bytes, of the
// ALACSpecificConfig payload carried after an 'alac' sample entry's base
// fields.
const ALACSpecificConfigSize = 24

// ErrMalformedCookie is returned when a magic cookie is shorter than
// ALACSpecificConfigSize.
var ErrMalformedCookie = errors.New("mp4: malformed ALACSpecificConfig")

// ALACSpecificConfig is the magic-cookie payload an ALAC sample
// description carries: the out-of-band stream parameters an MP4 demuxer
// would otherwise have to ask a caller to supply by hand.
type ALACSpecificConfig struct {
	FrameLength       uint32
	CompatibleVersion uint8
	BitDepth          uint8
	Pb                uint8
	Mb                uint8
	Kb                uint8
	NumChannels       uint8
	MaxRun            uint16
	MaxFrameBytes     uint32
	AvgBitRate        uint32
	SampleRate        uint32
}

// ParseALACSpecificConfig decodes a magic cookie into an
// ALACSpecificConfig. extractCookie returns the bytes verbatim from after
// the sample entry's base fields, which some muxers leave wrapped in a
// nested box (size(4) + 'alac'(4)) rather than starting directly with
// frameLength; that wrapper, if present, is stripped here.
func ParseALACSpecificConfig(cookie []byte) (ALACSpecificConfig, error) {
	if len(cookie) >= ALACSpecificConfigSize+sampleEntryHeaderSize && string(cookie[4:8]) == alacFourCC {
		cookie = cookie[sampleEntryHeaderSize:]
	}

	if len(cookie) < ALACSpecificConfigSize {
		return ALACSpecificConfig{}, errors.Wrapf(ErrMalformedCookie, "cookie is %d bytes, need %d", len(cookie), ALACSpecificConfigSize)
	}

	return ALACSpecificConfig{
		FrameLength:       binary.BigEndian.Uint32(cookie[0:4]),
		CompatibleVersion: cookie[4],
		BitDepth:          cookie[5],
		Pb:                cookie[6],
		Mb:                cookie[7],
		Kb:                cookie[8],
		NumChannels:       cookie[9],
		MaxRun:            binary.BigEndian.Uint16(cookie[10:12]),
		MaxFrameBytes:     binary.BigEndian.Uint32(cookie[12:16]),
		AvgBitRate:        binary.BigEndian.Uint32(cookie[16:20]),
		SampleRate:        binary.BigEndian.Uint32(cookie[20:24]),
	}, nil
}

// StreamInfo converts the magic cookie's fields into the nine stream
// parameters the decoder core operates on. The channel mask is not
// carried by ALACSpecificConfig itself; callers that need it must read
// it from the enclosing 'chan' box and set it afterward.
//
// pb is the Rice history multiplier and mb seeds the running history
// estimator (see spec.md §4.4's history update formula).
func (c ALACSpecificConfig) StreamInfo(totalFrames int64) streaminfo.StreamInfo {
	return streaminfo.StreamInfo{
		SampleRate:         c.SampleRate,
		Channels:           c.NumChannels,
		BitsPerSample:      c.BitDepth,
		TotalFrames:        totalFrames,
		MaxSamplesPerFrame: c.FrameLength,
		HistoryMultiplier:  c.Pb,
		InitialHistory:     uint16(c.Mb),
		MaximumK:           c.Kb,
	}
}
