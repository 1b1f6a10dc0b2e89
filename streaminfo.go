package alac

import "github.com/go-alac/alac/streaminfo"

// StreamInfo holds the nine stream parameters that are immutable for the
// lifetime of a decoder. See package streaminfo for field documentation;
// it is aliased here so callers only need to import the top-level
// package for the common case.
type StreamInfo = streaminfo.StreamInfo

// ErrInvalidStreamInfo is returned by NewStreamInfo when a stream
// parameter is outside the range the decoder core can operate on.
var ErrInvalidStreamInfo = streaminfo.ErrInvalid

// NewStreamInfo validates and returns a StreamInfo.
func NewStreamInfo(info StreamInfo) (StreamInfo, error) {
	return streaminfo.New(info)
}
