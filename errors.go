package alac

import (
	stderrors "errors"

	"github.com/pkg/errors"

	alacbits "github.com/go-alac/alac/internal/bits"
	"github.com/go-alac/alac/frame"
	"github.com/go-alac/alac/mp4"
)

// Structural (FormatError) sentinels: bitstream contents that violate the
// format's invariants. These abort the current frame and leave the reader
// where the violation was detected, not at the start of the next frame.
var (
	ErrUnsupportedPrediction = errors.New("alac: unsupported prediction type")
	ErrChannelMismatch       = errors.New("alac: frame header channel count does not match stream channel count")
	ErrFrameSignature        = errors.New("alac: invalid end-of-frame signature")
	ErrEmptyCoefficientTable = frame.ErrEmptyCoefficientTable
)

// IsIoError reports whether err represents the stream ending before a
// frame finished decoding.
func IsIoError(err error) bool {
	return stderrors.Is(err, alacbits.ErrUnexpectedEOF)
}

// IsFormatError reports whether err represents a structural violation of
// the ALAC frame format.
func IsFormatError(err error) bool {
	return stderrors.Is(err, ErrUnsupportedPrediction) ||
		stderrors.Is(err, ErrChannelMismatch) ||
		stderrors.Is(err, ErrFrameSignature) ||
		stderrors.Is(err, ErrEmptyCoefficientTable)
}

// IsContainerError reports whether err represents a failure to locate the
// ALAC stream within its MP4 container.
func IsContainerError(err error) bool {
	return stderrors.Is(err, mp4.ErrMdatNotFound) || stderrors.Is(err, mp4.ErrNoALACTrack)
}

// AsCoefficientWarning reports whether err is the non-fatal
// CoefficientCountWarning raised when a subframe's coefficient count is
// outside {4, 8}.
func AsCoefficientWarning(err error) (frame.CoefficientCountWarning, bool) {
	var w frame.CoefficientCountWarning
	ok := stderrors.As(err, &w)
	return w, ok
}
