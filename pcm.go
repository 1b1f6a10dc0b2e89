package alac

import (
	"github.com/go-audio/audio"

	"github.com/go-alac/alac/internal/ints"
)

// toIntBuffer packs per-channel samples into a channel-interleaved,
// sample-major *audio.IntBuffer, the realization of PCMFrame external
// callers consume.
func toIntBuffer(channels ints.Channels, outputSamples int, sampleRate int, bitsPerSample int) *audio.IntBuffer {
	numChannels := len(channels)
	data := make([]int, outputSamples*numChannels)

	for i := 0; i < outputSamples; i++ {
		for ch := 0; ch < numChannels; ch++ {
			data[i*numChannels+ch] = int(channels[ch].At(i))
		}
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitsPerSample,
	}
}
