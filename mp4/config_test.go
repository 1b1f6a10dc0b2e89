package mp4_test

import (
	"encoding/binary"
	"testing"

	"github.com/go-alac/alac/mp4"
)

func TestParseALACSpecificConfig(t *testing.T) {
	cookie := make([]byte, mp4.ALACSpecificConfigSize)
	binary.BigEndian.PutUint32(cookie[0:4], 4096) // frameLength
	cookie[4] = 0                                 // compatibleVersion
	cookie[5] = 16                                // bitDepth
	cookie[6] = 40                                // pb
	cookie[7] = 10                                // mb
	cookie[8] = 14                                // kb
	cookie[9] = 2                                 // numChannels
	binary.BigEndian.PutUint16(cookie[10:12], 255)
	binary.BigEndian.PutUint32(cookie[12:16], 65536)
	binary.BigEndian.PutUint32(cookie[16:20], 256000)
	binary.BigEndian.PutUint32(cookie[20:24], 44100)

	config, err := mp4.ParseALACSpecificConfig(cookie)
	if err != nil {
		t.Fatalf("ParseALACSpecificConfig: %v", err)
	}

	if config.FrameLength != 4096 {
		t.Errorf("FrameLength = %d, want 4096", config.FrameLength)
	}
	if config.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", config.BitDepth)
	}
	if config.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", config.NumChannels)
	}
	if config.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", config.SampleRate)
	}

	info := config.StreamInfo(1000)
	if info.Channels != 2 || info.SampleRate != 44100 || info.MaxSamplesPerFrame != 4096 {
		t.Errorf("StreamInfo = %+v, unexpected", info)
	}
	if info.TotalFrames != 1000 {
		t.Errorf("TotalFrames = %d, want 1000", info.TotalFrames)
	}
	// pb (history multiplier) is 40, mb (initial history) is 10; StreamInfo
	// must not swap them.
	if info.HistoryMultiplier != 40 {
		t.Errorf("HistoryMultiplier = %d, want 40 (pb)", info.HistoryMultiplier)
	}
	if info.InitialHistory != 10 {
		t.Errorf("InitialHistory = %d, want 10 (mb)", info.InitialHistory)
	}
	if info.MaximumK != 14 {
		t.Errorf("MaximumK = %d, want 14 (kb)", info.MaximumK)
	}
}

func TestParseALACSpecificConfigTooShort(t *testing.T) {
	if _, err := mp4.ParseALACSpecificConfig([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected ErrMalformedCookie, got nil")
	}
}
