package sink

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Header is the format information read back from a WAV file.
type Header struct {
	SampleRateHz int
	ChannelCount int
	BitDepth     int
	Format       int
	DataBytes    int
	TotalFrames  int
}

// ReadHeader reads the fmt and data chunk headers of a WAV file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Header{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := d.FwdToPCM(); err != nil {
		return Header{}, fmt.Errorf("no data chunk in %s: %w", path, err)
	}

	h := Header{
		SampleRateHz: int(d.SampleRate),
		ChannelCount: int(d.NumChans),
		BitDepth:     int(d.BitDepth),
		Format:       int(d.WavAudioFormat),
		DataBytes:    d.PCMSize,
	}
	if frameBytes := h.ChannelCount * h.BitDepth / 8; frameBytes > 0 {
		h.TotalFrames = h.DataBytes / frameBytes
	}
	return h, nil
}
