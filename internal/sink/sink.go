// Package sink persists finished recordings as WAV files.
package sink

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/petems/notetray/internal/audio"
	"github.com/rs/zerolog"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

var (
	// ErrWriteFailed matches every *WriteFailedError.
	ErrWriteFailed = errors.New("failed to write recording")
	// ErrNoDestination means no notes directory is configured and the
	// user has to pick a path.
	ErrNoDestination = errors.New("no default recording destination")
)

// WriteFailedError reports an unwritable destination. The chunks passed
// to Write are left untouched so the write can be retried elsewhere.
type WriteFailedError struct {
	Path string
	Err  error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("failed to write recording to %s: %v", e.Path, e.Err)
}

func (e *WriteFailedError) Unwrap() error { return e.Err }

func (e *WriteFailedError) Is(target error) bool { return target == ErrWriteFailed }

// RecordingOutput describes a written recording.
type RecordingOutput struct {
	Path         string
	SampleRateHz int
	ChannelCount int
	BitDepth     int
	TotalFrames  int
}

type Options struct {
	// Layout is the notes directory. Leave Root empty to always prompt.
	Layout Layout
	// BitDepth is 16 (PCM) or 32 (IEEE float). Defaults to 16.
	BitDepth int
	Logger   zerolog.Logger
}

type Sink struct {
	layout   Layout
	series   *Series
	bitDepth int
	log      zerolog.Logger
}

func New(opts Options) (*Sink, error) {
	switch opts.BitDepth {
	case 0:
		opts.BitDepth = 16
	case 16, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", opts.BitDepth)
	}

	s := &Sink{
		layout:   opts.Layout,
		bitDepth: opts.BitDepth,
		log:      opts.Logger,
	}
	if opts.Layout.Configured() {
		s.series = NewSeries(opts.Layout.Dir())
	}
	return s, nil
}

// Layout returns the notes layout. Check Configured before using it.
func (s *Sink) Layout() Layout { return s.layout }

// NextPath returns the next recording{N}.wav in the notes directory,
// creating the directory if needed. Without a notes directory it returns
// ErrNoDestination.
func (s *Sink) NextPath() (string, error) {
	if s.series == nil {
		return "", ErrNoDestination
	}
	if err := s.layout.Ensure(); err != nil {
		return "", &WriteFailedError{Path: s.layout.Dir(), Err: err}
	}
	return s.series.Next()
}

// TodayNote returns the day's note file, creating the notes directory and
// an empty note if they do not exist yet. An existing note is left as is.
func (s *Sink) TodayNote() (string, error) {
	if !s.layout.Configured() {
		return "", ErrNoDestination
	}
	if err := s.layout.Ensure(); err != nil {
		return "", err
	}
	path := s.layout.NotePath()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create note %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Write concatenates chunks in order into a WAV file at out.Path. The
// file only appears at out.Path once every sample is written and the
// header carries the final sizes.
func (s *Sink) Write(out RecordingOutput, chunks []audio.SampleChunk) (RecordingOutput, error) {
	if out.Path == "" {
		return out, &WriteFailedError{Path: out.Path, Err: errors.New("empty path")}
	}
	if out.SampleRateHz <= 0 || out.ChannelCount <= 0 {
		return out, &WriteFailedError{Path: out.Path, Err: fmt.Errorf(
			"invalid format %d Hz, %d channels", out.SampleRateHz, out.ChannelCount)}
	}

	total := 0
	for i, c := range chunks {
		if len(c.Samples) != c.Frames*out.ChannelCount {
			return out, &WriteFailedError{Path: out.Path, Err: fmt.Errorf(
				"chunk %d has %d samples for %d frames", i, len(c.Samples), c.Frames)}
		}
		total += c.Frames
	}
	out.BitDepth = s.bitDepth
	out.TotalFrames = total

	if err := s.writeFile(out, chunks); err != nil {
		s.log.Error().Err(err).Str("path", out.Path).Msg("Failed to write recording")
		return out, &WriteFailedError{Path: out.Path, Err: err}
	}

	s.log.Info().
		Str("path", out.Path).
		Int("frames", out.TotalFrames).
		Int("sample_rate", out.SampleRateHz).
		Int("channels", out.ChannelCount).
		Int("bit_depth", out.BitDepth).
		Msg("Recording saved")
	return out, nil
}

func (s *Sink) writeFile(out RecordingOutput, chunks []audio.SampleChunk) error {
	f, err := os.CreateTemp(filepath.Dir(out.Path), "."+filepath.Base(out.Path)+".*.part")
	if err != nil {
		return err
	}
	tmp := f.Name()
	done := false
	defer func() {
		if !done {
			f.Close()
			os.Remove(tmp)
		}
	}()

	format := wavFormatPCM
	if s.bitDepth == 32 {
		format = wavFormatIEEEFloat
	}
	enc := wav.NewEncoder(f, out.SampleRateHz, s.bitDepth, out.ChannelCount, format)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: out.ChannelCount,
			SampleRate:  out.SampleRateHz,
		},
		SourceBitDepth: s.bitDepth,
	}

	// An empty buffer still makes the encoder emit the header and an
	// empty data chunk.
	if len(chunks) == 0 {
		buf.Data = []int{}
		if err := enc.Write(buf); err != nil {
			return err
		}
	}
	for _, c := range chunks {
		buf.Data = s.encodeSamples(buf.Data[:0], c.Samples)
		if err := enc.Write(buf); err != nil {
			return err
		}
	}

	// Close patches the RIFF and data sizes now that all samples are out.
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, out.Path); err != nil {
		os.Remove(tmp)
		done = true
		return err
	}
	done = true
	return nil
}

func (s *Sink) encodeSamples(dst []int, samples []float32) []int {
	if s.bitDepth == 32 {
		for _, v := range samples {
			dst = append(dst, int(int32(math.Float32bits(v))))
		}
		return dst
	}
	for _, v := range samples {
		dst = append(dst, floatToInt16(v))
	}
	return dst
}

func floatToInt16(v float32) int {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int(math.Round(float64(v) * math.MaxInt16))
}
