package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State of a capture session.
type State int

const (
	Idle State = iota
	Recording
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	defaultFramesPerBuffer = 512
	defaultCloseTimeout    = 5 * time.Second
)

// SessionOpts configures a capture session.
type SessionOpts struct {
	// FramesPerBuffer is a hint for the driver's chunk size.
	FramesPerBuffer int
	// CloseTimeout bounds how long Stop waits for the driver.
	CloseTimeout time.Duration
	// MaxFrames caps the buffered audio. Zero means no cap. Delivery stops
	// at the first chunk that does not fit.
	MaxFrames int
	Logger    zerolog.Logger
}

// Stats are diagnostic counters of the delivery callback.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Faults    uint64
}

// Session is one start-to-stop recording. Sessions are single use.
type Session struct {
	id   uuid.UUID
	host Host
	slot *Slot
	opts SessionOpts
	log  zerolog.Logger

	// mu guards everything below, and is held by the delivery callback
	// for the state check and the append.
	mu         sync.Mutex
	state      State
	device     AudioDevice
	sampleRate int
	channels   int
	chunks     []SampleChunk
	frames     int
	full       bool
	stream     Stream

	delivered atomic.Uint64
	dropped   atomic.Uint64
	faults    atomic.Uint64
}

// NewSession creates an Idle session bound to the given host and slot.
func NewSession(host Host, slot *Slot, opts SessionOpts) *Session {
	if opts.FramesPerBuffer <= 0 {
		opts.FramesPerBuffer = defaultFramesPerBuffer
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseTimeout
	}
	id := uuid.New()
	return &Session{
		id:   id,
		host: host,
		slot: slot,
		opts: opts,
		log:  opts.Logger.With().Str("session", id.String()).Logger(),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the device the session was started on.
func (s *Session) Device() AudioDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Format returns the sample rate and channel count of the session.
func (s *Session) Format() (sampleRate, channels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate, s.channels
}

// Frames returns the number of frames buffered so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Session) Stats() Stats {
	return Stats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Faults:    s.faults.Load(),
	}
}

// Start opens an input stream on device and begins recording.
func (s *Session) Start(device AudioDevice, sampleRate, channels int) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != Idle {
		return fmt.Errorf("%w: cannot start a %s session", ErrInvalidState, state)
	}

	if err := s.slot.acquire(s); err != nil {
		return err
	}

	if err := checkFormat(device, sampleRate, channels); err != nil {
		s.slot.release(s)
		return err
	}

	stream, err := s.host.OpenInput(device.ID, StreamParams{
		SampleRate:      sampleRate,
		Channels:        channels,
		FramesPerBuffer: s.opts.FramesPerBuffer,
	}, s.deliver)
	if err != nil {
		s.slot.release(s)
		return fmt.Errorf("%w: %q: %v", ErrDeviceBusy, device.Name, err)
	}

	// The session is Recording before the stream starts so the first
	// callback is kept.
	s.mu.Lock()
	s.state = Recording
	s.device = device
	s.sampleRate = sampleRate
	s.channels = channels
	s.stream = stream
	s.mu.Unlock()

	if err := stream.Start(); err != nil {
		s.mu.Lock()
		s.state = Idle
		s.stream = nil
		s.chunks = nil
		s.frames = 0
		s.mu.Unlock()
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close stream after start error")
		}
		s.slot.release(s)
		return fmt.Errorf("%w: %q: %v", ErrDeviceBusy, device.Name, err)
	}

	s.log.Info().
		Str("device", device.Name).
		Int("device_id", device.ID).
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Msg("Recording started")
	return nil
}

func checkFormat(device AudioDevice, sampleRate, channels int) error {
	switch {
	case device.Direction != Input:
		return fmt.Errorf("%w: %q is not an input device", ErrDeviceBusy, device.Name)
	case sampleRate <= 0:
		return fmt.Errorf("%w: invalid sample rate %d", ErrDeviceBusy, sampleRate)
	case channels <= 0 || channels > device.MaxChannels:
		return fmt.Errorf("%w: %q supports %d channels, %d requested",
			ErrDeviceBusy, device.Name, device.MaxChannels, channels)
	}
	return nil
}

// deliver runs on the driver thread. It must not block for long, must not
// panic and only allocates a copy of in.
func (s *Session) deliver(in []float32) {
	defer func() {
		if r := recover(); r != nil {
			s.faults.Add(1)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Recording {
		s.dropped.Add(1)
		return
	}
	if len(in)%s.channels != 0 {
		s.faults.Add(1)
		return
	}
	// Once a chunk overflows MaxFrames nothing more is kept, so the
	// recording ends at the cap instead of having a gap.
	frames := len(in) / s.channels
	if s.full || (s.opts.MaxFrames > 0 && s.frames+frames > s.opts.MaxFrames) {
		s.full = true
		s.dropped.Add(1)
		return
	}

	samples := make([]float32, len(in))
	copy(samples, in)
	s.chunks = append(s.chunks, SampleChunk{Samples: samples, Frames: frames})
	s.frames += frames
	s.delivered.Add(1)
}

// Stop ends the recording and returns the chunks in arrival order. It
// blocks until the host confirms no further callback will fire, or until
// the close timeout, in which case the audio is discarded and
// ErrStreamCloseTimeout is returned.
func (s *Session) Stop() ([]SampleChunk, error) {
	s.mu.Lock()
	if s.state != Recording {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot stop a %s session", ErrInvalidState, state)
	}
	s.state = Stopped
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	defer s.slot.release(s)

	closed := make(chan error, 1)
	go func() {
		closed <- stream.Close()
	}()

	timer := time.NewTimer(s.opts.CloseTimeout)
	defer timer.Stop()

	select {
	case err := <-closed:
		if err != nil {
			// Nothing is appended once Stopped, so the buffer is still
			// consistent.
			s.log.Warn().Err(err).Msg("Audio stream closed with error")
		}
	case <-timer.C:
		s.mu.Lock()
		s.chunks = nil
		s.frames = 0
		s.mu.Unlock()
		s.log.Error().Dur("timeout", s.opts.CloseTimeout).Msg("Audio stream did not close")
		return nil, ErrStreamCloseTimeout
	}

	s.mu.Lock()
	chunks := s.chunks
	frames := s.frames
	s.chunks = nil
	s.mu.Unlock()

	if chunks == nil {
		chunks = []SampleChunk{}
	}

	stats := s.Stats()
	s.log.Info().
		Int("chunks", len(chunks)).
		Int("frames", frames).
		Uint64("dropped", stats.Dropped).
		Uint64("faults", stats.Faults).
		Msg("Recording stopped")
	return chunks, nil
}
