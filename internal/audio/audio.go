package audio

// DefaultSampleRate is the capture rate used unless the config overrides it.
const DefaultSampleRate = 44100

// Direction tells whether an endpoint captures or plays audio.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// AudioDevice is an immutable snapshot of a host endpoint.
type AudioDevice struct {
	ID          int
	Name        string
	Direction   Direction
	MaxChannels int
}

// SampleChunk is one driver callback worth of interleaved float32 samples.
type SampleChunk struct {
	Samples []float32
	Frames  int
}

// HostDevice is an entry of the host's device list.
type HostDevice struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
}

// StreamParams describe an input stream to open.
type StreamParams struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// Host is the host audio subsystem.
type Host interface {
	Devices() ([]HostDevice, error)
	// DefaultInputIndex returns ErrDeviceUnavailable when the host has no
	// default input.
	DefaultInputIndex() (int, error)
	// OpenInput opens, but does not start, an input stream. deliver is
	// called from the driver thread with a buffer the driver reuses.
	OpenInput(index int, params StreamParams, deliver func(in []float32)) (Stream, error)
	Close() error
}

// Stream is an opened host stream.
type Stream interface {
	Start() error
	// Close stops the stream and returns once the driver will issue no
	// further callbacks.
	Close() error
}
