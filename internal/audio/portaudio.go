package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioHost struct{}

// NewPortAudioHost initializes PortAudio. Close must be called to release it.
func NewPortAudioHost() (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioHost{}, nil
}

func (p *portAudioHost) Devices() ([]HostDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	// PortAudio lists devices in index order.
	result := make([]HostDevice, 0, len(devices))
	for i, d := range devices {
		result = append(result, HostDevice{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
		})
	}
	return result, nil
}

func (p *portAudioHost) DefaultInputIndex() (int, error) {
	def, err := portaudio.DefaultInputDevice()
	if err != nil || def == nil {
		return 0, fmt.Errorf("%w: no default input device", ErrDeviceUnavailable)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for i, d := range devices {
		if d == def {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: default input %q is not listed", ErrDeviceUnavailable, def.Name)
}

func (p *portAudioHost) OpenInput(index int, params StreamParams, deliver func(in []float32)) (Stream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range", index)
	}
	device := devices[index]

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: params.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(params.SampleRate),
		FramesPerBuffer: params.FramesPerBuffer,
	}, deliver)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &portAudioStream{stream: stream}, nil
}

func (p *portAudioHost) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

// Close waits for the callback to return via Pa_StopStream before
// releasing the stream.
func (s *portAudioStream) Close() error {
	stopErr := s.stream.Stop()
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("failed to stop audio stream: %w", stopErr)
	}
	return nil
}
