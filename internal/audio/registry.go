package audio

import "fmt"

// Registry resolves host endpoints. It does not cache: every call queries
// the host, since devices come and go.
type Registry struct {
	host Host
}

func NewRegistry(host Host) *Registry {
	return &Registry{host: host}
}

// ListDevices returns one entry per direction a host device supports. A
// duplex device yields its input entry first, both with the same ID.
func (r *Registry) ListDevices() ([]AudioDevice, error) {
	hostDevices, err := r.host.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	result := make([]AudioDevice, 0, len(hostDevices))
	for _, d := range hostDevices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:          d.Index,
				Name:        d.Name,
				Direction:   Input,
				MaxChannels: d.MaxInputChannels,
			})
		}
		if d.MaxOutputChannels > 0 {
			result = append(result, AudioDevice{
				ID:          d.Index,
				Name:        d.Name,
				Direction:   Output,
				MaxChannels: d.MaxOutputChannels,
			})
		}
	}
	return result, nil
}

// InputDevices is ListDevices filtered to capture endpoints.
func (r *Registry) InputDevices() ([]AudioDevice, error) {
	devices, err := r.ListDevices()
	if err != nil {
		return nil, err
	}
	inputs := devices[:0]
	for _, d := range devices {
		if d.Direction == Input {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// ResolveByName returns the first device named name, in enumeration order.
// Hosts may expose several devices with the same name; only the first one
// is reachable by name, the others must be resolved by ID.
func (r *Registry) ResolveByName(name string) (AudioDevice, error) {
	return r.find(func(d AudioDevice) bool { return d.Name == name }, name)
}

// ResolveInputByName is ResolveByName restricted to inputs, with the same
// first-match rule.
func (r *Registry) ResolveInputByName(name string) (AudioDevice, error) {
	return r.find(func(d AudioDevice) bool {
		return d.Direction == Input && d.Name == name
	}, name)
}

// ResolveByID returns the endpoint with the given host index and direction.
func (r *Registry) ResolveByID(id int, dir Direction) (AudioDevice, error) {
	return r.find(func(d AudioDevice) bool {
		return d.ID == id && d.Direction == dir
	}, fmt.Sprintf("%s #%d", dir, id))
}

// DefaultInputDevice returns the host default input. It never guesses: if
// the host reports no default, ErrDeviceUnavailable is returned.
func (r *Registry) DefaultInputDevice() (AudioDevice, error) {
	idx, err := r.host.DefaultInputIndex()
	if err != nil {
		return AudioDevice{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	dev, err := r.ResolveByID(idx, Input)
	if err != nil {
		return AudioDevice{}, fmt.Errorf("%w: default input #%d has no capture channels", ErrDeviceUnavailable, idx)
	}
	return dev, nil
}

func (r *Registry) find(match func(AudioDevice) bool, what string) (AudioDevice, error) {
	devices, err := r.ListDevices()
	if err != nil {
		return AudioDevice{}, err
	}
	for _, d := range devices {
		if match(d) {
			return d, nil
		}
	}
	return AudioDevice{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, what)
}
