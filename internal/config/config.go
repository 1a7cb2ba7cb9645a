package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"
)

type Config struct {
	LogLevel     string          `mapstructure:"log_level"`
	Hotkey       string          `mapstructure:"hotkey"`
	HotkeyDarwin string          `mapstructure:"hotkey_darwin"`
	Mode         string          `mapstructure:"mode"` // "PushToTalk" or "Toggle"
	Notes        NotesConfig     `mapstructure:"notes"`
	Recording    RecordingConfig `mapstructure:"recording"`

	path string
}

// NotesConfig locates the dated notes directory. An empty Root means
// every recording prompts for a destination.
type NotesConfig struct {
	Root  string `mapstructure:"root"`
	Class string `mapstructure:"class"`
}

type RecordingConfig struct {
	SampleRate      int           `mapstructure:"sample_rate"`
	Channels        int           `mapstructure:"channels"`
	BitDepth        int           `mapstructure:"bit_depth"` // 16 (PCM) or 32 (float)
	FramesPerBuffer int           `mapstructure:"frames_per_buffer"`
	CloseTimeout    time.Duration `mapstructure:"close_timeout"`
	MaxDuration     time.Duration `mapstructure:"max_duration"` // 0 = unlimited
}

// MaxFrames converts MaxDuration to a frame count.
func (r RecordingConfig) MaxFrames() int {
	if r.MaxDuration <= 0 {
		return 0
	}
	return int(r.MaxDuration.Seconds() * float64(r.SampleRate))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("hotkey", "Ctrl+Alt+R")
	v.SetDefault("hotkey_darwin", "Ctrl+Alt+R") // Control+Option+R
	v.SetDefault("mode", ModeToggle)
	v.SetDefault("notes.root", "")
	v.SetDefault("notes.class", "")
	v.SetDefault("recording.sample_rate", 44100)
	v.SetDefault("recording.channels", 2)
	v.SetDefault("recording.bit_depth", 16)
	v.SetDefault("recording.frames_per_buffer", 512)
	v.SetDefault("recording.close_timeout", 5*time.Second)
	v.SetDefault("recording.max_duration", time.Duration(0))
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile reads the config at path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModePushToTalk, ModeToggle:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	r := c.Recording
	if r.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", r.SampleRate)
	}
	if r.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", r.Channels)
	}
	if r.BitDepth != 16 && r.BitDepth != 32 {
		return fmt.Errorf("bit_depth must be 16 or 32, got %d", r.BitDepth)
	}
	if r.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames_per_buffer must be positive, got %d", r.FramesPerBuffer)
	}
	return nil
}

// Path is the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := newViper(path)
	for key, value := range c.Values() {
		v.Set(key, value)
	}

	return v.WriteConfigAs(path)
}

// Values returns the settings keyed the way they appear in the file, with
// nested keys joined by dots.
func (c *Config) Values() map[string]any {
	return map[string]any{
		"log_level":                   c.LogLevel,
		"hotkey":                      c.Hotkey,
		"hotkey_darwin":               c.HotkeyDarwin,
		"mode":                        c.Mode,
		"notes.root":                  c.Notes.Root,
		"notes.class":                 c.Notes.Class,
		"recording.sample_rate":       c.Recording.SampleRate,
		"recording.channels":          c.Recording.Channels,
		"recording.bit_depth":         c.Recording.BitDepth,
		"recording.frames_per_buffer": c.Recording.FramesPerBuffer,
		"recording.close_timeout":     c.Recording.CloseTimeout.String(),
		"recording.max_duration":      c.Recording.MaxDuration.String(),
	}
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "notetray", "config.json")
}
