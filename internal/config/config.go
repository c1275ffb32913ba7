// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for capture, analysis and chart rendering.
const (
	// Audio device defaults
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultSampleRate      = 48000       // Typical browser/desktop capture rate
	DefaultFramesPerBuffer = 128         // One processing quantum
	DefaultLowLatency      = false       // Standard latency mode
	DefaultBlockQueue      = 4096        // Quanta buffered between audio thread and accumulator

	// Analysis collaborator defaults
	DefaultAnalysisURL     = "http://127.0.0.1:8060"
	DefaultAnalyzePath     = "/api/analyze"
	DefaultSamplesPath     = "/api/samples"
	DefaultSampleFilesPath = "/samples"
	DefaultAnalysisTimeout = 60 * time.Second

	// Render defaults
	DefaultLayoutWidth   = 900
	DefaultChartHeight   = 200
	DefaultLineMargin    = 78 // Layout width minus this gives pitch/intensity chart width
	DefaultFormantMargin = 58 // Layout width minus this gives formant chart width

	// Playback cadence
	DefaultFrameInterval = time.Second / 60
	DefaultIdleInterval  = 200 * time.Millisecond

	// Operator control defaults
	DefaultTimeOffset      = 0.0
	DefaultPitchMultiplier = 1.0
	DefaultIntensityOffset = 0.0

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode.
	Log       LogConfig       `yaml:"log"`       // Logging sink and level.
	Audio     AudioConfig     `yaml:"audio"`     // Capture and playback device settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // External analysis collaborator.
	Render    RenderConfig    `yaml:"render"`    // Chart geometry.
	Playback  PlaybackConfig  `yaml:"playback"`  // Redraw cadence.
	Controls  ControlsConfig  `yaml:"controls"`  // Initial operator control values.
	Viewer    ViewerConfig    `yaml:"viewer"`    // Chart viewer HTTP server.
	Transport TransportConfig `yaml:"transport"` // UDP cursor publisher.
}

// LogConfig holds logging options. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error fatal DEBUG INFO WARN WARNING ERROR FATAL"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device" validate:"gte=-1"`             // PortAudio device index for capture (-1 for default).
	OutputDevice    int     `yaml:"output_device" validate:"gte=-1"`            // PortAudio device index for playback (-1 for default).
	SampleRate      float64 `yaml:"sample_rate" validate:"gte=8000,lte=192000"` // Capture sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer" validate:"gt=0,lte=8192"` // Frames per processing quantum.
	LowLatency      bool    `yaml:"low_latency"`                                // Request low latency settings from PortAudio.
	BlockQueue      int     `yaml:"block_queue" validate:"gt=0"`                // Capacity of the block channel.
}

// AnalysisConfig describes the external analysis and sample listing collaborator.
type AnalysisConfig struct {
	BaseURL         string        `yaml:"base_url" validate:"required,url"`
	AnalyzePath     string        `yaml:"analyze_path" validate:"required,startswith=/"`
	SamplesPath     string        `yaml:"samples_path" validate:"required,startswith=/"`
	SampleFilesPath string        `yaml:"sample_files_path" validate:"required,startswith=/"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RenderConfig holds chart geometry.
type RenderConfig struct {
	LayoutWidth   int `yaml:"layout_width" validate:"gt=0"`
	ChartHeight   int `yaml:"chart_height" validate:"gt=0"`
	LineMargin    int `yaml:"line_margin" validate:"gte=0"`
	FormantMargin int `yaml:"formant_margin" validate:"gte=0"`
}

// PlaybackConfig holds the scheduler cadences.
type PlaybackConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval" validate:"gt=0"`
	IdleInterval  time.Duration `yaml:"idle_interval" validate:"gt=0"`
}

// ControlsConfig holds the initial operator control values and TUI step sizes.
type ControlsConfig struct {
	TimeOffset      float64 `yaml:"time_offset"`
	PitchMultiplier float64 `yaml:"pitch_multiplier" validate:"gt=0"`
	IntensityOffset float64 `yaml:"intensity_offset"`
	OffsetStep      float64 `yaml:"offset_step" validate:"gt=0"`
	PitchStep       float64 `yaml:"pitch_step" validate:"gt=0"`
	IntensityStep   float64 `yaml:"intensity_step" validate:"gt=0"`
}

// ViewerConfig holds the chart viewer server settings.
type ViewerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}

// TransportConfig holds settings related to publishing the cursor over UDP.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address" validate:"required_if=UDPEnabled true"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval" validate:"gte=0"`
}

// NewConfig creates a new Config instance with default values.
// This is the base configuration before a file, the environment
// and command line flags are applied.
func NewConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			BlockQueue:      DefaultBlockQueue,
		},
		Analysis: AnalysisConfig{
			BaseURL:         DefaultAnalysisURL,
			AnalyzePath:     DefaultAnalyzePath,
			SamplesPath:     DefaultSamplesPath,
			SampleFilesPath: DefaultSampleFilesPath,
			Timeout:         DefaultAnalysisTimeout,
		},
		Render: RenderConfig{
			LayoutWidth:   DefaultLayoutWidth,
			ChartHeight:   DefaultChartHeight,
			LineMargin:    DefaultLineMargin,
			FormantMargin: DefaultFormantMargin,
		},
		Playback: PlaybackConfig{
			FrameInterval: DefaultFrameInterval,
			IdleInterval:  DefaultIdleInterval,
		},
		Controls: ControlsConfig{
			TimeOffset:      DefaultTimeOffset,
			PitchMultiplier: DefaultPitchMultiplier,
			IntensityOffset: DefaultIntensityOffset,
			OffsetStep:      0.05,
			PitchStep:       0.05,
			IntensityStep:   1,
		},
		Viewer: ViewerConfig{
			Enabled: true,
			Address: "127.0.0.1:8070",
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz.
		},
	}
}
