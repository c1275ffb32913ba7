// SPDX-License-Identifier: MIT
package cmd

import (
	"prosody/internal/config"
	"prosody/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// One-off commands. An empty Command runs an interactive session.
const (
	CommandList    = "list"
	CommandSamples = "samples"
	CommandRender  = "render"
	CommandEncode  = "encode"
)

// Options is the parsed command line: the effective configuration and the
// command to run.
type Options struct {
	Config  *config.Config
	Command string
	Args    []string

	Headless   bool    // Run without the terminal UI
	PickDevice bool    // Show the device picker before the session starts
	OutDir     string  // render: output directory
	Cursor     float64 // render: cursor time, negative for none
	EncodeRate float64 // encode: sample rate of the raw input
}

// flagValues holds values bound to flags. They are copied onto the loaded
// configuration only when set, so file and environment values survive.
type flagValues struct {
	configPath      string
	inputDevice     int
	outputDevice    int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	analysisURL     string
	viewerAddress   string
	noViewer        bool
	udpTarget       string
	verbose         bool
	timeOffset      float64
	pitchMultiplier float64
	intensityOffset float64
	width           int
}

// ParseArgs parses args (without the program name) into Options.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{Cursor: -1}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			fv.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			options.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = ""
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	})

	// Samples command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "samples",
		Short: "List the reference samples offered by the analysis service",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandSamples
		},
	})

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render <analysis.json>",
		Short: "Render the pitch, formant and intensity charts of a saved analysis to PNG",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandRender
			options.Args = args
		},
	}
	renderCmd.Flags().StringVarP(&options.OutDir, "out", "o", ".",
		"Directory the PNG files are written to")
	renderCmd.Flags().Float64Var(&options.Cursor, "cursor", -1,
		"Draw the playback cursor at this time in seconds")
	rootCmd.AddCommand(renderCmd)

	// Encode command
	encodeCmd := &cobra.Command{
		Use:   "encode <in.raw> <out.wav>",
		Short: "Encode raw float32 little-endian mono samples as 16-bit WAV",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandEncode
			options.Args = args
		},
	}
	encodeCmd.Flags().Float64VarP(&options.EncodeRate, "rate", "r", config.DefaultSampleRate,
		"Sample rate of the raw input, measured in Hertz (Hz)")
	rootCmd.AddCommand(encodeCmd)

	// Session Configuration
	rootCmd.Flags().BoolVar(&options.Headless, "headless", false,
		"Run without the terminal UI; charts are still served to viewers")
	rootCmd.Flags().BoolVar(&options.PickDevice, "pick-device", false,
		"Choose the input device interactively before the session starts")

	// Config File
	rootCmd.PersistentFlags().StringVar(&fv.configPath, "config", "",
		"Path to a YAML config file (default: ./"+config.DefaultFile+" if present)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&fv.inputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&fv.outputDevice, "output-device", config.DefaultDeviceID,
		"Specify playback device ID")
	rootCmd.PersistentFlags().Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Collaborators and Viewers
	rootCmd.PersistentFlags().StringVar(&fv.analysisURL, "analysis-url", config.DefaultAnalysisURL,
		"Base URL of the analysis service")
	rootCmd.PersistentFlags().StringVar(&fv.viewerAddress, "viewer", "",
		"Listen address of the chart viewer")
	rootCmd.PersistentFlags().BoolVar(&fv.noViewer, "no-viewer", false,
		"Do not serve charts over HTTP")
	rootCmd.PersistentFlags().StringVar(&fv.udpTarget, "udp", "",
		"Publish the playback cursor over UDP to host:port")

	// Chart Controls
	rootCmd.PersistentFlags().Float64Var(&fv.timeOffset, "offset", config.DefaultTimeOffset,
		"Shift the recording by this many seconds")
	rootCmd.PersistentFlags().Float64Var(&fv.pitchMultiplier, "pitch", config.DefaultPitchMultiplier,
		"Multiply the recording's pitch by this factor")
	rootCmd.PersistentFlags().Float64Var(&fv.intensityOffset, "intensity", config.DefaultIntensityOffset,
		"Add this many dB to the recording's intensity")
	rootCmd.PersistentFlags().IntVarP(&fv.width, "width", "w", config.DefaultLayoutWidth,
		"Layout width the chart widths are derived from")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	// --help and --version return without running a command.
	if options.Config == nil {
		return nil, nil
	}

	return options, nil
}

func (fv *flagValues) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("device") {
		cfg.Audio.InputDevice = fv.inputDevice
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice = fv.outputDevice
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if flags.Changed("analysis-url") {
		cfg.Analysis.BaseURL = fv.analysisURL
	}
	if flags.Changed("viewer") {
		cfg.Viewer.Enabled = true
		cfg.Viewer.Address = fv.viewerAddress
	}
	if flags.Changed("no-viewer") && fv.noViewer {
		cfg.Viewer.Enabled = false
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = fv.udpTarget != ""
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if flags.Changed("offset") {
		cfg.Controls.TimeOffset = fv.timeOffset
	}
	if flags.Changed("pitch") {
		cfg.Controls.PitchMultiplier = fv.pitchMultiplier
	}
	if flags.Changed("intensity") {
		cfg.Controls.IntensityOffset = fv.intensityOffset
	}
	if flags.Changed("width") {
		cfg.Render.LayoutWidth = fv.width
	}
	if fv.verbose {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
}
