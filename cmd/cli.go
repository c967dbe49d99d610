// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"audiomon/internal/audio"
	"audiomon/internal/config"
	applog "audiomon/internal/log"
	"audiomon/internal/tui"
	"audiomon/pkg/build"
)

var log = applog.New("main")

// options holds flag values. Only flags the user set override the config
// file; see apply.
type options struct {
	configPath  string
	deviceID    int
	channels    int
	sampleRate  float64
	blockLength int
	lowLatency  bool
	socketPath  string
	inputFile   string
	loop        bool
	mode        string
	verbose     bool
}

// Execute parses os.Args and runs the selected command until it finishes or
// ctx is cancelled.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	buildInfo := build.Current()
	opts := &options{}

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
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(listCmd)

	// Watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Show live band levels from a running monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			return tui.StartMonitorUI(cfg.Transport.SocketPath, cfg.BandLabels())
		},
	}
	rootCmd.AddCommand(watchCmd)

	opts.register(rootCmd.PersistentFlags())

	return rootCmd
}

// register defines the persistent flags shared by every command.
func (o *options) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "",
		"Path to a YAML config file (default: ./audiomon.yaml or ./config.yaml)")

	// Audio Device Configuration
	flags.IntVarP(&o.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVarP(&o.channels, "channels", "c", config.DefaultInputChannels,
		"Number of channels to capture, down-mixed to mono")
	flags.Float64VarP(&o.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&o.blockLength, "block-length", "b", config.DefaultBlockLength,
		"Samples per analysis block (affects latency and frequency resolution)")
	flags.BoolVarP(&o.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// File input
	flags.StringVarP(&o.inputFile, "input", "i", "",
		"Analyze a WAV, MP3 or Ogg Vorbis file instead of a capture device")
	flags.BoolVar(&o.loop, "loop", false,
		"Restart the input file when it ends")

	// Analysis and transport
	flags.StringVarP(&o.mode, "mode", "m", config.DefaultMode,
		"Analysis mode: bands or mel")
	flags.StringVar(&o.socketPath, "socket", config.DefaultSocketPath,
		"Unix socket path records are broadcast on")

	// Debug Configuration
	flags.BoolVarP(&o.verbose, "verbose", "v", false,
		"Show verbose output")
}

// loadConfig reads the config file, applies the flags that were set and
// configures logging.
func loadConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	applog.SetLevel(cfg.Level())
	for _, w := range cfg.Warnings() {
		log.Warnf("%s", w)
	}
	return cfg, nil
}

// apply copies every flag the user set onto cfg. Flags left at their
// defaults do not override file values.
func (o *options) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.deviceID
	}
	if flags.Changed("channels") {
		cfg.Audio.InputChannels = o.channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if flags.Changed("block-length") {
		cfg.Audio.BlockLength = o.blockLength
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if flags.Changed("input") {
		cfg.Audio.InputFile = o.inputFile
	}
	if flags.Changed("loop") {
		cfg.Audio.Loop = o.loop
	}
	if flags.Changed("mode") {
		cfg.Analysis.Mode = o.mode
	}
	if flags.Changed("socket") {
		cfg.Transport.SocketPath = o.socketPath
	}
	if o.verbose {
		cfg.Debug = true
	}
}
