package cmd

import (
	"io"
	"os"
	"time"

	"pluck/internal/config"
	"pluck/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// One-off commands reported through Config.Command.
const (
	CommandList = "list"
	CommandPick = "pick"
	CommandKeys = "keys"
)

// flagValues holds the raw flag values. Only flags the user actually set
// are copied over the loaded configuration.
type flagValues struct {
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	backend         string
	bufferSize      int

	keyboard  string
	tuning    string
	reference float64
	script    string
	decay     float64
	seed      uint64

	windowSize   int
	queueSize    int
	tickInterval time.Duration

	httpEnabled   bool
	httpAddress   string
	udpEnabled    bool
	udpTarget     string
	frameInterval time.Duration

	headless bool
	logLevel string
	logFile  string
	verbose  bool
}

// ParseArgs parses os.Args into a configuration. It returns nil, nil when
// cobra handled the invocation itself (--help, --version).
func ParseArgs() (*config.Config, error) {
	return ParseArgsFrom(os.Args[1:], nil)
}

// ParseArgsFrom parses args. Help and version output go to out, or stdout
// when out is nil.
func ParseArgsFrom(args []string, out io.Writer) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		options    *config.Config
		configPath string
		command    string
		values     flagValues
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
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
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &values, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	if out != nil {
		rootCmd.SetOut(out)
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandList
		},
	}

	// Interactive device picker
	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose an output device and sample rate interactively",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandPick
		},
	}

	// Key map
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Print the key to frequency table",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandKeys
		},
	}
	rootCmd.AddCommand(listCmd, pickCmd, keysCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "f", "",
		"Path to a YAML configuration file (default: pluck.yaml or config.yaml if present)")

	// Audio Output Configuration
	flags.StringVar(&values.backend, "backend", config.DefaultBackend,
		"Output backend: portaudio, oto or null")
	flags.IntVarP(&values.deviceID, "device", "d", config.DefaultOutputDevice,
		"Specify output device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&values.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&values.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&values.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	flags.IntVar(&values.bufferSize, "buffer-size", config.DefaultOutputBuffer,
		"Samples queued between the simulation and the device")

	// Instrument Configuration
	flags.StringVar(&values.keyboard, "keyboard", config.DefaultKeyboard,
		"Trigger keys, lowest pitch first")
	flags.StringVar(&values.tuning, "tuning", config.DefaultTuning,
		"Tuning rule: equal, 12tet or lua")
	flags.Float64Var(&values.reference, "reference", config.DefaultReference,
		"Pitch of the reference key in Hz")
	flags.StringVar(&values.script, "script", "",
		"Lua tuning script, inline or @path")
	flags.Float64Var(&values.decay, "decay", config.DefaultDecay,
		"Energy decay factor per sample, between 0 and 1")
	flags.Uint64Var(&values.seed, "seed", 0,
		"Seed for reproducible pluck noise (0 leaves it unseeded)")

	// Engine Configuration
	flags.IntVar(&values.windowSize, "window-size", config.DefaultWindowSize,
		"Samples kept for the waveform display")
	flags.IntVar(&values.queueSize, "queue-size", config.DefaultQueueSize,
		"Pending plucks before new ones are dropped")
	flags.DurationVar(&values.tickInterval, "tick", config.DefaultTickInterval,
		"Simulation pacing interval")

	// Transport Configuration
	flags.BoolVar(&values.httpEnabled, "http", false,
		"Serve the WebSocket stream, the API and /metrics")
	flags.StringVar(&values.httpAddress, "http-address", config.DefaultHTTPAddress,
		"Listen address for the HTTP server")
	flags.BoolVar(&values.udpEnabled, "udp", false,
		"Send spectrum packets over UDP")
	flags.StringVar(&values.udpTarget, "udp-target", config.DefaultUDPTargetAddress,
		"Target address for UDP packets")
	flags.DurationVar(&values.frameInterval, "frame-interval", config.DefaultFrameInterval,
		"Interval between published frames")

	// Debug Configuration
	flags.BoolVar(&values.headless, "headless", false,
		"Run without the terminal UI")
	flags.StringVar(&values.logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")
	flags.StringVar(&values.logFile, "log-file", "",
		"Write logs to this file")
	flags.BoolVarP(&values.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if options != nil {
		options.Command = command
	}
	return options, nil
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(fs *pflag.FlagSet, v *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("backend", func() { cfg.Audio.Backend = v.backend })
	set("device", func() { cfg.Audio.OutputDevice = v.deviceID })
	set("sample-rate", func() { cfg.Audio.SampleRate = v.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = v.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = v.lowLatency })
	set("buffer-size", func() { cfg.Audio.BufferSize = v.bufferSize })

	set("keyboard", func() { cfg.Instrument.Keyboard = v.keyboard })
	set("tuning", func() { cfg.Instrument.Tuning = v.tuning })
	set("reference", func() { cfg.Instrument.Reference = v.reference })
	set("script", func() {
		cfg.Instrument.Script = v.script
		if !fs.Changed("tuning") {
			cfg.Instrument.Tuning = config.TuningLua
		}
	})
	set("decay", func() { cfg.Instrument.Decay = v.decay })
	set("seed", func() { cfg.Instrument.Seed = v.seed })

	set("window-size", func() {
		cfg.Engine.WindowSize = v.windowSize
		cfg.Engine.DisplayPoints = min(cfg.Engine.DisplayPoints, v.windowSize)
	})
	set("queue-size", func() { cfg.Engine.QueueSize = v.queueSize })
	set("tick", func() { cfg.Engine.TickInterval = v.tickInterval })

	set("http", func() { cfg.Transport.HTTPEnabled = v.httpEnabled })
	set("http-address", func() { cfg.Transport.HTTPAddress = v.httpAddress })
	set("udp", func() { cfg.Transport.UDPEnabled = v.udpEnabled })
	set("udp-target", func() { cfg.Transport.UDPTargetAddress = v.udpTarget })
	set("frame-interval", func() { cfg.Transport.FrameInterval = v.frameInterval })

	set("headless", func() { cfg.Headless = v.headless })
	set("log-level", func() { cfg.LogLevel = v.logLevel })
	set("log-file", func() { cfg.LogFile = v.logFile })
	set("verbose", func() { cfg.Debug = v.verbose })
}
