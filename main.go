package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"pluck/cmd"
	"pluck/internal/analysis"
	"pluck/internal/audio"
	"pluck/internal/config"
	"pluck/internal/karplus"
	applog "pluck/internal/log"
	"pluck/internal/synth"
	"pluck/internal/transport"
	"pluck/internal/transport/udp"
	"pluck/internal/tui"
	"pluck/internal/tuning"
	"pluck/pkg/build"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// main is the entry point for the plucked string keyboard.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Build the strings, the trigger queue and the output engine
//
// 2. Concurrent Phase (Hot Path):
//   - Run the simulation loop at the sample rate
//   - Publish frames to the configured transports
//   - Run the terminal UI, or wait for a signal when headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the loop and the publisher
//   - Clean up resources
func main() {
	if err := run(); err != nil {
		applog.Errorf("%v", err)
		applog.Sync()
		os.Exit(1)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags; fall back to the defaults.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v, using development defaults", err)
	}

	// Limit OS threads for real-time audio:
	// - One thread for the simulation loop (time-critical)
	// - One thread for the UI, the device callback and I/O
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		return err
	}
	if cfg == nil {
		// --help or --version
		return nil
	}
	applog.SetLevel(cfg.EffectiveLogLevel())

	if cfg.Command != "" {
		return executeCommand(cfg, os.Stdout)
	}

	// PortAudio is only needed when it drives the output.
	if cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	freqs, err := tuning.Build(cfg.Instrument.Keyboard, tuningOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to build key map: %w", err)
	}

	bankOpts := []synth.BankOption{synth.WithDecay(cfg.Instrument.Decay)}
	if cfg.Instrument.Seed != 0 {
		bankOpts = append(bankOpts, synth.WithSeed(cfg.Instrument.Seed))
	}
	bank, err := synth.NewBank(cfg.Audio.SampleRate, freqs, bankOpts...)
	if err != nil {
		return err
	}

	queue := synth.NewTriggerQueue(cfg.Engine.QueueSize)
	window, err := synth.NewWindow(cfg.Engine.WindowSize)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
	}()

	loop := synth.NewLoop(bank, queue, window, engine,
		synth.WithSampleRate(cfg.Audio.SampleRate),
		synth.WithTickInterval(cfg.Engine.TickInterval),
		synth.WithMaxLag(cfg.Engine.MaxLag),
	)

	publisher, hub, err := newPublisher(cfg, window, queue)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				applog.Errorf("Error closing transports: %v", err)
			}
		}()
	}

	// The terminal UI owns the screen, so logs move to a file or go quiet.
	interactive := !cfg.Headless && term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		closeLog, err := redirectLogs(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// CRITICAL: Start of real-time audio output. The backend begins pulling
	// samples from the engine; the loop fills it from here on.
	if err := engine.Start(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })

	if publisher != nil {
		publisher.Start()
	}
	if hub != nil {
		server := transport.NewServer(cfg.Transport.HTTPAddress, transport.NewRouter(hub, window, queue))
		g.Go(func() error { return server.Run(ctx) })
	}

	g.Go(func() error {
		// Any exit from the front end ends the session.
		defer stop()
		if !interactive {
			applog.Infof("Running headless, %d strings on %q. Press Ctrl+C to stop.",
				bank.Len(), cfg.Instrument.Keyboard)
			<-ctx.Done()
			return nil
		}
		return tui.RunPlayer(ctx, tui.PlayerConfig{
			Queue:       queue,
			Window:      window,
			Keyboard:    cfg.Instrument.Keyboard,
			Frequencies: freqs,
			Points:      cfg.Engine.DisplayPoints,
			Stats: func() tui.Stats {
				return tui.Stats{
					Cycles:    loop.Cycles(),
					Dropped:   queue.Dropped(),
					Underruns: engine.Underruns(),
					Buffered:  engine.Buffered(),
					Backend:   engine.BackendName(),
				}
			},
		})
	})

	err = g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	loop.Stop()
	if publisher != nil {
		if stopErr := publisher.Stop(); stopErr != nil {
			applog.Errorf("Error stopping publisher: %v", stopErr)
		}
	}
	if stopErr := engine.Stop(); stopErr != nil {
		applog.Errorf("Error stopping audio output: %v", stopErr)
	}
	applog.Infof("Played %d samples, %d plucks dropped, %d underruns",
		loop.Cycles(), queue.Dropped(), engine.Underruns())
	applog.Sync()
	return err
}

// executeCommand handles one-off commands that don't require the audio
// engine to be running.
func executeCommand(cfg *config.Config, w io.Writer) error {
	switch cfg.Command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(w)

	case cmd.CommandPick:
		selection, err := tui.StartDeviceListUI()
		if err != nil {
			return err
		}
		if selection == nil {
			return nil
		}
		fmt.Fprintf(w, "Selected %s\n\n  %s %s\n",
			selection.DeviceName, build.GetBuildFlags().Name, selection.Flags())
		return nil

	case cmd.CommandKeys:
		freqs, err := tuning.Build(cfg.Instrument.Keyboard, tuningOptions(cfg))
		if err != nil {
			return err
		}
		return printKeys(w, cfg.Instrument.Keyboard, freqs, cfg.Audio.SampleRate)

	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

func tuningOptions(cfg *config.Config) tuning.Options {
	return tuning.Options{
		Rule:           cfg.Instrument.Tuning,
		Reference:      cfg.Instrument.Reference,
		ReferenceIndex: cfg.Instrument.ReferenceIndex,
		StepsPerOctave: cfg.Instrument.StepsPerOctave,
		Script:         cfg.Instrument.Script,
	}
}

// printKeys writes one row per key in keyboard order.
func printKeys(w io.Writer, keyboard string, freqs map[rune]float64, sampleRate float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNOTE\tFREQUENCY\tDELAY LINE")
	seen := make(map[rune]bool, len(freqs))
	for _, k := range keyboard {
		f, ok := freqs[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		n, err := karplus.Capacity(f, sampleRate)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		fmt.Fprintf(tw, "%q\t%s\t%.2f Hz\t%d\n", k, tuning.NoteName(f), f, n)
	}
	return tw.Flush()
}

// newPublisher builds the frame publisher and its transports. Both results
// are nil when no transport is enabled; hub is non-nil only with HTTP.
func newPublisher(cfg *config.Config, window *synth.Window, queue *synth.TriggerQueue) (*transport.Publisher, *transport.Hub, error) {
	if !cfg.Transport.HTTPEnabled && !cfg.Transport.UDPEnabled && !cfg.Debug {
		return nil, nil, nil
	}

	windowFunc, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return nil, nil, err
	}
	fftProc, err := analysis.NewFFTProcessor(cfg.Audio.FFTSize, cfg.Audio.SampleRate, windowFunc)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := transport.NewPublisher(cfg.Transport.FrameInterval, window, fftProc)
	if err != nil {
		return nil, nil, err
	}

	var hub *transport.Hub
	if cfg.Transport.HTTPEnabled {
		hub = transport.NewHub(queue)
		publisher.AddTransport("websocket", hub)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, nil, errors.Join(err, publisher.Close())
		}
		publisher.AddTransport("udp", sender)
	}
	if cfg.Debug {
		publisher.AddTransport("log", transport.NewLoggingTransport())
	}
	return publisher, hub, nil
}

// redirectLogs sends logs to path, or discards them when path is empty.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)
	return func() {
		applog.Sync()
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
