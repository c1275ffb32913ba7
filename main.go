// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"prosody/cmd"
	"prosody/internal/analysis"
	"prosody/internal/capture"
	"prosody/internal/config"
	applog "prosody/internal/log"
	"prosody/internal/metrics"
	"prosody/internal/playback"
	"prosody/internal/render"
	"prosody/internal/series"
	"prosody/internal/server"
	"prosody/internal/session"
	"prosody/internal/transport"
	"prosody/internal/transport/udp"
	"prosody/internal/tui"
	"prosody/pkg/build"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// defaultTUILog receives log output while the terminal UI owns the screen.
const defaultTUILog = "prosody.log"

// main is the entry point for the prosody comparison tool.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Build the session: capture pipeline, players, analysis client
//   - Run the redraw scheduler, chart viewer, cursor publisher and UI
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or UI exit
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags and keep default build info.
	buildErr := build.Initialize()

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts == nil {
		return // --help or --version
	}
	cfg := opts.Config

	interactive := opts.Command == "" && !opts.Headless
	if err := configureLogging(cfg, interactive); err != nil {
		log.Fatal(err)
	}
	defer applog.Sync()
	if buildErr != nil {
		applog.Debugf("Build: %v", buildErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle one-off commands that don't need a session.
	if opts.Command != "" {
		if err := cmd.Execute(ctx, opts, os.Stdout); err != nil {
			applog.Fatalf("%s: %v", opts.Command, err)
		}
		return
	}

	if opts.PickDevice {
		if err := pickDevice(&cfg.Audio); err != nil {
			applog.Fatalf("Device picker: %v", err)
		}
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if err := run(ctx, cfg, interactive); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run builds the session and blocks until ctx is cancelled or the UI exits.
func run(ctx context.Context, cfg *config.Config, interactive bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pa := capture.NewPortAudio(cfg.Audio)
	defer func() {
		if err := pa.Close(); err != nil {
			applog.Warnf("Capture: %v", err)
		}
	}()

	sess := session.New(session.Deps{
		Pipeline:     capture.NewPipeline(pa, cfg.Audio.BlockQueue),
		Collaborator: analysis.NewClient(cfg.Analysis, m),
		Reference:    playback.NewPlayer("reference", pa),
		User:         playback.NewPlayer("user", pa),
		Metrics:      m,
		Controls: series.Controls{
			TimeOffset:      cfg.Controls.TimeOffset,
			PitchMultiplier: cfg.Controls.PitchMultiplier,
			IntensityOffset: cfg.Controls.IntensityOffset,
		},
	})

	renderer := render.New(render.LayoutFromConfig(cfg.Render))

	var scheduler *playback.Scheduler
	requestRedraw := func() { scheduler.RequestRedraw() }

	var srv *server.Server
	var draw func()
	if cfg.Viewer.Enabled {
		srv = server.New(server.Options{
			Config:   cfg.Viewer,
			State:    sess,
			Renderer: renderer,
			Metrics:  m,
			Gatherer: reg,
			Redraw:   requestRedraw,
		})
		draw = srv.Publisher().Draw
	} else {
		// Without viewers frames are only summarized in the debug log.
		draw = server.NewPublisher(sess, renderer, transport.NewLoggingTransport(), func() int { return 0 }, m).Draw
	}

	scheduler = playback.NewScheduler(sess.Playing, draw, cfg.Playback.FrameInterval, cfg.Playback.IdleInterval)
	sess.OnRedraw(scheduler.RequestRedraw)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if srv != nil {
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if cfg.Transport.UDPEnabled {
		publisher, err := startCursorPublisher(cfg.Transport, sess)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	if interactive {
		g.Go(func() error {
			defer cancel()
			return tui.RunSession(gctx, sess, cfg.Controls)
		})
	} else {
		g.Go(func() error {
			if _, err := sess.LoadSamples(gctx); err != nil {
				applog.Errorf("Session: %v", err)
			}
			<-gctx.Done()
			return nil
		})
	}

	applog.Infof("Session: Started (viewer: %t, udp: %t)", cfg.Viewer.Enabled, cfg.Transport.UDPEnabled)
	err := g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	applog.Infof("Session: Shutting down")
	return errors.Join(err, sess.Close())
}

// cursorPublisher pairs the UDP publisher with the socket it owns.
type cursorPublisher struct {
	*udp.UDPPublisher
	sender *udp.UDPSender
}

func (p cursorPublisher) Close() error {
	return errors.Join(p.UDPPublisher.Close(), p.sender.Close())
}

func startCursorPublisher(cfg config.TransportConfig, source udp.CursorSource) (cursorPublisher, error) {
	sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
	if err != nil {
		return cursorPublisher{}, err
	}
	publisher, err := udp.NewUDPPublisher(cfg.UDPSendInterval, sender, source)
	if err != nil {
		sender.Close()
		return cursorPublisher{}, err
	}
	publisher.Start()
	return cursorPublisher{UDPPublisher: publisher, sender: sender}, nil
}

// configureLogging sends logs to a file while the terminal UI is running so
// they do not corrupt the screen.
func configureLogging(cfg *config.Config, interactive bool) error {
	opts := applog.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if cfg.Debug {
		opts.Level = "debug"
	}
	if interactive && opts.File == "" {
		opts.File = defaultTUILog
	}
	return applog.Configure(opts)
}

func pickDevice(audio *config.AudioConfig) error {
	if err := capture.Initialize(); err != nil {
		return err
	}
	choice, ok, err := tui.RunDevicePicker()
	if terr := capture.Terminate(); err == nil {
		err = terr
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no device selected")
	}
	audio.InputDevice = choice.DeviceID
	audio.SampleRate = choice.SampleRate
	applog.Infof("Capture: Using %q at %.0f Hz", choice.Name, choice.SampleRate)
	return nil
}
