package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/saytap/internal/audio"
	"github.com/rbright/saytap/internal/audio/portaudio"
	"github.com/rbright/saytap/internal/cmdqueue"
	"github.com/rbright/saytap/internal/command"
	"github.com/rbright/saytap/internal/config"
	"github.com/rbright/saytap/internal/dispatch"
	"github.com/rbright/saytap/internal/events"
	"github.com/rbright/saytap/internal/indicator"
	"github.com/rbright/saytap/internal/input"
	"github.com/rbright/saytap/internal/ipc"
	"github.com/rbright/saytap/internal/metrics"
	"github.com/rbright/saytap/internal/pipeline"
	"github.com/rbright/saytap/internal/region"
	"github.com/rbright/saytap/internal/session"
	"github.com/rbright/saytap/internal/speech"
	"github.com/rbright/saytap/internal/vosk"
)

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 2)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: saytap is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = listener.Close() }()

	registry := region.NewRegistry()
	if cfg.Regions.Path != "" {
		warnings, err := registry.Load(r.Fs, cfg.Regions.Path)
		if err != nil {
			r.warn(logger, "regions load failed", err.Error())
		}
		for _, w := range warnings {
			r.warn(logger, "regions warning", w)
		}
	}
	logger.Info("regions loaded", "path", cfg.Regions.Path, "count", registry.Len())

	classifier, err := command.FromConfig(r.Fs, cfg.Commands)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	frameSamples := audio.FrameSamples(cfg.Audio.FrameMS)
	engine, release, err := buildEngine(cfg, classifier, frameSamples)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("speech engine unavailable", "error", err.Error())
		return 1
	}
	defer release()

	injector, err := input.New(cfg.Input)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("input backend resolved", "backend", injector.Backend())

	policy, err := cmdqueue.ParseOverflowPolicy(cfg.Dispatch.Overflow)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	queue := cmdqueue.New(cfg.Dispatch.QueueCapacity, policy)

	bus := events.New()
	counters := metrics.New()
	if err := counters.Attach(bus); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	notifier := indicator.New(cfg.Indicator, logger)
	if err := notifier.Attach(bus); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	// The source outlives signal cancellation so a stop can drain it.
	sourceCtx, cancelSource := context.WithCancel(context.Background())
	defer cancelSource()

	source, err := r.startSource(sourceCtx, cfg.Audio, frameSamples, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("audio source unavailable", "error", err.Error())
		return 1
	}
	logger.Info("audio source started",
		"backend", cfg.Audio.Backend,
		"device", source.Device().ID,
		"frame_samples", frameSamples,
	)

	producerOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithBus(bus),
		pipeline.WithCounters(counters),
	}
	if cfg.Debug.EnableAudioDump {
		dump, err := pipeline.OpenAudioDump()
		if err != nil {
			r.warn(logger, "audio dump unavailable", err.Error())
		} else {
			logger.Info("audio dump enabled", "path", dump.Path())
			producerOpts = append(producerOpts, pipeline.WithAudioDump(dump))
		}
	}
	producer := pipeline.NewProducer(source, speech.NewDecoder(engine), classifier, queue, producerOpts...)

	dispatcher := dispatch.New(registry, injector,
		dispatch.WithSettleDelay(time.Duration(cfg.Dispatch.SettleMS)*time.Millisecond),
		dispatch.WithLogger(logger),
		dispatch.WithBus(bus),
	)
	consumer := dispatch.NewConsumer(queue, dispatcher, time.Duration(cfg.Dispatch.TickMS)*time.Millisecond)

	tasks := []session.Runner{session.RunnerFunc(notifier.Run)}
	if cfg.Regions.Watch && cfg.Regions.Path != "" {
		watcher := region.NewWatcher(registry, r.Fs, cfg.Regions.Path, logger,
			region.WithReloadHook(func(count int, err error) {
				bus.Publish(events.Event{Topic: events.RegionsReloaded, Count: count, Err: err})
			}),
		)
		tasks = append(tasks, watcher)
	}

	controller := session.NewController(logger, session.Loops{
		Source:   source,
		Producer: producer,
		Consumer: consumer,
		Tasks:    tasks,
	},
		session.WithIndicator(notifier),
		session.WithCounters(counters),
		session.WithRegistry(registry),
		session.WithQueue(queue),
	)

	serverCtx, stopServer := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)

	stopServer()
	if err := <-serverErr; err != nil {
		logger.Error("ipc server failed", "error", err.Error())
	}

	counters.Log(context.Background(), logger, "session counters")
	logSessionResult(logger, result)

	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	return 0
}

// buildEngine returns the recognizer for cfg plus a release func that frees
// it and its model.
func buildEngine(cfg config.Config, classifier *command.Classifier, frameSamples int) (speech.Engine, func(), error) {
	if cfg.Audio.Backend == "simulate" {
		interval := time.Duration(cfg.Simulate.IntervalMS) * time.Millisecond
		engine := speech.NewScriptedEngine(cfg.Simulate.Phrases, interval, audio.FrameDuration(frameSamples))
		return engine, engine.Close, nil
	}

	model, err := vosk.LoadModel(cfg.Model.Path)
	if err != nil {
		return nil, nil, err
	}
	grammar := cfg.Model.Grammar
	if len(grammar) == 0 {
		grammar = classifier.Phrases()
	}
	engine, err := vosk.NewEngine(model, audio.SampleRate, grammar)
	if err != nil {
		model.Close()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		model.Close()
	}, nil
}

func (r Runner) startSource(ctx context.Context, cfg config.AudioConfig, frameSamples int, logger *slog.Logger) (audio.Source, error) {
	switch cfg.Backend {
	case "pulse":
		selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			r.warn(logger, "audio device fallback", selection.Warning)
		}
		return audio.StartPulse(ctx, selection.Device, frameSamples)
	case "portaudio":
		return portaudio.Start(ctx, frameSamples)
	case "wav":
		return audio.OpenWAV(ctx, r.Fs, cfg.WAVFile, audio.WAVOptions{FrameSamples: frameSamples, Realtime: true})
	case "simulate":
		return audio.StartSilence(ctx, frameSamples), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Backend)
	}
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	attrs := []any{
		"state", string(result.State),
		"reason", result.Reason,
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Counters != nil {
		attrs = append(attrs,
			"clicked", result.Counters[string(events.Dispatched)],
			"missing", result.Counters[string(events.RegionMissing)],
			"failed", result.Counters[string(events.InjectionFailed)],
		)
	}
	if result.Err != nil {
		attrs = append(attrs, "error", result.Err.Error())
		logger.Error("session failed", attrs...)
		return
	}
	logger.Info("session complete", attrs...)
}
