// Package indicator turns runtime events into notifications and audio cues.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/rbright/saytap/internal/config"
	"github.com/rbright/saytap/internal/events"
	"github.com/rbright/saytap/internal/hypr"
	"github.com/rbright/saytap/internal/logging"
)

const queueDepth = 32

// desktopNotify is swapped in tests.
var desktopNotify = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier shows session and dispatch feedback through Hyprland or a
// desktop notification, plus short synthesized cues.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	queue chan events.Event

	mu             sync.Mutex
	focusedMonitor string
	soundMu        sync.Mutex
	playCueFn      func(cueKind) error
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:       cfg,
		logger:    logging.OrDiscard(logger),
		messages:  indicatorMessagesFromEnv(),
		queue:     make(chan events.Event, queueDepth),
		playCueFn: emitCue,
	}
}

// Attach subscribes to the topics the notifier renders. Handlers only
// enqueue; Run does the slow work.
func (n *Notifier) Attach(bus *events.Bus) error {
	topics := []events.Topic{
		events.Dispatched,
		events.RegionMissing,
		events.InjectionFailed,
		events.RegionsReloaded,
	}
	if n.cfg.ShowPartial {
		topics = append(topics, events.Partial)
	}
	for _, topic := range topics {
		if err := bus.Subscribe(topic, n.enqueue); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (n *Notifier) enqueue(ev events.Event) {
	select {
	case n.queue <- ev:
	default:
		n.logger.Debug("indicator queue full; event skipped", "topic", string(ev.Topic))
	}
}

// Run renders queued events until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-n.queue:
			n.Handle(ctx, ev)
		}
	}
}

// Handle renders a single event.
func (n *Notifier) Handle(ctx context.Context, ev events.Event) {
	switch ev.Topic {
	case events.Dispatched:
		n.playCue(cueClick)
		n.show(ctx, 5, "rgb(a6e3a1)", fmt.Sprintf(n.messages.clicked, ev.Region))
	case events.RegionMissing:
		n.playCue(cueMiss)
		n.show(ctx, 3, "rgb(f9e2af)", fmt.Sprintf(n.messages.missing, ev.Region))
	case events.InjectionFailed:
		n.playCue(cueMiss)
		n.show(ctx, 3, "rgb(f38ba8)", fmt.Sprintf(n.messages.failed, ev.Region))
	case events.RegionsReloaded:
		text := fmt.Sprintf(n.messages.reloaded, ev.Count)
		if ev.Err != nil {
			text = n.messages.reloadFailed
		}
		n.show(ctx, 1, "", text)
	case events.Partial:
		if strings.TrimSpace(ev.Text) == "" {
			return
		}
		n.show(ctx, 1, "rgb(cba6f7)", "… "+ev.Text)
	}
}

// ShowListening signals capture start.
func (n *Notifier) ShowListening(ctx context.Context) {
	n.playCue(cueListen)
	if !n.cfg.Enable {
		return
	}
	n.ensureFocusedMonitor(ctx)
	n.show(ctx, 1, "rgb(89b4fa)", n.messages.listening)
}

// ShowError displays an error-state message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	n.show(ctx, 3, "rgb(f38ba8)", text)
}

// Hide dismisses the active indicator and plays the stop cue.
func (n *Notifier) Hide(ctx context.Context) {
	n.playCue(cueStop)
	if !n.cfg.Enable || n.desktop() {
		return
	}
	n.run(ctx, hypr.DismissNotify)
}

// FocusedMonitor returns the monitor captured when listening began.
func (n *Notifier) FocusedMonitor() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focusedMonitor
}

func (n *Notifier) ensureFocusedMonitor(ctx context.Context) {
	if n.desktop() {
		return
	}
	n.mu.Lock()
	alreadySet := n.focusedMonitor != ""
	n.mu.Unlock()
	if alreadySet {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		n.log("indicator focused monitor query failed", err)
		return
	}

	n.mu.Lock()
	n.focusedMonitor = monitor
	n.mu.Unlock()
}

func (n *Notifier) show(ctx context.Context, icon int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	timeout := n.cfg.TimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		if n.desktop() {
			return desktopNotify(n.appName(), text)
		}
		return hypr.Notify(ctx, icon, timeout, color, text)
	})
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

func (n *Notifier) appName() string {
	name := strings.TrimSpace(n.cfg.DesktopAppName)
	if name == "" {
		return "saytap"
	}
	return name
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback off the caller's goroutine.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.playCueFn(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
