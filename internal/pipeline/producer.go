// Package pipeline runs the capture side: frames in, classified commands out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/saytap/internal/audio"
	"github.com/rbright/saytap/internal/cmdqueue"
	"github.com/rbright/saytap/internal/command"
	"github.com/rbright/saytap/internal/events"
	"github.com/rbright/saytap/internal/logging"
	"github.com/rbright/saytap/internal/metrics"
	"github.com/rbright/saytap/internal/speech"
)

// Producer feeds source frames through the decoder and classifier and sends
// each recognized command onto the queue. It never waits on the consumer.
type Producer struct {
	source     audio.Source
	decoder    *speech.Decoder
	classifier *command.Classifier
	queue      *cmdqueue.Queue

	logger   *slog.Logger
	bus      *events.Bus
	counters *metrics.Counters
	dump     *AudioDump

	lastPartial string
}

// Option configures a Producer.
type Option func(*Producer)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) { p.logger = logger }
}

func WithBus(bus *events.Bus) Option {
	return func(p *Producer) { p.bus = bus }
}

func WithCounters(counters *metrics.Counters) Option {
	return func(p *Producer) { p.counters = counters }
}

// WithAudioDump copies every frame into dump. Run closes it.
func WithAudioDump(dump *AudioDump) Option {
	return func(p *Producer) { p.dump = dump }
}

func NewProducer(
	source audio.Source,
	decoder *speech.Decoder,
	classifier *command.Classifier,
	queue *cmdqueue.Queue,
	opts ...Option,
) *Producer {
	p := &Producer{
		source:     source,
		decoder:    decoder,
		classifier: classifier,
		queue:      queue,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)
	return p
}

// Run consumes frames until the source closes them or ctx is done. At end
// of stream the decoder is flushed so a trailing utterance still counts.
// The queue is closed on every return path.
func (p *Producer) Run(ctx context.Context) error {
	defer p.queue.Close()
	defer p.closeDump()

	frames := p.source.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				if state, pending := p.decoder.Flush(); pending {
					p.handle(state)
				}
				if err := p.source.Err(); err != nil {
					return fmt.Errorf("audio source: %w", err)
				}
				return nil
			}
			p.process(frame)
		}
	}
}

func (p *Producer) process(frame audio.Frame) {
	if len(frame) == 0 {
		return
	}
	if p.counters != nil {
		p.counters.AddFrames(1)
	}
	if p.dump != nil {
		if err := p.dump.Write(frame); err != nil {
			p.logger.Warn("debug audio dump disabled", "error", err.Error())
			p.closeDump()
		}
	}
	p.handle(p.decoder.Process(frame))
}

func (p *Producer) handle(state speech.State) {
	switch state.Kind {
	case speech.Failed:
		p.lastPartial = ""
		p.logger.Warn("recognition failed", "error", state.Err.Error())
		p.bus.Publish(events.Event{Topic: events.RecognitionFailed, Err: state.Err})
	case speech.Running:
		if state.Partial == "" || state.Partial == p.lastPartial {
			return
		}
		p.lastPartial = state.Partial
		p.bus.Publish(events.Event{Topic: events.Partial, Text: state.Partial})
	case speech.Finalized:
		p.lastPartial = ""
		p.finalize(state.Text)
	}
}

func (p *Producer) finalize(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		p.bus.Publish(events.Event{Topic: events.Unmatched})
		return
	}
	p.bus.Publish(events.Event{Topic: events.Final, Text: text})

	cmd, ok := p.classifier.Classify(text)
	if !ok {
		p.logger.Debug("no command in utterance", "text", text)
		p.bus.Publish(events.Event{Topic: events.Unmatched, Text: text})
		return
	}

	res := p.queue.Send(cmdqueue.Event{Command: cmd, Text: text})
	if res.Closed {
		p.logger.Warn("command queue closed; command discarded", "command", cmd.String())
		return
	}
	if res.Accepted {
		p.logger.Info("command queued", "command", cmd.String(), "seq", res.Seq, "text", text)
		p.bus.Publish(events.Event{Topic: events.Queued, Command: cmd.String(), Text: text, Seq: res.Seq})
	}
	if res.Dropped != nil {
		p.logger.Warn("command queue full; command dropped",
			"command", res.Dropped.Command.String(),
			"seq", res.Dropped.Seq,
		)
		p.bus.Publish(events.Event{
			Topic:   events.Dropped,
			Command: res.Dropped.Command.String(),
			Text:    res.Dropped.Text,
			Seq:     res.Dropped.Seq,
		})
	}
}

func (p *Producer) closeDump() {
	if p.dump == nil {
		return
	}
	path := p.dump.Path()
	if err := p.dump.Close(); err != nil {
		p.logger.Warn("unable to finalize debug audio dump", "path", path, "error", err.Error())
	} else {
		p.logger.Info("debug audio dump written", "path", path)
	}
	p.dump = nil
}
