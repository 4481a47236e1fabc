package metrics

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/saytap/internal/events"
)

func TestAttachCountsPublishedEvents(t *testing.T) {
	bus := events.New()
	counters := New()
	require.NoError(t, counters.Attach(bus))

	bus.Publish(events.Event{Topic: events.RegionMissing})
	bus.Publish(events.Event{Topic: events.RegionMissing})
	bus.Publish(events.Event{Topic: events.Dispatched})
	counters.AddFrames(12)

	snapshot := counters.Snapshot()
	require.Equal(t, int64(2), snapshot[string(events.RegionMissing)])
	require.Equal(t, int64(1), snapshot[string(events.Dispatched)])
	require.Equal(t, int64(0), snapshot[string(events.InjectionFailed)])
	require.Equal(t, int64(12), snapshot["frames"])
}

func TestIncUnknownTopicCreatesCounter(t *testing.T) {
	counters := New()
	counters.Inc(events.Topic("custom"))
	require.Equal(t, int64(1), counters.Snapshot()["custom"])
}

func TestLogWritesAllCounters(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	counters := New()
	counters.Inc(events.Dropped)
	counters.Log(context.Background(), logger, "counters")

	require.Contains(t, buf.String(), `"msg":"counters"`)
	require.Contains(t, buf.String(), `"command:dropped":1`)
	require.Contains(t, buf.String(), `"frames":0`)

	counters.Log(context.Background(), nil, "ignored")
}
