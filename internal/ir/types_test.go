package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRoundTrip(t *testing.T) {
	for _, s := range []Source{SourceFresh, SourceScheduled, SourcePressure, SourceMilestone, SourcePlayer} {
		got, err := ParseSource(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseSource("telepathy")
	assert.Error(t, err)
	assert.False(t, SourceFresh.Queued())
	assert.True(t, SourcePlayer.Queued())
}

func TestQueuedEventJSONUsesSourceName(t *testing.T) {
	data, err := json.Marshal(QueuedEvent{Key: 3, Source: SourceMilestone, ReadyTick: 4, Seq: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source":"milestone"`)

	var back QueuedEvent
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, SourceMilestone, back.Source)
}

func TestQueuedEventLess(t *testing.T) {
	a := QueuedEvent{ReadyTick: 3, Seq: 9}
	b := QueuedEvent{ReadyTick: 5, Seq: 1}
	c := QueuedEvent{ReadyTick: 3, Seq: 10}

	assert.True(t, a.Less(b))
	assert.True(t, a.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}

func TestQueuedEventExpired(t *testing.T) {
	e := QueuedEvent{ReadyTick: 10, MaxWaitTicks: 3}
	assert.False(t, e.Expired(13))
	assert.True(t, e.Expired(14))

	forever := QueuedEvent{ReadyTick: 10}
	assert.False(t, forever.Expired(1_000_000))
}

func TestParseStoryletKey(t *testing.T) {
	k, err := ParseStoryletKey("17")
	require.NoError(t, err)
	assert.Equal(t, StoryletKey(17), k)

	_, err = ParseStoryletKey("0")
	assert.Error(t, err)
	_, err = ParseStoryletKey("x")
	assert.Error(t, err)
}

func TestBreakdownTotalSubtractsRecency(t *testing.T) {
	b := Breakdown{Base: 1, Heat: 2, Pressure: 3, Milestone: 4, Recency: 5, Queue: 6, Jitter: 0.5}
	assert.Equal(t, 11.5, b.Total())
}
