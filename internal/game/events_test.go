package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEventFlatEnvelope(t *testing.T) {
	endsAt := time.Date(2024, 3, 1, 12, 1, 20, 0, time.UTC)
	data, err := MarshalEvent(RoundStarted{
		RoundID:    7,
		PlayerID:   2,
		PlayerName: "bob",
		Word:       "apple",
		Duration:   80,
		EndsAt:     endsAt,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "round_started", fields["type"])
	assert.Equal(t, float64(7), fields["round_id"])
	assert.Equal(t, "bob", fields["player_name"])
	assert.Equal(t, float64(80), fields["duration"])
	assert.Equal(t, "2024-03-01T12:01:20Z", fields["ends_at"])

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	started, ok := decoded.(RoundStarted)
	require.True(t, ok)
	assert.Equal(t, int64(7), started.RoundID)
	assert.True(t, started.EndsAt.Equal(endsAt))
}

func TestMarshalEmptyPayload(t *testing.T) {
	data, err := MarshalEvent(GameFinished{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game_finished"}`, string(data))
}

func TestDecodeUnknownEvent(t *testing.T) {
	raw := []byte(`{"type":"confetti","colour":"red"}`)
	event, err := DecodeEvent(raw)
	require.NoError(t, err)

	unknown, ok := event.(UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, EventType("confetti"), unknown.Type())

	again, err := MarshalEvent(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)
}
