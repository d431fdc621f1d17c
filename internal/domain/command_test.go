package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-whiteboard/internal/domain"
)

func TestDrawingCommandMarshalsPayloadAsObject(t *testing.T) {
	var cmd domain.DrawingCommand
	require.NoError(t, cmd.SetStroke(domain.StrokePayload{
		Points: []domain.Point{{X: 1, Y: 2}},
		Color:  "#000",
		Width:  3,
	}))

	b, err := json.Marshal(cmd)
	require.NoError(t, err)
	// Clients read the stroke directly; the payload must be a nested object,
	// not a JSON-encoded string.
	assert.Contains(t, string(b), `"payload":{"points":[{"x":1,"y":2}]`)

	var decoded domain.DrawingCommand
	require.NoError(t, json.Unmarshal(b, &decoded))
	stroke, err := decoded.ParseStroke()
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{X: 1, Y: 2}}, stroke.Points)
	assert.Equal(t, "#000", stroke.Color)
	assert.Equal(t, float64(3), stroke.Width)
}

func TestParseStrokeRejectsOtherKinds(t *testing.T) {
	cmd := domain.DrawingCommand{Kind: domain.CommandClear}
	_, err := cmd.ParseStroke()
	assert.Error(t, err)
}
