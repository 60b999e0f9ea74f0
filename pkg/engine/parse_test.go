package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/world"
)

func TestParseAction_WaitAndSkip(t *testing.T) {
	intent, params, err := ParseAction("WAIT")
	require.NoError(t, err)
	assert.Equal(t, IntentWait, intent)
	assert.Equal(t, Params{}, params)

	intent, params, err = ParseAction("SKIP")
	require.NoError(t, err)
	assert.Equal(t, IntentSkip, intent)
	assert.Equal(t, Params{}, params)
}

func TestParseAction_Move(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    world.Facing
		wantErr bool
	}{
		{"north", "MOVE N", world.FacingNorth, false},
		{"south", "MOVE S", world.FacingSouth, false},
		{"east", "MOVE E", world.FacingEast, false},
		{"west", "MOVE W", world.FacingWest, false},
		{"invalid direction", "MOVE Q", "", true},
		{"empty direction", "MOVE ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, params, err := ParseAction(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedAction))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, IntentMove, intent)
			assert.Equal(t, tt.want, params.Direction)
		})
	}
}

func TestParseAction_Paint(t *testing.T) {
	intent, params, err := ParseAction("PAINT #FF00AA")
	require.NoError(t, err)
	assert.Equal(t, IntentPaint, intent)
	assert.Equal(t, "#FF00AA", params.Color)
	assert.Nil(t, params.TargetX)
	assert.Nil(t, params.TargetY)

	intent, params, err = ParseAction("PAINT #ff00aa 3 4")
	require.NoError(t, err)
	assert.Equal(t, IntentPaint, intent)
	require.NotNil(t, params.TargetX)
	require.NotNil(t, params.TargetY)
	assert.Equal(t, 3, *params.TargetX)
	assert.Equal(t, 4, *params.TargetY)
}

func TestParseAction_PaintErrors(t *testing.T) {
	tests := []string{
		"PAINT red",
		"PAINT #FFF",
		"PAINT #FF00AA 3",
		"PAINT #FF00AA x y",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, _, err := ParseAction(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedAction))
		})
	}
}

func TestParseAction_Speak(t *testing.T) {
	intent, params, err := ParseAction("SPEAK hello there")
	require.NoError(t, err)
	assert.Equal(t, IntentSpeak, intent)
	assert.Equal(t, "hello there", params.Message)

	_, _, err = ParseAction("SPEAK ")
	require.Error(t, err)

	long := "SPEAK " + strings.Repeat("x", maxSpeakLength+1)
	_, _, err = ParseAction(long)
	require.Error(t, err)
}

func TestParseAction_Unrecognized(t *testing.T) {
	_, _, err := ParseAction("DANCE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedAction))
}
