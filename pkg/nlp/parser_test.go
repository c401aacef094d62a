package nlp

import (
	"testing"

	"ProjectAssistant/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentWellFormed(t *testing.T) {
	raw := `{"action":"setBrightness","target":"Living Room Lights","parameters":{"brightness":"40","room":"living"},"confidence":0.92,"humanReadable":"Dim the living room lights to 40%"}`

	intent, err := ParseIntent(raw)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionSetBrightness, intent.Action)
	require.NotNil(t, intent.Target)
	assert.Equal(t, "Living Room Lights", *intent.Target)
	assert.InDelta(t, 0.92, intent.Confidence, 1e-9)
	assert.False(t, intent.RequiresConfirmation)
	assert.Equal(t, "Dim the living room lights to 40%", intent.HumanReadable)

	var keys []string
	intent.Parameters.Each(func(k, _ string) { keys = append(keys, k) })
	assert.Equal(t, []string{"brightness", "room"}, keys)
}

func TestParseIntentFallbacks(t *testing.T) {
	t.Run("unknown action degrades", func(t *testing.T) {
		intent, err := ParseIntent(`{"action":"launchRocket","target":null}`)
		require.NoError(t, err)
		assert.Equal(t, entity.ActionUnknown, intent.Action)
		assert.Equal(t, "launchRocket", intent.HumanReadable)
		assert.Nil(t, intent.Target)
	})

	t.Run("missing optional fields", func(t *testing.T) {
		intent, err := ParseIntent(`  {"action":"turnOn"}  `)
		require.NoError(t, err)
		assert.Equal(t, 0.0, intent.Confidence)
		assert.Equal(t, "turnOn", intent.HumanReadable)
		assert.Equal(t, 0, intent.Parameters.Len())
	})

	t.Run("non string parameter values are stringified", func(t *testing.T) {
		intent, err := ParseIntent(`{"action":"setThermostat","parameters":{"temperature":21.5,"eco":true,"note":null}}`)
		require.NoError(t, err)
		v, ok := intent.Parameters.Get("temperature")
		require.True(t, ok)
		assert.Equal(t, "21.5", v)
		v, _ = intent.Parameters.Get("eco")
		assert.Equal(t, "true", v)
		v, ok = intent.Parameters.Get("note")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("confidence clamped and string tolerated", func(t *testing.T) {
		intent, err := ParseIntent(`{"action":"turnOn","confidence":1.7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, intent.Confidence)

		intent, err = ParseIntent(`{"action":"turnOn","confidence":"0.5"}`)
		require.NoError(t, err)
		assert.Equal(t, 0.5, intent.Confidence)

		intent, err = ParseIntent(`{"action":"turnOn","confidence":"high"}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, intent.Confidence)
	})

	t.Run("parameters of wrong type ignored", func(t *testing.T) {
		intent, err := ParseIntent(`{"action":"createNote","parameters":["a","b"],"target":5}`)
		require.NoError(t, err)
		assert.Equal(t, 0, intent.Parameters.Len())
		assert.Nil(t, intent.Target)
	})

	t.Run("low confidence turnOff is gated", func(t *testing.T) {
		intent, err := ParseIntent(`{"action":"turnOff","target":"Fan","confidence":0.6}`)
		require.NoError(t, err)
		assert.True(t, intent.RequiresConfirmation)
	})
}

func TestParseIntentErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "   ", ErrInvalidJSON},
		{"plain text", "turn on the lights", ErrInvalidJSON},
		{"array", `["turnOn"]`, ErrInvalidJSON},
		{"truncated", `{"action":"turnOn","target":"La`, ErrInvalidJSON},
		{"trailing text", `{"action":"turnOn"} trailing`, ErrInvalidJSON},
		{"second object", `{"action":"turnOn"}{"action":"turnOff"}`, ErrInvalidJSON},
		{"missing action", `{"target":"Lamp","confidence":0.9}`, ErrMissingAction},
		{"non string action", `{"action":3}`, ErrMissingAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIntent(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequiresConfirmation(t *testing.T) {
	always := []entity.Action{entity.ActionUnlockDoor, entity.ActionSendMessage, entity.ActionMakeCall, entity.ActionCreateCalendarEvent}
	unsure := []entity.Action{entity.ActionTurnOff, entity.ActionSetThermostat, entity.ActionLockDoor, entity.ActionCreateReminder}

	for _, a := range always {
		assert.True(t, RequiresConfirmation(a, 1.0), a)
		assert.True(t, RequiresConfirmation(a, 0.99), a)
	}
	for _, a := range unsure {
		assert.True(t, RequiresConfirmation(a, 0.84), a)
		assert.False(t, RequiresConfirmation(a, 0.85), a)
	}

	for _, a := range entity.Actions {
		if _, ok := alwaysConfirm[a]; ok {
			continue
		}
		for _, c := range []float64{0.85, 0.9, 1.0} {
			assert.False(t, RequiresConfirmation(a, c), "%s at %v", a, c)
		}
	}
}
