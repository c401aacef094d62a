package executor

import (
	"context"
	"errors"
	"testing"

	"ProjectAssistant/internal/confirmation"
	"ProjectAssistant/internal/entity"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingActuator struct {
	calls  []entity.Intent
	result entity.ExecutionResult
	err    error
}

func (r *recordingActuator) Execute(_ context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	r.calls = append(r.calls, intent)
	return r.result, r.err
}

func newTestRouter(devices *recordingActuator) (*Router, *confirmation.Engine) {
	logger, _ := test.NewNullLogger()
	gate := confirmation.New()
	return NewRouter(logger, gate, Actuators{Devices: devices}), gate
}

func TestRouterDispatchesDeviceAction(t *testing.T) {
	devices := &recordingActuator{result: entity.Success("Lamp turned on")}
	router, _ := newTestRouter(devices)

	res, err := router.Execute(context.Background(), entity.Intent{
		Action: entity.ActionTurnOn,
		Target: entity.StringPtr("Lamp"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.Success("Lamp turned on"), res)
	require.Len(t, devices.calls, 1)
	assert.Equal(t, entity.ActionTurnOn, devices.calls[0].Action)
}

func TestRouterGatesThenExecutesOnYes(t *testing.T) {
	devices := &recordingActuator{result: entity.Success("Front Door unlocked")}
	router, _ := newTestRouter(devices)

	unlock := entity.Intent{
		Action:               entity.ActionUnlockDoor,
		Target:               entity.StringPtr("Front Door"),
		Confidence:           0.99,
		RequiresConfirmation: true,
	}

	res, err := router.Execute(context.Background(), unlock)
	require.NoError(t, err)
	assert.Equal(t, entity.ResultConfirmationRequired, res.Kind)
	assert.Empty(t, devices.calls)

	res, err = router.Execute(context.Background(), entity.Intent{Action: entity.ActionConfirmYes})
	require.NoError(t, err)
	assert.Equal(t, entity.Success("Front Door unlocked"), res)
	require.Len(t, devices.calls, 1)
	assert.Equal(t, entity.ActionUnlockDoor, devices.calls[0].Action)

	res, err = router.Execute(context.Background(), entity.Intent{Action: entity.ActionConfirmYes})
	require.NoError(t, err)
	assert.Equal(t, entity.Failure("No pending action to confirm"), res)
	assert.Len(t, devices.calls, 1)
}

func TestRouterConfirmNoCancels(t *testing.T) {
	devices := &recordingActuator{}
	router, gate := newTestRouter(devices)

	_, err := router.Execute(context.Background(), entity.Intent{Action: entity.ActionUnlockDoor, RequiresConfirmation: true})
	require.NoError(t, err)

	res, err := router.Execute(context.Background(), entity.Intent{Action: entity.ActionConfirmNo})
	require.NoError(t, err)
	assert.Equal(t, entity.Success("Action cancelled"), res)

	_, ok := gate.CurrentPending()
	assert.False(t, ok)
	assert.Empty(t, devices.calls)
}

func TestRouterInlineActions(t *testing.T) {
	router, _ := newTestRouter(&recordingActuator{})

	tests := []struct {
		name   string
		intent entity.Intent
		want   entity.ExecutionResult
	}{
		{
			"send message",
			entity.Intent{Action: entity.ActionSendMessage, Parameters: entity.NewParameters("to", "Mom", "body", "hi")},
			entity.Success("Message to Mom: hi [sent via relay]"),
		},
		{
			"make call",
			entity.Intent{Action: entity.ActionMakeCall, Parameters: entity.NewParameters()},
			entity.Success("Calling unknown [not yet implemented]"),
		},
		{"health", entity.Intent{Action: entity.ActionQueryHealth}, entity.Success("Health queries not yet implemented")},
		{"recall", entity.Intent{Action: entity.ActionRecall}, entity.Failure("Recall should be handled by pipeline")},
		{"unknown", entity.Intent{Action: entity.ActionUnknown}, entity.Failure("I didn't understand that command")},
		{"calendar unavailable", entity.Intent{Action: entity.ActionCreateCalendarEvent}, entity.Failure("calendar not available")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := router.Execute(context.Background(), tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestRouterPropagatesActuatorError(t *testing.T) {
	devices := &recordingActuator{err: errors.New("bus down")}
	router, _ := newTestRouter(devices)

	_, err := router.Execute(context.Background(), entity.Intent{Action: entity.ActionTurnOff, Target: entity.StringPtr("Lamp")})
	assert.EqualError(t, err, "bus down")
}
