package executor

import (
	"context"
	"fmt"

	"ProjectAssistant/internal/entity"
	"github.com/sirupsen/logrus"
)

// Actuator performs the real-world side effect for a validated intent.
type Actuator interface {
	Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error)
}

// Unavailable is selected at composition time when a capability is missing
// on this deployment.
type Unavailable struct {
	Name string
}

func (u Unavailable) Execute(context.Context, entity.Intent) (entity.ExecutionResult, error) {
	return entity.Failure(u.Name + " not available"), nil
}

type Actuators struct {
	Devices    Actuator
	Shortcuts  Actuator
	Reminders  Actuator
	Calendar   Actuator
	Navigation Actuator
	Notes      Actuator
}

func (a Actuators) withDefaults() Actuators {
	if a.Devices == nil {
		a.Devices = Unavailable{Name: "device control"}
	}
	if a.Shortcuts == nil {
		a.Shortcuts = Unavailable{Name: "shortcuts"}
	}
	if a.Reminders == nil {
		a.Reminders = Unavailable{Name: "reminders"}
	}
	if a.Calendar == nil {
		a.Calendar = Unavailable{Name: "calendar"}
	}
	if a.Navigation == nil {
		a.Navigation = Unavailable{Name: "navigation"}
	}
	if a.Notes == nil {
		a.Notes = Unavailable{Name: "notes"}
	}
	return a
}

// Gate is the confirmation slot consulted before anything runs.
type Gate interface {
	Check(intent entity.Intent) *entity.ExecutionResult
	HandleConfirmation(confirmed bool) (entity.Intent, bool)
}

type Router struct {
	log       *logrus.Logger
	gate      Gate
	actuators Actuators
}

func NewRouter(log *logrus.Logger, gate Gate, actuators Actuators) *Router {
	return &Router{
		log:       log,
		gate:      gate,
		actuators: actuators.withDefaults(),
	}
}

// Execute resolves confirmations first, then gates, then dispatches.
// Errors come from actuators only.
func (r *Router) Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	switch intent.Action {
	case entity.ActionConfirmYes:
		confirmed, ok := r.gate.HandleConfirmation(true)
		if !ok {
			return entity.Failure("No pending action to confirm"), nil
		}
		r.log.WithFields(logrus.Fields{
			"action": confirmed.Action.String(),
			"target": confirmed.TargetOr(""),
		}).Info("Executing confirmed action")
		return r.dispatch(ctx, confirmed)

	case entity.ActionConfirmNo:
		r.gate.HandleConfirmation(false)
		return entity.Success("Action cancelled"), nil
	}

	if gated := r.gate.Check(intent); gated != nil {
		return *gated, nil
	}

	return r.dispatch(ctx, intent)
}

func (r *Router) dispatch(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	var actuator Actuator

	switch intent.Action {
	case entity.ActionTurnOn, entity.ActionTurnOff, entity.ActionSetBrightness, entity.ActionSetTemperature,
		entity.ActionLockDoor, entity.ActionUnlockDoor, entity.ActionSetThermostat, entity.ActionSetScene:
		actuator = r.actuators.Devices
	case entity.ActionRunShortcut:
		actuator = r.actuators.Shortcuts
	case entity.ActionCreateReminder, entity.ActionCreateTask:
		actuator = r.actuators.Reminders
	case entity.ActionCreateCalendarEvent:
		actuator = r.actuators.Calendar
	case entity.ActionGetDirections:
		actuator = r.actuators.Navigation
	case entity.ActionCreateNote, entity.ActionRemember:
		actuator = r.actuators.Notes

	case entity.ActionRecall:
		return entity.Failure("Recall should be handled by pipeline"), nil

	case entity.ActionSendMessage:
		to := orDefault(intent.Parameters.Lookup("to"), "unknown")
		body := orDefault(intent.Parameters.Lookup("body"), intent.TargetOr(""))
		return entity.Success(fmt.Sprintf("Message to %s: %s [sent via relay]", to, body)), nil

	case entity.ActionMakeCall:
		to := orDefault(intent.Parameters.Lookup("to"), "unknown")
		return entity.Success(fmt.Sprintf("Calling %s [not yet implemented]", to)), nil

	case entity.ActionQueryHealth:
		return entity.Success("Health queries not yet implemented"), nil

	case entity.ActionUnknown:
		return entity.Failure("I didn't understand that command"), nil

	default:
		return entity.Failure("Unexpected action: " + intent.Action.String()), nil
	}

	return actuator.Execute(ctx, intent)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
