package catalog

import (
	"ProjectAssistant/internal/entity"
)

var deviceFreeActions = map[entity.Action]struct{}{
	entity.ActionSendMessage:         {},
	entity.ActionMakeCall:            {},
	entity.ActionCreateReminder:      {},
	entity.ActionCreateCalendarEvent: {},
	entity.ActionCreateNote:          {},
	entity.ActionCreateTask:          {},
	entity.ActionGetDirections:       {},
	entity.ActionQueryHealth:         {},
	entity.ActionRemember:            {},
	entity.ActionRecall:              {},
	entity.ActionConfirmYes:          {},
	entity.ActionConfirmNo:           {},
}

func IsDeviceFree(action entity.Action) bool {
	_, ok := deviceFreeActions[action]
	return ok
}

// Validate reports whether the intent can be grounded in the given snapshot.
// Matching on names is case-insensitive.
func Validate(c entity.Catalog, intent entity.Intent) bool {
	if intent.Action == entity.ActionUnknown {
		return false
	}
	if IsDeviceFree(intent.Action) {
		return true
	}
	if !intent.HasTarget() {
		return false
	}
	target := *intent.Target

	switch intent.Action {
	case entity.ActionRunShortcut:
		return c.HasShortcut(target)
	case entity.ActionSetScene:
		return c.HasScene(target)
	}

	device, ok := c.FindDevice(target)
	if !ok {
		return false
	}
	return device.Supports(intent.Action)
}
