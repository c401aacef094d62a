package nlp

import "ProjectAssistant/internal/entity"

const ConfirmationThreshold = 0.85

var alwaysConfirm = map[entity.Action]struct{}{
	entity.ActionUnlockDoor:          {},
	entity.ActionSendMessage:         {},
	entity.ActionMakeCall:            {},
	entity.ActionCreateCalendarEvent: {},
}

var confirmWhenUnsure = map[entity.Action]struct{}{
	entity.ActionTurnOff:        {},
	entity.ActionSetThermostat:  {},
	entity.ActionLockDoor:       {},
	entity.ActionCreateReminder: {},
}

// RequiresConfirmation applies the two-tier policy: irreversible actions are
// always gated, risky ones only below the confidence threshold.
func RequiresConfirmation(action entity.Action, confidence float64) bool {
	if _, ok := alwaysConfirm[action]; ok {
		return true
	}
	if _, ok := confirmWhenUnsure[action]; ok {
		return confidence < ConfirmationThreshold
	}
	return false
}
