// Package reply owns every user-facing string produced for an execution result.
package reply

import (
	"fmt"
	"strings"

	"ProjectAssistant/internal/entity"
)

const confirmSuffix = "Reply *yes* to confirm."

// Format renders a result as the text sent back to the user.
func Format(result entity.ExecutionResult) string {
	switch result.Kind {
	case entity.ResultSuccess:
		return result.Message
	case entity.ResultFailure:
		return "Sorry, that didn't work: " + result.Error
	case entity.ResultConfirmationRequired:
		return result.Prompt
	case entity.ResultAmbiguous:
		var sb strings.Builder
		sb.WriteString("I found multiple matches. Which did you mean?\n")
		for i, option := range result.Options {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, option)
		}
		return strings.TrimRight(sb.String(), "\n")
	default:
		return ""
	}
}

// ConfirmationPrompt builds the yes/no question for a gated intent.
func ConfirmationPrompt(intent entity.Intent) string {
	switch intent.Action {
	case entity.ActionUnlockDoor:
		return fmt.Sprintf("Unlock %s? %s", intent.TargetOr("the door"), confirmSuffix)
	case entity.ActionLockDoor:
		return fmt.Sprintf("Lock %s? %s", intent.TargetOr("the door"), confirmSuffix)
	case entity.ActionTurnOff:
		return fmt.Sprintf("Turn off %s? %s", intent.TargetOr("the device"), confirmSuffix)
	case entity.ActionSendMessage:
		to := orDefault(intent.Parameters.Lookup("to"), "the contact")
		body := truncate(intent.Parameters.Lookup("body"), 50)
		return fmt.Sprintf("Send to %s: %q? %s", to, body, confirmSuffix)
	case entity.ActionMakeCall:
		to := orDefault(intent.Parameters.Lookup("to"), "the contact")
		return fmt.Sprintf("Call %s? %s", to, confirmSuffix)
	case entity.ActionCreateCalendarEvent:
		title := orDefault(intent.Parameters.Lookup("title"), intent.TargetOr("event"))
		return fmt.Sprintf("Create event '%s'? %s", title, confirmSuffix)
	case entity.ActionSetThermostat:
		temp := orDefault(intent.Parameters.Lookup("temperature"), "?")
		return fmt.Sprintf("Set %s to %s°? %s", intent.TargetOr("thermostat"), temp, confirmSuffix)
	case entity.ActionCreateReminder:
		title := orDefault(intent.Parameters.Lookup("title"), intent.TargetOr("reminder"))
		return fmt.Sprintf("Create reminder '%s'? %s", title, confirmSuffix)
	default:
		return fmt.Sprintf("%s? %s", intent.HumanReadable, confirmSuffix)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
