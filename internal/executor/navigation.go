package executor

import (
	"context"
	"net/url"

	"ProjectAssistant/internal/entity"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/?api=1&destination="

// NavigationActuator answers with a directions link the phone can open.
type NavigationActuator struct{}

func (NavigationActuator) Execute(_ context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	destination := intent.TargetOr(intent.Parameters.Lookup("destination"))
	if destination == "" {
		return entity.Failure("No destination specified"), nil
	}
	link := mapsDirectionsURL + url.QueryEscape(destination)
	return entity.Success("Opening directions to " + destination + ": " + link), nil
}
