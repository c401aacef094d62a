package catalog

import "strings"

var actionsByDeviceType = map[string][]string{
	"light":      {"turnOn", "turnOff", "setBrightness"},
	"switch":     {"turnOn", "turnOff"},
	"outlet":     {"turnOn", "turnOff"},
	"thermostat": {"setThermostat", "setTemperature"},
	"lock":       {"lockDoor", "unlockDoor"},
	"garage":     {"turnOn", "turnOff"},
	"fan":        {"turnOn", "turnOff", "setBrightness"},
	"blinds":     {"turnOn", "turnOff", "setBrightness"},
}

// DefaultActions returns the actions a device type supports when its source
// does not list them explicitly.
func DefaultActions(deviceType string) []string {
	actions, ok := actionsByDeviceType[strings.ToLower(deviceType)]
	if !ok {
		return nil
	}
	return append([]string(nil), actions...)
}
