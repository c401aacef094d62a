package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ProjectAssistant/internal/entity"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDeviceChannel   = "assistant:devices"
	DefaultShortcutChannel = "assistant:shortcuts"
)

var ErrBridgeNotListening = errors.New("home bridge not listening")

// Publisher is the slice of the redis adapter the bus actuators need.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// Snapshotter gives read access to the current catalog.
type Snapshotter interface {
	Snapshot() entity.Catalog
}

type busCommand struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Target     string            `json:"target"`
	DeviceID   string            `json:"deviceId,omitempty"`
	Parameters entity.Parameters `json:"parameters"`
	IssuedAt   time.Time         `json:"issuedAt"`
}

func publish(ctx context.Context, pub Publisher, channel string, cmd busCommand) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode bus command: %w", err)
	}
	receivers, err := pub.Publish(ctx, channel, payload)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	if receivers == 0 {
		return ErrBridgeNotListening
	}
	return nil
}

// DeviceActuator forwards device and scene commands to the home bridge
// over a pub/sub channel.
type DeviceActuator struct {
	log     *logrus.Logger
	pub     Publisher
	catalog Snapshotter
	channel string
	newID   func() string
	now     func() time.Time
}

func NewDeviceActuator(log *logrus.Logger, pub Publisher, catalog Snapshotter, channel string, newID func() string) *DeviceActuator {
	if channel == "" {
		channel = DefaultDeviceChannel
	}
	return &DeviceActuator{
		log:     log,
		pub:     pub,
		catalog: catalog,
		channel: channel,
		newID:   newID,
		now:     time.Now,
	}
}

func (d *DeviceActuator) Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	if !intent.HasTarget() {
		return entity.Failure("No target device specified"), nil
	}
	target := *intent.Target

	var (
		deviceID string
		success  string
	)

	if intent.Action == entity.ActionSetScene {
		success = fmt.Sprintf("Scene '%s' activated", target)
	} else {
		device, ok := d.catalog.Snapshot().FindDevice(target)
		if !ok {
			return entity.Failure(fmt.Sprintf("Device '%s' not found", target)), nil
		}
		deviceID = device.ID
		target = device.Name

		msg, failure := deviceMessage(intent, target)
		if failure != "" {
			return entity.Failure(failure), nil
		}
		success = msg
	}

	cmd := busCommand{
		ID:         d.newID(),
		Action:     intent.Action.String(),
		Target:     target,
		DeviceID:   deviceID,
		Parameters: intent.Parameters,
		IssuedAt:   d.now(),
	}
	if err := publish(ctx, d.pub, d.channel, cmd); err != nil {
		if errors.Is(err, ErrBridgeNotListening) {
			return entity.Failure(err.Error()), nil
		}
		return entity.ExecutionResult{}, err
	}

	d.log.WithFields(logrus.Fields{
		"command_id": cmd.ID,
		"action":     cmd.Action,
		"device":     target,
	}).Info("Device command published")

	return entity.Success(success), nil
}

// deviceMessage returns the success text, or a failure text when a
// required parameter is missing.
func deviceMessage(intent entity.Intent, name string) (string, string) {
	switch intent.Action {
	case entity.ActionTurnOn:
		return name + " turned on", ""
	case entity.ActionTurnOff:
		return name + " turned off", ""
	case entity.ActionSetBrightness:
		value, err := strconv.Atoi(intent.Parameters.Lookup("brightness"))
		if err != nil {
			return "", "Missing brightness value"
		}
		value = min(max(value, 0), 100)
		return fmt.Sprintf("%s brightness set to %d%%", name, value), ""
	case entity.ActionSetTemperature, entity.ActionSetThermostat:
		value, err := strconv.ParseFloat(intent.Parameters.Lookup("temperature"), 64)
		if err != nil {
			return "", "Missing temperature value"
		}
		return fmt.Sprintf("%s set to %s°", name, strconv.FormatFloat(value, 'f', -1, 64)), ""
	case entity.ActionLockDoor:
		return name + " locked", ""
	case entity.ActionUnlockDoor:
		return name + " unlocked", ""
	default:
		return "", "Unsupported device action: " + intent.Action.String()
	}
}

// ShortcutActuator asks the home bridge to run a named shortcut.
type ShortcutActuator struct {
	log     *logrus.Logger
	pub     Publisher
	channel string
	newID   func() string
}

func NewShortcutActuator(log *logrus.Logger, pub Publisher, channel string, newID func() string) *ShortcutActuator {
	if channel == "" {
		channel = DefaultShortcutChannel
	}
	return &ShortcutActuator{log: log, pub: pub, channel: channel, newID: newID}
}

func (s *ShortcutActuator) Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error) {
	if !intent.HasTarget() {
		return entity.Failure("No shortcut name specified"), nil
	}
	name := *intent.Target

	cmd := busCommand{
		ID:         s.newID(),
		Action:     intent.Action.String(),
		Target:     name,
		Parameters: intent.Parameters,
		IssuedAt:   time.Now(),
	}
	if err := publish(ctx, s.pub, s.channel, cmd); err != nil {
		if errors.Is(err, ErrBridgeNotListening) {
			return entity.Failure(fmt.Sprintf("Failed to run shortcut '%s': %s", name, err.Error())), nil
		}
		return entity.ExecutionResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"command_id": cmd.ID,
		"shortcut":   name,
	}).Info("Shortcut command published")

	return entity.Success(fmt.Sprintf("Running shortcut '%s'", name)), nil
}
