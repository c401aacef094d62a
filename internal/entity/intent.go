package entity

import (
	"bytes"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Action string

const (
	ActionTurnOn              Action = "turnOn"
	ActionTurnOff             Action = "turnOff"
	ActionSetBrightness       Action = "setBrightness"
	ActionSetTemperature      Action = "setTemperature"
	ActionLockDoor            Action = "lockDoor"
	ActionUnlockDoor          Action = "unlockDoor"
	ActionSetThermostat       Action = "setThermostat"
	ActionSetScene            Action = "setScene"
	ActionSendMessage         Action = "sendMessage"
	ActionMakeCall            Action = "makeCall"
	ActionCreateReminder      Action = "createReminder"
	ActionCreateCalendarEvent Action = "createCalendarEvent"
	ActionCreateNote          Action = "createNote"
	ActionCreateTask          Action = "createTask"
	ActionRunShortcut         Action = "runShortcut"
	ActionGetDirections       Action = "getDirections"
	ActionQueryHealth         Action = "queryHealth"
	ActionRemember            Action = "remember"
	ActionRecall              Action = "recall"
	ActionUnknown             Action = "unknown"
	ActionConfirmYes          Action = "confirmYes"
	ActionConfirmNo           Action = "confirmNo"
)

// Actions lists every known action in grammar order.
var Actions = []Action{
	ActionTurnOn,
	ActionTurnOff,
	ActionSetBrightness,
	ActionSetTemperature,
	ActionLockDoor,
	ActionUnlockDoor,
	ActionSetThermostat,
	ActionSetScene,
	ActionSendMessage,
	ActionMakeCall,
	ActionCreateReminder,
	ActionCreateCalendarEvent,
	ActionCreateNote,
	ActionCreateTask,
	ActionRunShortcut,
	ActionGetDirections,
	ActionQueryHealth,
	ActionRemember,
	ActionRecall,
	ActionUnknown,
	ActionConfirmYes,
	ActionConfirmNo,
}

var actionIndex = func() map[string]Action {
	m := make(map[string]Action, len(Actions))
	for _, a := range Actions {
		m[string(a)] = a
	}
	return m
}()

// ParseAction reports false for values outside the known enumeration.
func ParseAction(raw string) (Action, bool) {
	a, ok := actionIndex[raw]
	return a, ok
}

func (a Action) String() string {
	return string(a)
}

// Parameters is an insertion-ordered string to string mapping.
type Parameters struct {
	m *orderedmap.OrderedMap[string, string]
}

func NewParameters(pairs ...string) Parameters {
	p := Parameters{m: orderedmap.NewOrderedMap[string, string]()}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.m.Set(pairs[i], pairs[i+1])
	}
	return p
}

func (p *Parameters) Set(key, value string) {
	if p.m == nil {
		p.m = orderedmap.NewOrderedMap[string, string]()
	}
	p.m.Set(key, value)
}

func (p Parameters) Get(key string) (string, bool) {
	if p.m == nil {
		return "", false
	}
	return p.m.Get(key)
}

// Lookup returns the first non-empty value among keys.
func (p Parameters) Lookup(keys ...string) string {
	for _, k := range keys {
		if v, ok := p.Get(k); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (p Parameters) Len() int {
	if p.m == nil {
		return 0
	}
	return p.m.Len()
}

func (p Parameters) Each(fn func(key, value string)) {
	if p.m == nil {
		return
	}
	for k, v := range p.m.AllFromFront() {
		fn(k, v)
	}
}

func (p Parameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	p.Each(func(key, value string) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		var kb, vb []byte
		if kb, err = json.Marshal(key); err != nil {
			return
		}
		if vb, err = json.Marshal(value); err != nil {
			return
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Intent is produced once per command and never mutated afterwards.
type Intent struct {
	Action               Action     `json:"action"`
	Target               *string    `json:"target"`
	Parameters           Parameters `json:"parameters"`
	Confidence           float64    `json:"confidence"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
	HumanReadable        string     `json:"humanReadable"`
}

func (i Intent) TargetOr(fallback string) string {
	if i.Target == nil || strings.TrimSpace(*i.Target) == "" {
		return fallback
	}
	return *i.Target
}

func (i Intent) HasTarget() bool {
	return i.Target != nil && strings.TrimSpace(*i.Target) != ""
}

func StringPtr(s string) *string {
	return &s
}
