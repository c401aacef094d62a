package nlp

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ProjectAssistant/internal/entity"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrInvalidJSON   = errors.New("invalid JSON from generator")
	ErrMissingAction = errors.New("generator response missing required field 'action'")
)

// ParseIntent decodes generator output without trusting the grammar.
// Only unreadable JSON or a missing action are errors; every other field has
// a fallback. Parameter order follows the input.
func ParseIntent(raw string) (entity.Intent, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return entity.Intent{}, fmt.Errorf("%w: empty output", ErrInvalidJSON)
	}

	iter := jsoniter.ParseString(jsoniter.ConfigCompatibleWithStandardLibrary, trimmed)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return entity.Intent{}, fmt.Errorf("%w: not an object: %s", ErrInvalidJSON, preview(trimmed))
	}

	var (
		actionRaw     *string
		target        *string
		confidence    float64
		humanReadable string
		params        = entity.NewParameters()
	)

	complete := iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "action":
			if it.WhatIsNext() == jsoniter.StringValue {
				s := it.ReadString()
				actionRaw = &s
			} else {
				it.Skip()
			}
		case "target":
			if it.WhatIsNext() == jsoniter.StringValue {
				s := it.ReadString()
				target = &s
			} else {
				it.Skip()
			}
		case "confidence":
			confidence = readConfidence(it)
		case "humanReadable":
			if it.WhatIsNext() == jsoniter.StringValue {
				humanReadable = it.ReadString()
			} else {
				it.Skip()
			}
		case "parameters":
			if it.WhatIsNext() != jsoniter.ObjectValue {
				it.Skip()
				break
			}
			it.ReadObjectCB(func(pit *jsoniter.Iterator, key string) bool {
				params.Set(key, stringify(pit))
				return true
			})
		default:
			it.Skip()
		}
		return true
	})

	if !complete || iter.Error != nil {
		return entity.Intent{}, fmt.Errorf("%w: %v: %s", ErrInvalidJSON, iter.Error, preview(trimmed))
	}
	// Only end of input may follow the object.
	if iter.WhatIsNext() != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return entity.Intent{}, fmt.Errorf("%w: trailing data: %s", ErrInvalidJSON, preview(trimmed))
	}
	if actionRaw == nil {
		return entity.Intent{}, ErrMissingAction
	}

	action, ok := entity.ParseAction(*actionRaw)
	if !ok {
		action = entity.ActionUnknown
	}
	if strings.TrimSpace(humanReadable) == "" {
		humanReadable = *actionRaw
	}

	return entity.Intent{
		Action:               action,
		Target:               target,
		Parameters:           params,
		Confidence:           confidence,
		RequiresConfirmation: RequiresConfirmation(action, confidence),
		HumanReadable:        humanReadable,
	}, nil
}

func readConfidence(it *jsoniter.Iterator) float64 {
	var c float64
	switch it.WhatIsNext() {
	case jsoniter.NumberValue:
		c = it.ReadFloat64()
	case jsoniter.StringValue:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(it.ReadString()), 64)
		if err != nil {
			return 0
		}
		c = parsed
	default:
		it.Skip()
		return 0
	}
	return min(max(c, 0), 1)
}

func stringify(it *jsoniter.Iterator) string {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return it.ReadString()
	case jsoniter.NilValue:
		it.Skip()
		return ""
	default:
		return it.ReadAny().ToString()
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200])
	}
	return s
}
