package gemini

import (
	"ProjectAssistant/internal/entity"
	"ProjectAssistant/pkg/nlp"
	"github.com/google/generative-ai-go/genai"
)

// IntentSchema mirrors nlp.IntentGrammar in Gemini's schema dialect, which
// has no additionalProperties or union types.
func IntentSchema() *genai.Schema {
	actions := make([]string, len(entity.Actions))
	for i, a := range entity.Actions {
		actions[i] = string(a)
	}

	params := make(map[string]*genai.Schema, len(nlp.ParameterKeys))
	for _, k := range nlp.ParameterKeys {
		params[k] = &genai.Schema{Type: genai.TypeString}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action":        {Type: genai.TypeString, Enum: actions},
			"target":        {Type: genai.TypeString, Nullable: true},
			"parameters":    {Type: genai.TypeObject, Properties: params},
			"confidence":    {Type: genai.TypeNumber},
			"humanReadable": {Type: genai.TypeString},
		},
		Required: []string{"action", "target", "parameters", "confidence", "humanReadable"},
	}
}
