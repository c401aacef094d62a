package gemini

import (
	"testing"

	"ProjectAssistant/internal/entity"
	"ProjectAssistant/pkg/nlp"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestIntentSchemaMatchesGrammar(t *testing.T) {
	s := IntentSchema()

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"action", "target", "parameters", "confidence", "humanReadable"}, s.Required)
	assert.Len(t, s.Properties["action"].Enum, len(entity.Actions))
	assert.True(t, s.Properties["target"].Nullable)
	assert.Len(t, s.Properties["parameters"].Properties, len(nlp.ParameterKeys))
}
