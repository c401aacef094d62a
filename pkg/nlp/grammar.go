package nlp

import (
	"fmt"
	"strings"

	"ProjectAssistant/internal/entity"
)

// Grammar describes the intent output shape twice: as GBNF for engines that
// sample against a grammar and as JSON schema for hosted engines.
type Grammar struct {
	Name   string
	GBNF   string
	Schema map[string]any
}

// ParameterKeys are the parameter names the prompt rules mention. Hosted
// schemas need a closed property list.
var ParameterKeys = []string{
	"brightness", "temperature", "to", "body", "title", "dueDate",
	"startTime", "endTime", "location", "notes", "content", "tags",
	"query", "destination",
}

var intentGrammar = Grammar{
	Name:   "intent",
	GBNF:   buildGBNF(entity.Actions),
	Schema: buildSchema(entity.Actions),
}

func IntentGrammar() Grammar {
	return intentGrammar
}

func buildGBNF(actions []entity.Action) string {
	alts := make([]string, len(actions))
	for i, a := range actions {
		alts[i] = fmt.Sprintf("%q", string(a))
	}

	var sb strings.Builder
	sb.WriteString(`root         ::= "{" ws intent-body ws "}"
intent-body  ::= action-field "," ws target-field "," ws params-field "," ws confidence-field "," ws human-field

action-field ::= "\"action\"" ws ":" ws "\"" action-value "\""
`)
	sb.WriteString("action-value ::= ")
	sb.WriteString(strings.Join(alts, "\n               | "))
	sb.WriteString(`

target-field ::= "\"target\"" ws ":" ws ( null | "\"" target-chars "\"" )
target-chars ::= [^"\\]+

params-field   ::= "\"parameters\"" ws ":" ws "{" ws params-entries? ws "}"
params-entries ::= param-entry ( "," ws param-entry )*
param-entry    ::= "\"" param-key "\"" ws ":" ws "\"" param-value "\""
param-key      ::= [a-zA-Z_] [a-zA-Z0-9_]*
param-value    ::= [^"\\]*

confidence-field  ::= "\"confidence\"" ws ":" ws confidence-number
confidence-number ::= "0" ( "." [0-9] [0-9]? )? | "1" ( ".0" "0"? )?

human-field ::= "\"humanReadable\"" ws ":" ws "\"" human-chars "\""
human-chars ::= [^"\\]+

null ::= "null"
ws   ::= [ \t\n]*
`)
	return sb.String()
}

func buildSchema(actions []entity.Action) map[string]any {
	enum := make([]any, len(actions))
	for i, a := range actions {
		enum[i] = string(a)
	}

	params := make(map[string]any, len(ParameterKeys))
	for _, k := range ParameterKeys {
		params[k] = map[string]any{"type": "string"}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": enum},
			"target": map[string]any{"type": []any{"string", "null"}},
			"parameters": map[string]any{
				"type":                 "object",
				"properties":           params,
				"additionalProperties": false,
			},
			"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"humanReadable": map[string]any{"type": "string"},
		},
		"required":             []any{"action", "target", "parameters", "confidence", "humanReadable"},
		"additionalProperties": false,
	}
}
