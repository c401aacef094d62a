package nlp

import (
	"strings"

	"ProjectAssistant/internal/entity"
)

const MaxContextEntries = 5

const systemRules = `You are a smart home and personal assistant. Parse the user's command and return a structured JSON intent.

RULES:
1. ONLY use actions from the allowed list
2. ONLY reference devices, scenes, and shortcuts that exist in the catalog below
3. If you cannot match the command to a known action, use action "unknown" with confidence 0.0
4. Set confidence between 0.0 and 1.0 based on how certain you are
5. Set target to the device/item name exactly as listed in the catalog
6. Include relevant parameters (brightness as 0-100, temperature in celsius, etc.)
7. humanReadable should be a short description of what will happen`

// PromptBuilder assembles rules, the live catalog and recent context.
type PromptBuilder struct {
	catalog       entity.Catalog
	recentContext []string
}

func NewPromptBuilder(catalog entity.Catalog, recentContext []string) PromptBuilder {
	if len(recentContext) > MaxContextEntries {
		recentContext = recentContext[len(recentContext)-MaxContextEntries:]
	}
	return PromptBuilder{catalog: catalog, recentContext: recentContext}
}

func (p PromptBuilder) System() string {
	parts := []string{systemRules}

	if desc := p.catalog.PromptDescription(); desc != "" {
		parts = append(parts, "AVAILABLE CATALOG:\n"+desc)
	} else {
		parts = append(parts, "AVAILABLE CATALOG: (none discovered yet)")
	}

	if len(p.recentContext) > 0 {
		parts = append(parts, "RECENT CONTEXT:\n"+strings.Join(p.recentContext, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

func (p PromptBuilder) User(text string) string {
	return "Parse this command: " + text
}

// ChatML renders the full prompt for raw completion engines. It ends on an
// open assistant turn so generation starts with the JSON object.
func (p PromptBuilder) ChatML(text string) string {
	var sb strings.Builder
	sb.WriteString("<|im_start|>system\n")
	sb.WriteString(p.System())
	sb.WriteString("<|im_end|>\n<|im_start|>user\n")
	sb.WriteString(p.User(text))
	sb.WriteString("<|im_end|>\n<|im_start|>assistant\n")
	return sb.String()
}
