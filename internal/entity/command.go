package entity

import (
	"strings"
	"time"
)

type CommandSource uint8

const (
	SourceUnknown          CommandSource = 0
	SourceTypedText        CommandSource = 1
	SourceVoiceNote        CommandSource = 2
	SourceAssistantTrigger CommandSource = 3
	SourceInAppUI          CommandSource = 4
)

var CommandSourceMap = map[CommandSource]string{
	SourceTypedText:        "typedText",
	SourceVoiceNote:        "voiceNote",
	SourceAssistantTrigger: "assistantTrigger",
	SourceInAppUI:          "inAppUI",
}

func (s CommandSource) String() string {
	if name, ok := CommandSourceMap[s]; ok {
		return name
	}
	return "unknown"
}

func (s CommandSource) Value() uint8 {
	return uint8(s)
}

// Command is immutable once created. WithText returns a copy that keeps the ID.
type Command struct {
	ID            string
	RawText       string
	Source        CommandSource
	Timestamp     time.Time
	AudioPayload  []byte
	AudioMimeType string

	// Relay metadata, empty for locally entered commands.
	From      string
	PushName  string
	MessageID string
}

func (c Command) HasAudio() bool {
	return len(c.AudioPayload) > 0
}

func (c Command) NeedsTranscription() bool {
	return c.HasAudio() && strings.TrimSpace(c.RawText) == ""
}

func (c Command) IsEmpty() bool {
	return strings.TrimSpace(c.RawText) == ""
}

func (c Command) WithText(text string) Command {
	c.RawText = text
	return c
}
