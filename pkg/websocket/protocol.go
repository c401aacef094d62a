package websocketPkg

import (
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Frame types exchanged between the assistant and the WhatsApp relay.
const (
	TypeText       = "whatsapp.message.text"
	TypeAudio      = "whatsapp.message.audio"
	TypeImage      = "whatsapp.message.image"
	TypeStatus     = "relay.status"
	TypeReply      = "reply.text"
	TypeReplyAudio = "reply.audio"
	TypeReplyImage = "reply.image"
	TypePing       = "ping"
	TypePong       = "pong"
)

// WhatsApp connection states reported in relay.status frames.
const (
	WhatsAppConnected    = "connected"
	WhatsAppConnecting   = "connecting"
	WhatsAppDisconnected = "disconnected"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	PingFrame = []byte(`{"type":"ping"}`)
	PongFrame = []byte(`{"type":"pong"}`)
)

type TextMessage struct {
	Type      string  `json:"type"`
	ID        string  `json:"id" validate:"required"`
	From      string  `json:"from" validate:"required"`
	PushName  string  `json:"pushName"`
	Body      string  `json:"body"`
	Timestamp float64 `json:"timestamp"`
}

type AudioMessage struct {
	Type      string  `json:"type"`
	ID        string  `json:"id" validate:"required"`
	From      string  `json:"from" validate:"required"`
	PushName  string  `json:"pushName"`
	Mimetype  string  `json:"mimetype"`
	Seconds   int     `json:"seconds"`
	Data      string  `json:"data" validate:"required,base64"`
	PTT       bool    `json:"ptt"`
	Timestamp float64 `json:"timestamp"`
}

type ImageMessage struct {
	Type      string  `json:"type"`
	ID        string  `json:"id" validate:"required"`
	From      string  `json:"from" validate:"required"`
	PushName  string  `json:"pushName"`
	Mimetype  string  `json:"mimetype"`
	Caption   *string `json:"caption"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Data      string  `json:"data"`
	Timestamp float64 `json:"timestamp"`
}

type StatusMessage struct {
	Type     string `json:"type"`
	WhatsApp string `json:"whatsapp" validate:"oneof=connected connecting disconnected"`
	Uptime   int64  `json:"uptime"`
}

type ReplyText struct {
	Type     string `json:"type"`
	To       string `json:"to" validate:"required"`
	Body     string `json:"body"`
	QuotedID string `json:"quotedId,omitempty"`
}

type ReplyAudio struct {
	Type     string `json:"type"`
	To       string `json:"to" validate:"required"`
	Mimetype string `json:"mimetype"`
	Data     string `json:"data" validate:"required,base64"`
	PTT      bool   `json:"ptt"`
}

type ReplyImage struct {
	Type     string `json:"type"`
	To       string `json:"to" validate:"required"`
	Mimetype string `json:"mimetype"`
	Data     string `json:"data" validate:"required,base64"`
	Caption  string `json:"caption,omitempty"`
}

func NewReplyText(to, body, quotedID string) ReplyText {
	return ReplyText{Type: TypeReply, To: to, Body: body, QuotedID: quotedID}
}

// FrameType reads the type tag without decoding the rest of the frame.
func FrameType(data []byte) string {
	return json.Get(data, "type").ToString()
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnixTime converts a relay timestamp in seconds to a time.Time. Zero means
// the relay did not supply one.
func UnixTime(seconds float64, fallback time.Time) time.Time {
	if seconds <= 0 {
		return fallback
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9))
}
