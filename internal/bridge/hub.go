package bridge

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	websocketPkg "ProjectAssistant/pkg/websocket"
	"ProjectAssistant/pkg/whatsapp"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	gorillaWs "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	CloseReplaced  = 4001
	CloseForbidden = 4003

	AllowAnyIP = "*"

	writeWait   = 10 * time.Second
	sendTimeout = 30 * time.Second
)

// Messenger is the WhatsApp side of the bridge.
type Messenger interface {
	State() string
	SendText(ctx context.Context, to, body, quotedID string) error
	SendAudio(ctx context.Context, to string, data []byte, mimeType string, ptt bool) error
	SendImage(ctx context.Context, to string, data []byte, mimeType, caption string) error
}

type Config struct {
	AllowedIP      string
	TargetJID      string
	StatusInterval time.Duration
}

type peer struct {
	conn    *websocket.Conn
	remote  string
	writeMu sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) close(code int, reason string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.WriteControl(websocket.CloseMessage, gorillaWs.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = p.conn.Close()
}

// Hub holds at most one assistant connection and shuttles frames between it
// and WhatsApp. A new connection replaces the old one.
type Hub struct {
	log       *logrus.Logger
	validator *validator.Validate
	messenger Messenger
	cfg       Config
	started   time.Time
	now       func() time.Time

	mu   sync.Mutex
	peer *peer
}

func New(log *logrus.Logger, validate *validator.Validate, messenger Messenger, cfg Config) *Hub {
	return &Hub{
		log:       log,
		validator: validate,
		messenger: messenger,
		cfg:       cfg,
		started:   time.Now(),
		now:       time.Now,
	}
}

// Allowed reports whether a peer address may connect. IPv4-mapped IPv6
// addresses are compared in their IPv4 form.
func (h *Hub) Allowed(ip string) bool {
	if h.cfg.AllowedIP == AllowAnyIP {
		return true
	}
	return ip == h.cfg.AllowedIP || strings.TrimPrefix(ip, "::ffff:") == h.cfg.AllowedIP
}

func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peer != nil
}

func (h *Hub) Uptime() int64 {
	return int64(h.now().Sub(h.started) / time.Second)
}

// serve owns one websocket connection until it closes or is replaced.
func (h *Hub) serve(c *websocket.Conn, remote string, allowed bool) {
	if !allowed {
		h.log.WithFields(logrus.Fields{
			"ip": remote,
		}).Warn("Rejected connection from unauthorized IP")
		(&peer{conn: c}).close(CloseForbidden, "Forbidden")
		return
	}

	p := &peer{conn: c, remote: remote}
	h.attach(p)
	defer h.detach(p)

	h.sendStatus(h.messenger.State())

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"ip":    remote,
				"error": err.Error(),
			}).Info("Assistant disconnected")
			return
		}
		h.handleFrame(p, data)
	}
}

func (h *Hub) attach(p *peer) {
	h.mu.Lock()
	old := h.peer
	h.peer = p
	h.mu.Unlock()

	if old != nil {
		h.log.Info("Disconnecting previous client for new connection")
		old.close(CloseReplaced, "Replaced by new connection")
	}

	h.log.WithFields(logrus.Fields{
		"ip": p.remote,
	}).Info("Assistant connected")
}

func (h *Hub) detach(p *peer) {
	h.mu.Lock()
	if h.peer == p {
		h.peer = nil
	}
	h.mu.Unlock()
}

func (h *Hub) handleFrame(p *peer, data []byte) {
	frameType := websocketPkg.FrameType(data)
	h.log.WithFields(logrus.Fields{
		"type": frameType,
	}).Debug("Received app message")

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var err error
	switch frameType {
	case websocketPkg.TypePing:
		err = p.write(websocketPkg.PongFrame)
	case websocketPkg.TypeReply:
		var reply websocketPkg.ReplyText
		if err = h.decode(data, &reply); err == nil {
			err = h.messenger.SendText(ctx, reply.To, reply.Body, reply.QuotedID)
		}
	case websocketPkg.TypeReplyAudio:
		var reply websocketPkg.ReplyAudio
		if err = h.decode(data, &reply); err == nil {
			var audio []byte
			if audio, err = base64.StdEncoding.DecodeString(reply.Data); err == nil {
				err = h.messenger.SendAudio(ctx, reply.To, audio, reply.Mimetype, reply.PTT)
			}
		}
	case websocketPkg.TypeReplyImage:
		var reply websocketPkg.ReplyImage
		if err = h.decode(data, &reply); err == nil {
			var image []byte
			if image, err = base64.StdEncoding.DecodeString(reply.Data); err == nil {
				err = h.messenger.SendImage(ctx, reply.To, image, reply.Mimetype, reply.Caption)
			}
		}
	default:
		h.log.WithFields(logrus.Fields{
			"type": frameType,
		}).Warn("Unknown app message type")
		return
	}

	if err != nil {
		h.log.WithFields(logrus.Fields{
			"type":  frameType,
			"error": err.Error(),
		}).Error("Failed to send reply")
	}
}

func (h *Hub) decode(data []byte, v any) error {
	if err := websocketPkg.Unmarshal(data, v); err != nil {
		return err
	}
	return h.validator.Struct(v)
}

// Forward sends a frame to the connected assistant. Without one the frame is
// dropped.
func (h *Hub) Forward(frameType string, v any) {
	h.mu.Lock()
	p := h.peer
	h.mu.Unlock()

	if p == nil {
		h.log.WithFields(logrus.Fields{
			"type": frameType,
		}).Debug("No assistant connected, dropping message")
		return
	}

	data, err := websocketPkg.Marshal(v)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"type":  frameType,
			"error": err.Error(),
		}).Error("Failed to encode frame")
		return
	}

	if err := p.write(data); err != nil {
		h.log.WithFields(logrus.Fields{
			"type":  frameType,
			"error": err.Error(),
		}).Error("Failed to forward message")
		return
	}

	h.log.WithFields(logrus.Fields{
		"type": frameType,
	}).Debug("Forwarded to assistant")
}

// HandleInbound converts a WhatsApp message into a relay frame. Own messages
// and, when a target is configured, other chats are ignored.
func (h *Hub) HandleInbound(msg whatsapp.InboundMessage) {
	if msg.FromMe {
		return
	}
	if h.cfg.TargetJID != "" && msg.From != h.cfg.TargetJID {
		h.log.WithFields(logrus.Fields{
			"from":       msg.From,
			"target_jid": h.cfg.TargetJID,
		}).Debug("Ignoring message from non-target JID")
		return
	}

	timestamp := float64(msg.Timestamp.Unix())

	switch msg.Kind {
	case whatsapp.KindText:
		h.log.WithFields(logrus.Fields{
			"from": msg.From,
		}).Info("Text message received")
		h.Forward(websocketPkg.TypeText, websocketPkg.TextMessage{
			Type:      websocketPkg.TypeText,
			ID:        msg.ID,
			From:      msg.From,
			PushName:  msg.PushName,
			Body:      msg.Body,
			Timestamp: timestamp,
		})
	case whatsapp.KindAudio:
		h.log.WithFields(logrus.Fields{
			"from":    msg.From,
			"seconds": msg.Seconds,
			"ptt":     msg.PTT,
		}).Info("Audio message received")
		h.Forward(websocketPkg.TypeAudio, websocketPkg.AudioMessage{
			Type:      websocketPkg.TypeAudio,
			ID:        msg.ID,
			From:      msg.From,
			PushName:  msg.PushName,
			Mimetype:  msg.MimeType,
			Seconds:   msg.Seconds,
			Data:      base64.StdEncoding.EncodeToString(msg.Data),
			PTT:       msg.PTT,
			Timestamp: timestamp,
		})
	case whatsapp.KindImage:
		h.log.WithFields(logrus.Fields{
			"from": msg.From,
		}).Info("Image message received")
		h.Forward(websocketPkg.TypeImage, websocketPkg.ImageMessage{
			Type:      websocketPkg.TypeImage,
			ID:        msg.ID,
			From:      msg.From,
			PushName:  msg.PushName,
			Mimetype:  msg.MimeType,
			Caption:   msg.Caption,
			Width:     msg.Width,
			Height:    msg.Height,
			Data:      base64.StdEncoding.EncodeToString(msg.Data),
			Timestamp: timestamp,
		})
	}
}

// HandleState broadcasts a WhatsApp connection change.
func (h *Hub) HandleState(state string) {
	h.log.WithFields(logrus.Fields{
		"whatsapp": state,
	}).Info("WhatsApp connection state changed")
	h.sendStatus(state)
}

// RunStatusLoop repeats the status frame every StatusInterval until ctx ends.
func (h *Hub) RunStatusLoop(ctx context.Context) {
	if h.cfg.StatusInterval <= 0 {
		return
	}

	ticker := time.NewTicker(h.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendStatus(h.messenger.State())
		}
	}
}

func (h *Hub) sendStatus(state string) {
	h.Forward(websocketPkg.TypeStatus, websocketPkg.StatusMessage{
		Type:     websocketPkg.TypeStatus,
		WhatsApp: state,
		Uptime:   h.Uptime(),
	})
}
