package websocketPkg

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"ProjectAssistant/internal/entity"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second

	commandBuffer = 32
	statusBuffer  = 8
)

var (
	ErrNotConnected = errors.New("not connected to relay")
	ErrLinkClosed   = errors.New("relay link closed")
)

type LinkState uint8

const (
	LinkIdle LinkState = iota
	LinkConnecting
	LinkOpen
	LinkClosing
	LinkFaulted
)

var LinkStateMap = map[LinkState]string{
	LinkIdle:       "idle",
	LinkConnecting: "connecting",
	LinkOpen:       "open",
	LinkClosing:    "closing",
	LinkFaulted:    "faulted",
}

func (s LinkState) String() string {
	if name, ok := LinkStateMap[s]; ok {
		return name
	}
	return "unknown"
}

// Status is published whenever the relay reports WhatsApp connectivity or
// the link itself opens or drops.
type Status struct {
	RelayConnected bool
	WhatsApp       string
	Uptime         int64
}

type IRelayLink interface {
	StartListening(ctx context.Context) error
	StopListening()
	SendRaw(ctx context.Context, data []byte) error
	SendReply(ctx context.Context, reply ReplyText) error
	Commands() <-chan entity.Command
	Statuses() <-chan Status
	Connected() bool
	State() LinkState
}

type RelayOption func(*relayLink)

func WithHeartbeat(interval time.Duration) RelayOption {
	return func(l *relayLink) {
		l.heartbeat = interval
	}
}

func WithBackoff(floor, ceiling time.Duration) RelayOption {
	return func(l *relayLink) {
		l.backoff = NewBackoff(floor, ceiling)
	}
}

func WithDialer(dialer *websocket.Dialer) RelayOption {
	return func(l *relayLink) {
		l.dialer = dialer
	}
}

func WithIDGenerator(fn func(time.Time) string) RelayOption {
	return func(l *relayLink) {
		l.newID = fn
	}
}

type relayLink struct {
	log          *logrus.Logger
	url          string
	dialer       *websocket.Dialer
	validate     *validator.Validate
	heartbeat    time.Duration
	writeTimeout time.Duration
	newID        func(time.Time) string

	commands chan entity.Command
	statuses chan Status

	// backoff is owned by the run goroutine.
	backoff *Backoff

	mu        sync.Mutex
	state     LinkState
	conn      *websocket.Conn
	whatsapp  string
	listening bool
	stopped   bool
	cancel    context.CancelFunc

	writeMu  sync.Mutex
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewRelayLink(log *logrus.Logger, url string, validate *validator.Validate, opts ...RelayOption) IRelayLink {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = DefaultHandshakeTimeout

	l := &relayLink{
		log:          log,
		url:          url,
		dialer:       &dialer,
		validate:     validate,
		heartbeat:    DefaultHeartbeatInterval,
		writeTimeout: DefaultWriteTimeout,
		backoff:      NewBackoff(DefaultBackoffFloor, DefaultBackoffCeiling),
		newID: func(t time.Time) string {
			return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
		},
		commands: make(chan entity.Command, commandBuffer),
		statuses: make(chan Status, statusBuffer),
		whatsapp: WhatsAppDisconnected,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *relayLink) Commands() <-chan entity.Command {
	return l.commands
}

func (l *relayLink) Statuses() <-chan Status {
	return l.statuses
}

func (l *relayLink) Connected() bool {
	return l.State() == LinkOpen
}

func (l *relayLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// StartListening launches the connect/receive loop and the heartbeat. It
// returns immediately; connection failures are retried with backoff.
func (l *relayLink) StartListening(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrLinkClosed
	}
	if l.listening {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.listening = true
	l.state = LinkConnecting

	l.wg.Add(2)
	go l.run(runCtx)
	go l.heartbeatLoop(runCtx)

	l.log.WithFields(logrus.Fields{
		"url": l.url,
	}).Info("Relay link listening")

	return nil
}

// StopListening is terminal and idempotent. Both channels are closed once
// the background loops have exited.
func (l *relayLink) StopListening() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.listening = false
		if l.cancel != nil {
			l.cancel()
		}
		l.state = LinkClosing
		conn := l.conn
		l.conn = nil
		l.mu.Unlock()

		if conn != nil {
			l.writeMu.Lock()
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(l.writeTimeout),
			)
			l.writeMu.Unlock()
			conn.Close()
		}

		l.wg.Wait()
		close(l.commands)
		close(l.statuses)

		l.mu.Lock()
		l.state = LinkIdle
		l.mu.Unlock()

		l.log.Info("Relay link stopped")
	})
}

func (l *relayLink) SendRaw(ctx context.Context, data []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(l.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send to relay: %w", err)
	}
	return nil
}

func (l *relayLink) SendReply(ctx context.Context, reply ReplyText) error {
	reply.Type = TypeReply
	if err := l.validate.Struct(reply); err != nil {
		return err
	}
	data, err := Marshal(reply)
	if err != nil {
		return err
	}
	return l.SendRaw(ctx, data)
}

func (l *relayLink) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		conn, err := l.connect(ctx)
		if err == nil {
			l.backoff.Reset()
			l.readLoop(ctx, conn)
		}
		if ctx.Err() != nil {
			return
		}

		l.fault(conn, err)

		delay := l.backoff.Next()
		l.log.WithFields(logrus.Fields{
			"url":      l.url,
			"retry_in": delay.String(),
		}).Warn("Relay link down, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (l *relayLink) connect(ctx context.Context) (*websocket.Conn, error) {
	l.setState(LinkConnecting)

	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", l.url, err)
	}

	l.mu.Lock()
	if ctx.Err() != nil {
		l.mu.Unlock()
		conn.Close()
		return nil, ctx.Err()
	}
	l.conn = conn
	l.state = LinkOpen
	whatsapp := l.whatsapp
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"url": l.url,
	}).Info("Relay link connected")
	l.publishStatus(Status{RelayConnected: true, WhatsApp: whatsapp})

	return conn, nil
}

func (l *relayLink) fault(conn *websocket.Conn, err error) {
	l.mu.Lock()
	wasOpen := l.state == LinkOpen
	if conn != nil && l.conn == conn {
		l.conn = nil
	}
	l.state = LinkFaulted
	l.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Debug("Relay connect failed")
	}
	if wasOpen {
		l.publishStatus(Status{RelayConnected: false, WhatsApp: WhatsAppDisconnected})
	}
}

func (l *relayLink) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				l.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Relay read failed")
			}
			return
		}
		l.backoff.Reset()
		l.dispatch(ctx, data)
	}
}

// dispatch drops malformed and unknown frames; the connection stays up.
func (l *relayLink) dispatch(ctx context.Context, data []byte) {
	frameType := FrameType(data)

	switch frameType {
	case TypeText:
		var msg TextMessage
		if !l.decode(data, &msg, frameType) {
			return
		}
		now := time.Now()
		l.publishCommand(ctx, entity.Command{
			ID:        l.newID(now),
			RawText:   msg.Body,
			Source:    entity.SourceTypedText,
			Timestamp: UnixTime(msg.Timestamp, now),
			From:      msg.From,
			PushName:  msg.PushName,
			MessageID: msg.ID,
		})

	case TypeAudio:
		var msg AudioMessage
		if !l.decode(data, &msg, frameType) {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			l.log.WithFields(logrus.Fields{
				"message_id": msg.ID,
				"error":      err.Error(),
			}).Warn("Dropping audio frame with bad payload")
			return
		}
		now := time.Now()
		l.publishCommand(ctx, entity.Command{
			ID:            l.newID(now),
			Source:        entity.SourceVoiceNote,
			Timestamp:     UnixTime(msg.Timestamp, now),
			AudioPayload:  audio,
			AudioMimeType: msg.Mimetype,
			From:          msg.From,
			PushName:      msg.PushName,
			MessageID:     msg.ID,
		})

	case TypeStatus:
		var msg StatusMessage
		if !l.decode(data, &msg, frameType) {
			return
		}
		l.mu.Lock()
		l.whatsapp = msg.WhatsApp
		l.mu.Unlock()
		l.publishStatus(Status{RelayConnected: true, WhatsApp: msg.WhatsApp, Uptime: msg.Uptime})

	case TypeImage, TypePong:

	default:
		l.log.WithFields(logrus.Fields{
			"type": frameType,
		}).Debug("Ignoring unrecognised relay frame")
	}
}

func (l *relayLink) decode(data []byte, v any, frameType string) bool {
	if err := json.Unmarshal(data, v); err != nil {
		l.log.WithFields(logrus.Fields{
			"type":  frameType,
			"error": err.Error(),
		}).Warn("Dropping malformed relay frame")
		return false
	}
	if err := l.validate.Struct(v); err != nil {
		l.log.WithFields(logrus.Fields{
			"type":  frameType,
			"error": err.Error(),
		}).Warn("Dropping invalid relay frame")
		return false
	}
	return true
}

func (l *relayLink) publishCommand(ctx context.Context, cmd entity.Command) {
	select {
	case l.commands <- cmd:
	case <-ctx.Done():
	}
}

// publishStatus never blocks; a slow consumer misses intermediate updates.
func (l *relayLink) publishStatus(status Status) {
	select {
	case l.statuses <- status:
	default:
		l.log.WithFields(logrus.Fields{
			"whatsapp": status.WhatsApp,
		}).Debug("Status consumer behind, dropping update")
	}
}

func (l *relayLink) heartbeatLoop(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.SendRaw(ctx, PingFrame); err != nil && !errors.Is(err, ErrNotConnected) {
				l.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Relay heartbeat failed")
			}
		}
	}
}

func (l *relayLink) setState(state LinkState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}
