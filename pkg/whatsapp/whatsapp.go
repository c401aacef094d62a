package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ProjectAssistant/database/postgres"
	websocketPkg "ProjectAssistant/pkg/websocket"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const (
	DefaultAudioMimeType = "audio/ogg; codecs=opus"
	DefaultImageMimeType = "image/jpeg"
	DefaultPushName      = "Unknown"

	downloadTimeout = 60 * time.Second
)

var (
	ErrNotConnected = errors.New("whatsapp client is not connected")
	ErrInvalidJID   = errors.New("invalid whatsapp jid")
)

type Kind uint8

const (
	KindText Kind = iota
	KindAudio
	KindImage
)

// InboundMessage is a received WhatsApp message with its media already
// downloaded.
type InboundMessage struct {
	Kind      Kind
	ID        string
	From      string
	PushName  string
	FromMe    bool
	Body      string
	Caption   *string
	MimeType  string
	Seconds   int
	PTT       bool
	Width     int
	Height    int
	Data      []byte
	Timestamp time.Time
}

type IWhatsapp interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	State() string
	SendText(ctx context.Context, to, body, quotedID string) error
	SendAudio(ctx context.Context, to string, data []byte, mimeType string, ptt bool) error
	SendImage(ctx context.Context, to string, data []byte, mimeType, caption string) error
	OnMessage(fn func(InboundMessage))
	OnState(fn func(state string))
}

type downloader interface {
	Download(ctx context.Context, msg whatsmeow.DownloadableMessage) ([]byte, error)
}

type whatsappClient struct {
	log    *logrus.Logger
	client *whatsmeow.Client

	mu        sync.RWMutex
	state     string
	onMessage func(InboundMessage)
	onState   func(string)
}

// New opens the device store in postgres and prepares a client. Nothing is
// dialed until Connect.
func New(ctx context.Context, log *logrus.Logger, cfg postgres.Config) (IWhatsapp, error) {
	waLogger := NewLogger(log, "whatsmeow")

	container, err := sqlstore.New(ctx, "postgres", postgres.FormatDSN(cfg), waLogger.Sub("Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to open whatsapp device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	w := &whatsappClient{
		log:    log,
		client: whatsmeow.NewClient(deviceStore, waLogger.Sub("Client")),
		state:  websocketPkg.WhatsAppDisconnected,
	}
	w.client.AddEventHandler(w.handleEvent)

	return w, nil
}

// Connect pairs through a QR code on first login, otherwise resumes the
// stored session. Reconnects after that are handled by whatsmeow.
func (w *whatsappClient) Connect(ctx context.Context) error {
	w.setState(websocketPkg.WhatsAppConnecting)

	if w.client.Store.ID == nil {
		qrChan, err := w.client.GetQRChannel(ctx)
		if err != nil {
			w.setState(websocketPkg.WhatsAppDisconnected)
			return fmt.Errorf("failed to get qr channel: %w", err)
		}
		if err := w.client.Connect(); err != nil {
			w.setState(websocketPkg.WhatsAppDisconnected)
			return fmt.Errorf("failed to connect: %w", err)
		}

		go func() {
			for evt := range qrChan {
				switch evt.Event {
				case "code":
					w.log.Info("QR code received, scan it with WhatsApp")
					fmt.Println("QR Code:", evt.Code)
				case "success":
					w.log.Info("WhatsApp pairing succeeded")
				default:
					w.log.WithFields(logrus.Fields{
						"event": evt.Event,
					}).Warn("QR pairing ended")
				}
			}
		}()
		return nil
	}

	if err := w.client.Connect(); err != nil {
		w.setState(websocketPkg.WhatsAppDisconnected)
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (w *whatsappClient) Disconnect() {
	w.client.Disconnect()
	w.setState(websocketPkg.WhatsAppDisconnected)
}

func (w *whatsappClient) IsConnected() bool {
	return w.client.IsConnected()
}

func (w *whatsappClient) State() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *whatsappClient) OnMessage(fn func(InboundMessage)) {
	w.mu.Lock()
	w.onMessage = fn
	w.mu.Unlock()
}

func (w *whatsappClient) OnState(fn func(state string)) {
	w.mu.Lock()
	w.onState = fn
	w.mu.Unlock()
}

func (w *whatsappClient) SendText(ctx context.Context, to, body, quotedID string) error {
	jid, err := parseJID(to)
	if err != nil {
		return err
	}
	return w.send(ctx, jid, buildTextMessage(jid, body, quotedID))
}

func (w *whatsappClient) SendAudio(ctx context.Context, to string, data []byte, mimeType string, ptt bool) error {
	jid, err := parseJID(to)
	if err != nil {
		return err
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	return w.send(ctx, jid, &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(detectMimeType(data, mimeType)),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
			PTT:           proto.Bool(ptt),
		},
	})
}

func (w *whatsappClient) SendImage(ctx context.Context, to string, data []byte, mimeType, caption string) error {
	jid, err := parseJID(to)
	if err != nil {
		return err
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	image := &waE2E.ImageMessage{
		URL:           proto.String(uploaded.URL),
		DirectPath:    proto.String(uploaded.DirectPath),
		MediaKey:      uploaded.MediaKey,
		Mimetype:      proto.String(detectMimeType(data, mimeType)),
		FileEncSHA256: uploaded.FileEncSHA256,
		FileSHA256:    uploaded.FileSHA256,
		FileLength:    proto.Uint64(uint64(len(data))),
	}
	if caption != "" {
		image.Caption = proto.String(caption)
	}

	return w.send(ctx, jid, &waE2E.Message{ImageMessage: image})
}

func (w *whatsappClient) send(ctx context.Context, jid types.JID, msg *waE2E.Message) error {
	if !w.client.IsConnected() {
		return ErrNotConnected
	}

	resp, err := w.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"to":         jid.String(),
		"message_id": resp.ID,
	}).Debug("WhatsApp message sent")
	return nil
}

func (w *whatsappClient) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		w.handleMessage(v)
	case *events.Connected:
		w.log.Info("WhatsApp connection established")
		w.setState(websocketPkg.WhatsAppConnected)
	case *events.Disconnected:
		w.log.Warn("WhatsApp connection closed")
		w.setState(websocketPkg.WhatsAppDisconnected)
	case *events.StreamReplaced:
		w.log.Warn("WhatsApp session opened elsewhere")
		w.setState(websocketPkg.WhatsAppDisconnected)
	case *events.LoggedOut:
		w.log.WithFields(logrus.Fields{
			"reason": v.Reason,
		}).Error("Logged out, delete the stored device and restart to pair again")
		w.setState(websocketPkg.WhatsAppDisconnected)
	}
}

// handleMessage runs on whatsmeow's event goroutine so messages reach the
// callback in arrival order.
func (w *whatsappClient) handleMessage(evt *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	msg, ok, err := toInbound(ctx, w.client, evt)
	if err != nil {
		w.log.WithFields(logrus.Fields{
			"id":    evt.Info.ID,
			"error": err.Error(),
		}).Error("Failed to process message")
		return
	}
	if !ok {
		w.log.WithFields(logrus.Fields{
			"from": evt.Info.Chat.String(),
		}).Debug("Unsupported message type")
		return
	}

	w.mu.RLock()
	fn := w.onMessage
	w.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (w *whatsappClient) setState(state string) {
	w.mu.Lock()
	changed := w.state != state
	w.state = state
	fn := w.onState
	w.mu.Unlock()

	if changed && fn != nil {
		fn(state)
	}
}

// toInbound flattens a whatsmeow message into text, audio or image. The
// second return is false for message kinds the relay does not forward.
func toInbound(ctx context.Context, d downloader, evt *events.Message) (InboundMessage, bool, error) {
	if evt == nil || evt.Message == nil {
		return InboundMessage{}, false, nil
	}

	pushName := evt.Info.PushName
	if pushName == "" {
		pushName = DefaultPushName
	}
	timestamp := evt.Info.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	in := InboundMessage{
		ID:        evt.Info.ID,
		From:      evt.Info.Chat.String(),
		PushName:  pushName,
		FromMe:    evt.Info.IsFromMe,
		Timestamp: timestamp,
	}

	message := evt.Message
	if body := textBody(message); body != "" {
		in.Kind = KindText
		in.Body = body
		return in, true, nil
	}

	if audio := message.GetAudioMessage(); audio != nil {
		data, err := d.Download(ctx, audio)
		if err != nil {
			return InboundMessage{}, false, fmt.Errorf("download audio: %w", err)
		}
		in.Kind = KindAudio
		in.Data = data
		in.MimeType = orDefault(audio.GetMimetype(), DefaultAudioMimeType)
		in.Seconds = int(audio.GetSeconds())
		in.PTT = audio.GetPTT()
		return in, true, nil
	}

	if image := message.GetImageMessage(); image != nil {
		data, err := d.Download(ctx, image)
		if err != nil {
			return InboundMessage{}, false, fmt.Errorf("download image: %w", err)
		}
		in.Kind = KindImage
		in.Data = data
		in.MimeType = orDefault(image.GetMimetype(), DefaultImageMimeType)
		in.Width = int(image.GetWidth())
		in.Height = int(image.GetHeight())
		if caption := image.GetCaption(); caption != "" {
			in.Caption = &caption
		}
		return in, true, nil
	}

	return InboundMessage{}, false, nil
}

func textBody(msg *waE2E.Message) string {
	if body := msg.GetConversation(); body != "" {
		return body
	}
	return msg.GetExtendedTextMessage().GetText()
}

// buildTextMessage quotes quotedID when set so the reply threads under the
// original message.
func buildTextMessage(to types.JID, body, quotedID string) *waE2E.Message {
	if quotedID == "" {
		return &waE2E.Message{Conversation: proto.String(body)}
	}

	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(body),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(quotedID),
				Participant:   proto.String(to.String()),
				QuotedMessage: &waE2E.Message{Conversation: proto.String("")},
			},
		},
	}
}

func parseJID(raw string) (types.JID, error) {
	jid, err := types.ParseJID(raw)
	if err != nil || jid.User == "" {
		return types.JID{}, fmt.Errorf("%w: %q", ErrInvalidJID, raw)
	}
	return jid, nil
}

func detectMimeType(data []byte, declared string) string {
	if declared != "" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
