package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

type fakeDownloader struct {
	data []byte
	err  error
	got  []whatsmeow.DownloadableMessage
}

func (f *fakeDownloader) Download(_ context.Context, msg whatsmeow.DownloadableMessage) ([]byte, error) {
	f.got = append(f.got, msg)
	return f.data, f.err
}

func newEvent(msg *waE2E.Message) *events.Message {
	chat := types.NewJID("6281234", types.DefaultUserServer)
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: chat},
			ID:            "3EB0ABC",
			PushName:      "Alex",
			Timestamp:     time.Unix(1700000000, 0),
		},
		Message: msg,
	}
}

func TestToInboundText(t *testing.T) {
	d := &fakeDownloader{}

	in, ok, err := toInbound(context.Background(), d, newEvent(&waE2E.Message{Conversation: proto.String("turn on the lights")}))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindText, in.Kind)
	assert.Equal(t, "turn on the lights", in.Body)
	assert.Equal(t, "6281234@s.whatsapp.net", in.From)
	assert.Equal(t, "3EB0ABC", in.ID)
	assert.Equal(t, "Alex", in.PushName)
	assert.Equal(t, int64(1700000000), in.Timestamp.Unix())

	extended := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("what's on today")}}
	in, ok, err = toInbound(context.Background(), d, newEvent(extended))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "what's on today", in.Body)
	assert.Empty(t, d.got)
}

func TestToInboundAudioDefaults(t *testing.T) {
	d := &fakeDownloader{data: []byte("OggS")}
	evt := newEvent(&waE2E.Message{AudioMessage: &waE2E.AudioMessage{
		Seconds: proto.Uint32(4),
		PTT:     proto.Bool(true),
	}})
	evt.Info.PushName = ""

	in, ok, err := toInbound(context.Background(), d, evt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindAudio, in.Kind)
	assert.Equal(t, DefaultAudioMimeType, in.MimeType)
	assert.Equal(t, 4, in.Seconds)
	assert.True(t, in.PTT)
	assert.Equal(t, []byte("OggS"), in.Data)
	assert.Equal(t, DefaultPushName, in.PushName)
	assert.Len(t, d.got, 1)
}

func TestToInboundImage(t *testing.T) {
	d := &fakeDownloader{data: []byte{0xff, 0xd8}}
	evt := newEvent(&waE2E.Message{ImageMessage: &waE2E.ImageMessage{
		Mimetype: proto.String("image/png"),
		Caption:  proto.String("receipt"),
		Width:    proto.Uint32(640),
		Height:   proto.Uint32(480),
	}})

	in, ok, err := toInbound(context.Background(), d, evt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindImage, in.Kind)
	assert.Equal(t, "image/png", in.MimeType)
	require.NotNil(t, in.Caption)
	assert.Equal(t, "receipt", *in.Caption)
	assert.Equal(t, 640, in.Width)
	assert.Equal(t, 480, in.Height)

	evt.Message.ImageMessage.Caption = nil
	in, _, err = toInbound(context.Background(), d, evt)
	require.NoError(t, err)
	assert.Nil(t, in.Caption)
}

func TestToInboundSkipsAndFailures(t *testing.T) {
	d := &fakeDownloader{err: errors.New("media expired")}

	_, ok, err := toInbound(context.Background(), d, newEvent(nil))
	assert.NoError(t, err)
	assert.False(t, ok)

	sticker := &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}
	_, ok, err = toInbound(context.Background(), d, newEvent(sticker))
	assert.NoError(t, err)
	assert.False(t, ok)

	audio := &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}
	_, ok, err = toInbound(context.Background(), d, newEvent(audio))
	assert.ErrorContains(t, err, "media expired")
	assert.False(t, ok)
}

func TestBuildTextMessage(t *testing.T) {
	to := types.NewJID("6281234", types.DefaultUserServer)

	plain := buildTextMessage(to, "done", "")
	assert.Equal(t, "done", plain.GetConversation())
	assert.Nil(t, plain.GetExtendedTextMessage())

	quoted := buildTextMessage(to, "done", "3EB0ABC")
	assert.Empty(t, quoted.GetConversation())
	assert.Equal(t, "done", quoted.GetExtendedTextMessage().GetText())
	assert.Equal(t, "3EB0ABC", quoted.GetExtendedTextMessage().GetContextInfo().GetStanzaID())
	assert.Equal(t, "6281234@s.whatsapp.net", quoted.GetExtendedTextMessage().GetContextInfo().GetParticipant())
}

func TestParseJID(t *testing.T) {
	jid, err := parseJID("6281234@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "6281234", jid.User)

	_, err = parseJID("nobody")
	assert.ErrorIs(t, err, ErrInvalidJID)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", detectMimeType(nil, "audio/mpeg"))
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", detectMimeType(png, ""))
}

func TestLoggerSub(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	NewLogger(logger, "whatsmeow").Sub("Client").Warnf("socket %s", "closed")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "socket closed", entry.Message)
	assert.Equal(t, "whatsmeow/Client", entry.Data["module"])
}
