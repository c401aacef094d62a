package websocketPkg

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ProjectAssistant/internal/entity"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)

	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, b.Next())
	}
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}, got)

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Peek())
}

type fakeRelay struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	recv  chan []byte
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	r := &fakeRelay{
		conns: make(chan *websocket.Conn, 4),
		recv:  make(chan []byte, 16),
	}
	upgrader := websocket.Upgrader{}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case r.recv <- data:
			default:
			}
		}
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http")
}

func (r *fakeRelay) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-r.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("relay link never connected")
		return nil
	}
}

func newTestLink(t *testing.T, url string, opts ...RelayOption) IRelayLink {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]RelayOption{
		WithIDGenerator(func(time.Time) string { return "cmd-1" }),
	}, opts...)
	return NewRelayLink(logger, url, validator.New(), opts...)
}

func nextCommand(t *testing.T, l IRelayLink) entity.Command {
	t.Helper()
	select {
	case cmd := <-l.Commands():
		return cmd
	case <-time.After(3 * time.Second):
		t.Fatal("no command received")
		return entity.Command{}
	}
}

func nextStatus(t *testing.T, l IRelayLink) Status {
	t.Helper()
	select {
	case s := <-l.Statuses():
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("no status received")
		return Status{}
	}
}

func TestRelayLinkReceivesFrames(t *testing.T) {
	relay := newFakeRelay(t)
	l := newTestLink(t, relay.url())
	defer l.StopListening()

	require.NoError(t, l.StartListening(context.Background()))
	peer := relay.accept(t)

	connected := nextStatus(t, l)
	assert.True(t, connected.RelayConnected)
	assert.True(t, l.Connected())

	frames := []string{
		`not json at all`,
		`{"type":"whatsapp.message.text","from":"628@s.whatsapp.net","body":"missing id"}`,
		`{"type":"whatsapp.message.image","id":"img","from":"x","data":"AAAA"}`,
		`{"type":"something.new"}`,
		`{"type":"whatsapp.message.text","id":"m1","from":"628@s.whatsapp.net","pushName":"Sam","body":"turn on the lights","timestamp":1700000000}`,
		`{"type":"whatsapp.message.audio","id":"m2","from":"628@s.whatsapp.net","mimetype":"audio/ogg; codecs=opus","seconds":3,"data":"` + base64.StdEncoding.EncodeToString([]byte("OggS")) + `","ptt":true,"timestamp":1700000001.5}`,
		`{"type":"relay.status","whatsapp":"connected","uptime":42}`,
	}
	for _, f := range frames {
		require.NoError(t, peer.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	text := nextCommand(t, l)
	assert.Equal(t, "cmd-1", text.ID)
	assert.Equal(t, "turn on the lights", text.RawText)
	assert.Equal(t, entity.SourceTypedText, text.Source)
	assert.Equal(t, "628@s.whatsapp.net", text.From)
	assert.Equal(t, "Sam", text.PushName)
	assert.Equal(t, "m1", text.MessageID)
	assert.Equal(t, int64(1700000000), text.Timestamp.Unix())

	audio := nextCommand(t, l)
	assert.Equal(t, entity.SourceVoiceNote, audio.Source)
	assert.Equal(t, []byte("OggS"), audio.AudioPayload)
	assert.Equal(t, "audio/ogg; codecs=opus", audio.AudioMimeType)
	assert.True(t, audio.NeedsTranscription())

	status := nextStatus(t, l)
	assert.Equal(t, Status{RelayConnected: true, WhatsApp: WhatsAppConnected, Uptime: 42}, status)
	assert.True(t, l.Connected(), "malformed frames must not drop the connection")
}

func TestRelayLinkSendReplyAndHeartbeat(t *testing.T) {
	relay := newFakeRelay(t)
	l := newTestLink(t, relay.url(), WithHeartbeat(20*time.Millisecond))
	defer l.StopListening()

	err := l.SendRaw(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, l.StartListening(context.Background()))
	relay.accept(t)
	nextStatus(t, l)

	require.NoError(t, l.SendReply(context.Background(), NewReplyText("628@s.whatsapp.net", "Living room lights turned on", "m1")))

	var sawReply, sawPing bool
	deadline := time.After(3 * time.Second)
	for !sawReply || !sawPing {
		select {
		case data := <-relay.recv:
			switch FrameType(data) {
			case TypeReply:
				sawReply = true
				assert.JSONEq(t, `{"type":"reply.text","to":"628@s.whatsapp.net","body":"Living room lights turned on","quotedId":"m1"}`, string(data))
			case TypePing:
				sawPing = true
			}
		case <-deadline:
			t.Fatalf("reply=%v ping=%v", sawReply, sawPing)
		}
	}

	err = l.SendReply(context.Background(), ReplyText{Body: "no recipient"})
	assert.Error(t, err)
}

func TestRelayLinkReconnectsAfterDrop(t *testing.T) {
	relay := newFakeRelay(t)
	l := newTestLink(t, relay.url(), WithBackoff(10*time.Millisecond, 40*time.Millisecond))
	defer l.StopListening()

	require.NoError(t, l.StartListening(context.Background()))
	first := relay.accept(t)
	assert.True(t, nextStatus(t, l).RelayConnected)

	first.Close()
	down := nextStatus(t, l)
	assert.False(t, down.RelayConnected)

	second := relay.accept(t)
	assert.True(t, nextStatus(t, l).RelayConnected)

	require.NoError(t, second.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"whatsapp.message.text","id":"m3","from":"628@s.whatsapp.net","body":"still here"}`)))
	assert.Equal(t, "still here", nextCommand(t, l).RawText)
}

func TestRelayLinkRetriesUnreachableRelay(t *testing.T) {
	l := newTestLink(t, "ws://127.0.0.1:1/ws", WithBackoff(5*time.Millisecond, 10*time.Millisecond))
	require.NoError(t, l.StartListening(context.Background()))

	assert.Eventually(t, func() bool {
		return l.State() == LinkFaulted || l.State() == LinkConnecting
	}, time.Second, 5*time.Millisecond)
	assert.False(t, l.Connected())

	l.StopListening()
	assert.Equal(t, LinkIdle, l.State())
}

func TestRelayLinkStopIsTerminalAndIdempotent(t *testing.T) {
	relay := newFakeRelay(t)
	l := newTestLink(t, relay.url())

	require.NoError(t, l.StartListening(context.Background()))
	require.NoError(t, l.StartListening(context.Background()))
	relay.accept(t)

	l.StopListening()
	l.StopListening()

	_, ok := <-l.Commands()
	assert.False(t, ok)
	for range l.Statuses() {
	}

	assert.ErrorIs(t, l.StartListening(context.Background()), ErrLinkClosed)
	assert.ErrorIs(t, l.SendRaw(context.Background(), PingFrame), ErrNotConnected)
}

func TestStopWithoutStart(t *testing.T) {
	l := newTestLink(t, "ws://127.0.0.1:1/ws")
	l.StopListening()

	_, ok := <-l.Statuses()
	assert.False(t, ok)
}
