package log

import (
	"context"
	"testing"

	contextPkg "ProjectAssistant/pkg/context"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, ParseLevel("info"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, DefaultLogLevel, ParseLevel(""))
	assert.Equal(t, DefaultLogLevel, ParseLevel("chatty"))
}

func TestWithContextAndTraceID(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	l := NewLogger("assistant-test")
	hook := test.NewLocal(l)

	ctx := contextPkg.WithCommandID(contextPkg.WithRequestID(context.Background(), "req-1"), "cmd-1")
	WithContext(ctx).Info("hello")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "cmd-1", entry.Data["command_id"])

	assert.Equal(t, "req-2", ErrorWithTraceID(Fields{"request_id": "req-2"}, "boom"))
	assert.Equal(t, "req-2", hook.LastEntry().Data["trace_id"])

	generated := ErrorWithTraceID(nil, "boom")
	assert.Len(t, generated, 36)
}
