package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ncobase/shopconsole/ctxutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := &Logger{Logger: logrus.New()}
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	return l
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	ctx := ctxutil.SetTraceID(context.Background(), "trace-1")
	l.Info(ctx, "export started", "total", 12000, "error", errors.New("boom"))

	m := decode(t, &buf)
	assert.Equal(t, "export started", m["msg"])
	assert.Equal(t, float64(12000), m["total"])
	assert.Equal(t, "boom", m["error"])
	assert.Equal(t, "trace-1", m[traceKey])
}

func TestDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.Warn(context.Background(), "odd", "lonely")

	m := decode(t, &buf)
	assert.Equal(t, "lonely", m["!BADKEY"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.SetLevel(logrus.InfoLevel)

	l.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestMaskHook(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.AddHook(NewMaskHook([]string{"token", "uri"}))

	l.Info(context.Background(), "connect",
		"bot_token", "123:abc",
		"mongo_uri", "mongodb://admin:secret@db:27017/shop",
		"collection", "bot_users")

	m := decode(t, &buf)
	assert.Equal(t, maskValue, m["bot_token"])
	assert.NotContains(t, m["mongo_uri"], "secret")
	assert.Contains(t, m["mongo_uri"], "db:27017/shop")
	assert.Equal(t, "bot_users", m["collection"])
}

func TestAddHookOnce(t *testing.T) {
	l := newTestLogger(&bytes.Buffer{})
	h := NewMaskHook([]string{"token"})
	l.AddHook(h)
	l.AddHook(h)
	assert.Len(t, l.Hooks[logrus.InfoLevel], 1)
}
