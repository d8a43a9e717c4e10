package observes

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledWithoutEndpoints(t *testing.T) {
	flush, err := NewSentry(&SentryOptions{})
	require.NoError(t, err)
	flush()

	shutdown, err := NewTracer(&TracerOption{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "export.page")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))
}

func TestSentryLevel(t *testing.T) {
	assert.Equal(t, "fatal", string(sentryLevel(logrus.PanicLevel)))
	assert.Equal(t, "error", string(sentryLevel(logrus.ErrorLevel)))
}

func TestSentryHookLevels(t *testing.T) {
	assert.NotContains(t, NewSentryHook().Levels(), logrus.InfoLevel)
}
