package logger

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	assert.Same(t, DefaultLogger, FromContext(context.Background()))

	entry := log.NewEntry(log.New()).WithField("request_id", "abc")
	ctx := ToContext(context.Background(), entry)
	assert.Same(t, entry, FromContext(ctx))
	assert.Equal(t, "abc", FromContext(ctx).Data["request_id"])
}

func TestSetup(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	require.NoError(t, Setup("debug", "json"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	assert.Error(t, Setup("loud", "text"))
	assert.Error(t, Setup("info", "xml"))
}
