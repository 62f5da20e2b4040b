package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "skirmish"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer or endpoint")
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "skirmish",
		ServiceVersion: "v1.2.3",
		SessionID:      "4f2c9e",
		BatchTimeout:   time.Second,
		LogWriter:      &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec log.Record
	rec.SetBody(log.StringValue("zone alpha cleansed"))
	rec.SetTimestamp(time.Now())
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "zone alpha cleansed")
	assert.Contains(t, buf.String(), "skirmish")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.Contains(t, buf.String(), "4f2c9e")

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestConfigAttributes(t *testing.T) {
	attrs := Config{ServiceName: "skirmish"}.attributes()
	assert.Len(t, attrs, 1)

	attrs = Config{ServiceName: "skirmish", SessionID: "abc"}.attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, SessionKey, attrs[1].Key)
	assert.Equal(t, "abc", attrs[1].Value.AsString())
}
