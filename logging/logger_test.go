package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, parseLevel("warn"))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, parseLevel("info"))
	assert.Equal(t, logrus.InfoLevel, parseLevel("verbose"))
}

func TestNewWritesJSON(t *testing.T) {
	log := New("debug")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("chat_id", 42).Debug("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, float64(42), entry["chat_id"])
	assert.Contains(t, entry, "timestamp")
}
