package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Off(t *testing.T) {
	for _, level := range []string{"", "off", " OFF "} {
		var buf bytes.Buffer
		logger, err := NewLogger(level, &buf)
		require.NoError(t, err)
		logger.Error("nothing")
		assert.Empty(t, buf.String())
	}
}

func TestNewLogger_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("request finished")
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "request finished", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	_, err := NewLogger("loud", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown log level")
}
