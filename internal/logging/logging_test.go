package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput(t *testing.T) {
	tcases := []struct {
		name   string
		level  string
		format string
		err    bool
	}{
		{name: "text info", level: "info", format: "text"},
		{name: "json debug", level: "debug", format: "json"},
		{name: "default format", level: "warn", format: ""},
		{name: "bad level", level: "loud", format: "text", err: true},
		{name: "bad format", level: "info", format: "xml", err: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewWithOutput(&bytes.Buffer{}, tc.level, tc.format)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			expected, _ := logrus.ParseLevel(tc.level)
			assert.Equal(t, expected, logger.GetLevel())
		})
	}
}

func TestNewWithOutput_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewWithOutput(buf, "info", "json")
	require.NoError(t, err)

	logger.WithField("user_id", 7).Info("logged in")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "logged in", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 7, entry["user_id"])
}
