package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerCarriesServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})

	logger.Info("boot")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "voltlead", record["service"])
	assert.Equal(t, "production", record["env"])
	assert.Equal(t, "boot", record["msg"])
}

func TestLoggerDefaultsToTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, nil)

	logger.Info("boot")

	assert.Contains(t, buf.String(), "service=voltlead")
	assert.Contains(t, buf.String(), "env=development")
}
