package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{AppName: "drive", Output: &buf})

	l.Debug("hidden")
	l.Info("sync finished", "synced", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync finished", entry["msg"])
	assert.Equal(t, "drive", entry["app"])
	assert.EqualValues(t, 3, entry["synced"])
}

func TestNew_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Development: true, Output: &buf})

	l.Debug("polling updates")

	assert.Contains(t, buf.String(), "polling updates")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestInit_SetsGlobal(t *testing.T) {
	var buf bytes.Buffer
	flush := Init(Options{Output: &buf})
	defer flush()

	require.NotNil(t, Log)
	Log.Info("ready")
	assert.Contains(t, buf.String(), "ready")
}
