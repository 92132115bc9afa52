package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Config{Level: "warn", Console: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	_, err = NewLogger(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Config{JSONFormat: true, Console: &buf})
	require.NoError(t, err)

	l.WithField("run_id", "abc").Info("started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewLogger_WritesFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "prhelper.log")

	l, err := NewLogger(Config{OutputFile: path, Console: &buf})
	require.NoError(t, err)
	l.Info("to both")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
	assert.Equal(t, path, l.FilePath())
}

func TestNewLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prhelper.log")

	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))
	require.NoError(t, os.WriteFile(path+".1", []byte("first backup"), 0644))
	require.NoError(t, os.WriteFile(path+".2", []byte("second backup"), 0644))

	l, err := NewLogger(Config{OutputFile: path, MaxSize: 32, MaxBackups: 2, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer l.Close()

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 64), string(rotated))

	shifted, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "first backup", string(shifted))

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}
