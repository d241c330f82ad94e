package applog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToConsoleAndJSONFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(dir, &console)
	require.NoError(t, err)

	logger.Info("hello world", "key", "value")

	require.Contains(t, console.String(), "hello world")
	require.Contains(t, console.String(), "key=value")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "app.json"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &record))
	require.Equal(t, "hello world", record["msg"])
}

func TestFanoutHandlerDispatchesToAllHandlers(t *testing.T) {
	var a, b bytes.Buffer
	handler := &FanoutHandler{handlers: []slog.Handler{
		NewConsoleHandler(&a),
		NewConsoleHandler(&b),
	}}

	logger := slog.New(handler)
	logger.Info("fanned out")

	require.Contains(t, a.String(), "fanned out")
	require.Contains(t, b.String(), "fanned out")
}
