package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger_WritesDebugToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := InitLogger("test", Options{Dir: dir})
	require.NoError(t, err)

	logger.Debug("booking loaded", zap.String("booking_id", "b1"))
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "test_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
	assert.Equal(t, "booking loaded", line["msg"])
	assert.Equal(t, "b1", line["booking_id"])
	assert.Equal(t, "test", line["env"])
	assert.Contains(t, line, "timestamp")
}
