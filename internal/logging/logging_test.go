package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		invalid bool
	}{
		{"debug", true, false},
		{"info", false, false},
		{"warn", false, false},
		{"error", false, false},
		{"loud", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(&buf, tt.level)
			if tt.invalid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			logger.Debug("detail")
			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte("detail")))
		})
	}
}

func TestOpenAppends(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keys.log")
	for _, msg := range []string{"first", "second"} {
		logger, f, err := Open(file, "info")
		require.NoError(t, err)
		logger.WithField("n", msg).Info("line")
		require.NoError(t, f.Close())
	}
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "n=first")
	assert.Contains(t, string(data), "n=second")
}
