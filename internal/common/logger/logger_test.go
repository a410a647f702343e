package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for in, want := range cases {
		log, err := NewLogger(in, "json", "manajemen-warga")
		require.NoError(t, err, in)
		assert.True(t, log.Core().Enabled(want), in)
		if want > zapcore.DebugLevel {
			assert.False(t, log.Core().Enabled(want-1), in)
		}
	}
}

func TestNewLogger_Console(t *testing.T) {
	log, err := NewLogger("info", "console", "")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
