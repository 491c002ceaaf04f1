package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/btclayer2/polkadot-sdk/logger"
)

func TestConfigNew(t *testing.T) {
	tests := []struct {
		format   string
		contains string
	}{
		{format: "json", contains: `"msg":"migration pass started"`},
		{format: "console", contains: "migration pass started"},
		{format: "logfmt", contains: `msg="migration pass started"`},
		// A plain buffer is not a terminal, so auto selects logfmt.
		{format: "auto", contains: `msg="migration pass started"`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := logger.Config{Format: tt.format, Level: zapcore.InfoLevel}.New(&buf)
			require.NoError(t, err)

			log.Info("migration pass started")
			assert.Contains(t, buf.String(), tt.contains)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := logger.Config{Format: "xml"}.New(&bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown logging format")
	})

	t.Run("level gates output", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := logger.Config{Format: "logfmt", Level: zapcore.WarnLevel}.New(&buf)
		require.NoError(t, err)

		log.Info("migration pass started")
		assert.Empty(t, buf.String())
	})
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf)

	log.Debug("inspecting storage versions")
	assert.Contains(t, buf.String(), "inspecting storage versions")
}
