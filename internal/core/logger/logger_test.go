package logger

import (
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToWriter_SplitsTrailingNewline(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := ToWriter(zap.New(core), zapcore.WarnLevel)

	n, err := w.Write([]byte("slow sql 250ms\n"))
	require.NoError(t, err)
	assert.Equal(t, len("slow sql 250ms\n"), n)

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "slow sql 250ms", e.Message)
	assert.Equal(t, zapcore.WarnLevel, e.Level)
}

func TestToWriter_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := ToWriter(zap.New(core), zapcore.InfoLevel)
	_, _ = w.Write([]byte("dropped"))
	assert.Equal(t, 0, logs.Len())
}

func TestRedirectStdLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	undo := RedirectStdLog(zap.New(core), zapcore.InfoLevel)
	log.Print("from std log")
	undo()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "from std log", logs.All()[0].Message)
}

func TestNew_WithRotateFile(t *testing.T) {
	l, cleanup := New(Options{
		Level: "debug",
		JSON:  true,
		Rotate: FileRotate{
			Enable:   true,
			Filename: filepath.Join(t.TempDir(), "app.log"),
		},
		Fields: []zap.Field{zap.String("service", "test")},
	})
	l.Info("hello")
	cleanup()
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
