package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender routes lines through tb.Log so output stays attached to the test that
// produced it, including under t.Parallel.
type testAppender struct {
	tb testing.TB
}

func (app testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	app.tb.Helper()
	line, err := formatEntry(entry, fields)
	app.tb.Log(line)
	return err
}

func (app testAppender) Sync() error {
	return nil
}
