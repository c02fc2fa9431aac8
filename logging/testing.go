package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes through `tb.Log`, so each line lands under the
// test that produced it, parallel tests included.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write logs the formatted entry. When the fields fail to encode, the rest of the line is still
// logged and the error returned.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}
