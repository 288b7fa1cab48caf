package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	assert.Equal(t, NewLogger("debug", "text").GetLevel(), logrus.DebugLevel)
	assert.Equal(t, NewLogger("warning", "text").GetLevel(), logrus.WarnLevel)
	// unknown levels fall back to info instead of failing
	assert.Equal(t, NewLogger("bogus", "text").GetLevel(), logrus.InfoLevel)
}

func TestNewLoggerFormatter(t *testing.T) {
	_, isJSON := NewLogger("info", "json").Formatter.(*logrus.JSONFormatter)
	assert.Assert(t, isJSON)

	_, isText := NewLogger("info", "text").Formatter.(*logrus.TextFormatter)
	assert.Assert(t, isText)
}
