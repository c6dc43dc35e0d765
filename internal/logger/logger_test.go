package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for name, want := range tests {
		if got := Level(name); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	log := New("warn")
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info enabled on a warn logger")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error disabled on a warn logger")
	}
}
