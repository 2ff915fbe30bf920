package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	core := log.Desugar().Core()
	if core.Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug to be off by default")
	}
	if !core.Enabled(zapcore.InfoLevel) {
		t.Error("Expected info to be on")
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	if !log.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected verbose to enable debug")
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Infow("dropped", "key", "value")
	if log.Desugar().Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected the no-op logger to be disabled")
	}
}
