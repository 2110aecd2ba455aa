package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	defer Replace(nil)
	path := filepath.Join(t.TempDir(), "nested", "peer.log")
	if err := Init(Options{Level: "info", Format: "json", ToFile: true, FilePath: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("session_start", zap.String("role", "host"))
	Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "session_start") || !strings.Contains(string(raw), `"role":"host"`) {
		t.Fatalf("log file missing entry: %s", raw)
	}
}

func TestInitWithoutSinksIsNop(t *testing.T) {
	defer Replace(nil)
	if err := Init(Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if L().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected nop logger")
	}
}
