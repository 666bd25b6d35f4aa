package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != slog.LevelInfo {
		t.Errorf("Level = %v, want INFO", cfg.Level)
	}
	if cfg.MaxSizeMB != 50 || cfg.MaxBackups != 10 || cfg.MaxAgeDays != 14 {
		t.Errorf("rotation = %d/%d/%d, want 50/10/14", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
}

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if filepath.Base(dir) != "logs" || filepath.Base(filepath.Dir(dir)) != "tilecls" {
		t.Errorf("DefaultLogDir() = %v, want .../tilecls/logs", dir)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if From(context.Background()) != L() {
		t.Error("From() without a logger should return L()")
	}

	ctx := With(context.Background(), logger)
	if From(ctx) != logger {
		t.Error("From() should return the stored logger")
	}

	ctx = WithAttrs(ctx, "batch_id", "b1")
	From(ctx).Info("hello")
	if !strings.Contains(buf.String(), "batch_id=b1") {
		t.Errorf("output %q missing batch_id attribute", buf.String())
	}
}

func TestFromOr(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	stored := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	if FromOr(context.Background(), fallback) != fallback {
		t.Error("FromOr() without a logger should return the fallback")
	}
	if FromOr(With(context.Background(), stored), fallback) != stored {
		t.Error("FromOr() should prefer the context logger")
	}
}
