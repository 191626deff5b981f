package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesToStderrWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Stderr: &buf})
	defer closer.Close()

	logger.Info("cache refreshed", "store", "tours")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "cache refreshed") || !strings.Contains(out, "store=tours") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Level: slog.LevelDebug, Stderr: &buf, DisableOTel: true})

	logger.Debug("verbose detail")
	if !strings.Contains(buf.String(), "verbose detail") {
		t.Errorf("debug record missing: %q", buf.String())
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toursync.log")
	var stderr bytes.Buffer
	logger, closer := New(Options{File: path, Stderr: &stderr})

	logger.Warn("token expires soon")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "token expires soon") {
		t.Errorf("log file = %q", data)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr received %q while file logging", stderr.String())
	}
}

func TestFanout_WithAttrsReachesAllHandlers(t *testing.T) {
	var a, b bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("request_id", "r-1")

	logger.Info("one")
	logger.Error("two")

	if !strings.Contains(a.String(), "request_id=r-1") || !strings.Contains(a.String(), "one") {
		t.Errorf("first handler = %q", a.String())
	}
	if strings.Contains(b.String(), "one") {
		t.Error("second handler received a record below its level")
	}
	if !strings.Contains(b.String(), "two") {
		t.Errorf("second handler = %q", b.String())
	}
}

func TestLeveled_DropsBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(leveled{inner, slog.LevelWarn}).WithGroup("sync").With("pass", 1)

	logger.Info("routine")
	logger.Warn("retrying")

	out := buf.String()
	if strings.Contains(out, "routine") {
		t.Error("info record passed a warn minimum")
	}
	if !strings.Contains(out, "retrying") || !strings.Contains(out, "sync.pass=1") {
		t.Errorf("output = %q", out)
	}
}
