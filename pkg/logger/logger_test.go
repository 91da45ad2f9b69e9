package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("LevelFiltering", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Stdout: &buf})
		l.SetLogLevel("warn")

		l.Debug("hidden debug")
		l.Info("hidden info")
		l.Warn("visible warn")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "visible warn")
		assert.Contains(t, out, "level=WARN")
	})

	t.Run("CustomLevelNames", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Stdout: &buf})
		l.SetLogLevel("trace")

		l.Trace("tracing")
		assert.Contains(t, buf.String(), "level=TRACE")
	})

	t.Run("ErrorCarriesCause", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Stdout: &buf})

		l.Error("insert failed", errors.New("connection refused"), "id", "abc")
		out := buf.String()
		assert.Contains(t, out, "insert failed")
		assert.Contains(t, out, "connection refused")
		assert.Contains(t, out, "id=abc")
	})

	t.Run("FatalExits", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Options{Stdout: &buf})
		code := -1
		l.exit = func(c int) { code = c }

		l.Fatal("boom", nil)
		assert.Equal(t, 1, code)
		assert.Contains(t, buf.String(), "level=FATAL")
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "payloadstore.log")
		l := New(Options{Stdout: &bytes.Buffer{}, File: path})

		l.Info("to file", "k", "v")

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"msg":"to file"`)
	})
}

func TestLogLevelRoundTrip(t *testing.T) {
	l := Nop()
	for _, lvl := range []string{"trace", "debug", "info", "warn", "error", "fatal"} {
		l.SetLogLevel(lvl)
		assert.Equal(t, lvl, l.GetLogLevel())
	}

	l.SetLogLevel("nonsense")
	assert.Equal(t, "info", l.GetLogLevel())
}

func TestPrefixedLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrefixedLogger(New(Options{Stdout: &buf}), "http")

	p.Info("listening")
	assert.Contains(t, buf.String(), "[http] listening")
}

func TestSourceIsFirstCallerOutsidePackage(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Stdout: &buf})

	l.Info("direct")
	NewPrefixedLogger(l, "http").Warn("wrapped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "logger_test.go:", line)
		assert.NotContains(t, line, "prefixed.go", line)
	}
}

func TestInPackage(t *testing.T) {
	cases := map[string]bool{
		pkgPath + ".(*SlogLogger).Info":               true,
		pkgPath + ".(*PrefixedLogger).Warn":           true,
		pkgPath + ".New.func1":                        true,
		pkgPath + "x.Helper":                          false,
		pkgPath + "/sub.F":                            false,
		"github.com/acme/logger/internal/api.Handle":  false,
		"github.com/acme/payment-logger/cmd/app.main": false,
		"log/slog.(*Logger).Info":                     false,
	}
	for fn, want := range cases {
		assert.Equal(t, want, inPackage(fn), fn)
	}
}
