package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func newTestViper(t *testing.T, values map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	configureEnv(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

// --- loadSettings Tests ---

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := loadSettings(newTestViper(t, nil))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", s.LogLevel)
	}
	if s.LogFormat != "json" {
		t.Errorf("expected json format, got %q", s.LogFormat)
	}
	if s.Table != "" || s.StagePrefixes != nil {
		t.Errorf("expected empty table and stages, got %+v", s)
	}
}

func TestLoadSettings_FromEnvironment(t *testing.T) {
	t.Setenv("DYNAMODB_TABLE", "items-prod")
	t.Setenv("DEFAULT_PAGE_SIZE", "25")
	t.Setenv("MAX_PAGE_SIZE", "200")
	t.Setenv("STAGE_PREFIXES", "dev, /blue/ ,,prod")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "Text")

	s, err := loadSettings(newTestViper(t, nil))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	want := settings{
		Table:           "items-prod",
		DefaultPageSize: 25,
		MaxPageSize:     200,
		StagePrefixes:   []string{"dev", "blue", "prod"},
		LogLevel:        slog.LevelDebug,
		LogFormat:       "text",
	}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestLoadSettings_StoreConfig(t *testing.T) {
	s, err := loadSettings(newTestViper(t, map[string]any{
		keyTable:           "t",
		keyDefaultPageSize: 10,
		keyMaxPageSize:     20,
	}))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	c := s.storeConfig()
	if c.Table != "t" || c.DefaultPageSize != 10 || c.MaxPageSize != 20 {
		t.Errorf("unexpected store config %+v", c)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		errSub string
	}{
		{"bad level", map[string]any{keyLogLevel: "loud"}, "log level"},
		{"bad format", map[string]any{keyLogFormat: "xml"}, "log format"},
		{"negative page", map[string]any{keyDefaultPageSize: -1}, "negative"},
		{"default above max", map[string]any{keyDefaultPageSize: 50, keyMaxPageSize: 10}, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadSettings(newTestViper(t, tt.values))
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}

// --- newLogger Tests ---

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(settings{LogLevel: slog.LevelWarn, LogFormat: "json"}, &buf)

	l.Info("hidden")
	l.Warn("shown", "requestId", "r1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "shown" || entry["requestId"] != "r1" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(settings{LogLevel: slog.LevelInfo, LogFormat: "text"}, &buf).Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}

// --- Misc ---

func TestNewDynamoStore_RequiresTable(t *testing.T) {
	if _, err := newDynamoStore(context.Background(), settings{}); err == nil {
		t.Fatal("expected error without a table name")
	}
}

func TestWrapString(t *testing.T) {
	got := WrapString(strings.Repeat("word ", 20))
	for _, line := range strings.Split(got, "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d chars: %q", Wrap, line)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if out.String() != "itemsvc v"+Version+"\n" {
		t.Errorf("unexpected version output %q", out.String())
	}
}
