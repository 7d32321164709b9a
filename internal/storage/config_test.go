package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// --- Scalar helpers ---

func TestGetString(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]string
		want   string
	}{
		{"set", map[string]string{"key": "value"}, "value"},
		{"missing", map[string]string{}, "default"},
		{"empty", map[string]string{"key": ""}, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetString(tt.config, "key", "default"); got != tt.want {
				t.Errorf("GetString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		value   string
		def     bool
		want    bool
		wantErr bool
	}{
		{"true", false, true, false},
		{"YES", false, true, false},
		{"1", false, true, false},
		{"false", true, false, false},
		{"no", true, false, false},
		{"", true, true, false},
		{"maybe", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := GetBool(map[string]string{"k": tt.value}, "k", tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetBool err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("GetBool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	config := map[string]string{"num": "42", "bad": "abc"}

	if v, err := GetInt(config, "num", 0); err != nil || v != 42 {
		t.Errorf("GetInt = %d, %v", v, err)
	}
	if v, err := GetInt(config, "missing", 99); err != nil || v != 99 {
		t.Errorf("GetInt missing = %d, %v", v, err)
	}
	if v, err := GetInt64(config, "num", 0); err != nil || v != 42 {
		t.Errorf("GetInt64 = %d, %v", v, err)
	}

	_, err := GetInt(config, "bad", 0)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("GetInt bad: expected *ConfigError, got %v", err)
	}
	if ce.Field != "bad" || ce.Value != "abc" {
		t.Errorf("ConfigError = %+v", ce)
	}
	if ce.Unwrap() == nil {
		t.Error("expected parse error as cause")
	}
}

func TestGetDuration(t *testing.T) {
	config := map[string]string{"dur": "5s", "secs": "10", "bad": "abc"}

	if v, err := GetDuration(config, "dur", 0); err != nil || v != 5*time.Second {
		t.Errorf("GetDuration dur = %v, %v", v, err)
	}
	if v, err := GetDuration(config, "secs", 0); err != nil || v != 10*time.Second {
		t.Errorf("GetDuration secs = %v, %v", v, err)
	}
	if v, err := GetDuration(config, "missing", time.Minute); err != nil || v != time.Minute {
		t.Errorf("GetDuration missing = %v, %v", v, err)
	}
	if _, err := GetDuration(config, "bad", 0); err == nil {
		t.Error("GetDuration bad: expected error")
	}
}

func TestGetFileMode(t *testing.T) {
	config := map[string]string{"mode": "0750", "bad": "rwx"}

	if v, err := GetFileMode(config, "mode", 0); err != nil || v != 0o750 {
		t.Errorf("GetFileMode = %o, %v", v, err)
	}
	if v, err := GetFileMode(config, "missing", 0o600); err != nil || v != 0o600 {
		t.Errorf("GetFileMode missing = %o, %v", v, err)
	}
	if _, err := GetFileMode(config, "bad", 0); err == nil {
		t.Error("GetFileMode bad: expected error")
	}
}

// --- Paths and merging ---

func TestExpandPath(t *testing.T) {
	if got := ExpandPath("/absolute/path/"); got != "/absolute/path" {
		t.Errorf("ExpandPath absolute = %q", got)
	}
	if got := ExpandPath("relative/./path"); got != "relative/path" {
		t.Errorf("ExpandPath relative = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/downloads"); got != filepath.Join(home, "downloads") {
		t.Errorf("ExpandPath home = %q", got)
	}
}

func TestMergeConfig(t *testing.T) {
	dst := map[string]string{"a": "1", "b": "2"}
	src := map[string]string{"b": "3", "c": "4"}

	got := MergeConfig(dst, src)
	want := map[string]string{"a": "1", "b": "3", "c": "4"}
	if len(got) != len(want) {
		t.Fatalf("MergeConfig len = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("MergeConfig[%q] = %q, want %q", k, got[k], v)
		}
	}
	if dst["b"] != "2" {
		t.Error("MergeConfig modified dst")
	}
	if len(MergeConfig(nil, nil)) != 0 {
		t.Error("MergeConfig(nil, nil) should be empty")
	}
}

// --- ConfigError ---

func TestConfigErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{"message only", NewConfigError("fs", "", "unavailable"), "fs: unavailable"},
		{"field", NewConfigError("s3", "bucket", "required"), "s3: bucket: required"},
		{"value", NewConfigErrorWithValue("fs", "mode", "x", "bad mode"), `fs: mode="x": bad mode`},
		{"no backend", &ConfigError{Field: "port", Message: "bad"}, "config: port: bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigErrorCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewConfigErrorWithCause("badger", "path", "open failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "open failed") {
		t.Errorf("Error() = %q", err.Error())
	}
}
