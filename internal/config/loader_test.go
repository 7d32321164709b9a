package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestBindCommonFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()

	BindCommonFlags(cmd, v)

	err := cmd.PersistentFlags().Parse([]string{
		"--data-dir", "/custom/dir",
		"--log-level", "debug",
		"--log-format", "json",
		"--metrics-addr", ":9100",
		"-o", "markdown",
	})
	if err != nil {
		t.Fatalf("Parse flags: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"data_dir", "/custom/dir"},
		{"observability.log_level", "debug"},
		{"observability.log_format", "json"},
		{"observability.metrics_addr", ":9100"},
		{"host.output", "markdown"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := v.GetString(tt.key); got != tt.want {
				t.Errorf("v.GetString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestBindCommonFlags_defaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()

	BindCommonFlags(cmd, v)
	SetDefaults(v)

	if err := cmd.PersistentFlags().Parse(nil); err != nil {
		t.Fatalf("Parse flags: %v", err)
	}

	if got := v.GetString("observability.log_level"); got != Defaults.LogLevel {
		t.Errorf("log_level = %q, want default %q", got, Defaults.LogLevel)
	}
	if got := v.GetString("host.output"); got != Defaults.Output {
		t.Errorf("output = %q, want default %q", got, Defaults.Output)
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NETBRIDGE_OBSERVABILITY_LOG_LEVEL", "error")

	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	BindCommonFlags(cmd, v)
	if err := cmd.PersistentFlags().Parse([]string{"--log-level", "debug"}); err != nil {
		t.Fatalf("Parse flags: %v", err)
	}

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("flag should take priority over env var, got: %s", cfg.Observability.LogLevel)
	}
}
