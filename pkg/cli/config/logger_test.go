package config_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/testbed/pkg/cli/config"
)

func TestLogger_Configure(t *testing.T) {
	type testCase struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantErr   bool
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Logger{Level: tc.level}
			cfg.SetOutput(&buf)

			logger, err := cfg.Configure()
			if tc.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)

			logger.Debug("pulling image")
			logger.Info("container started")
			gt.Equal(t, strings.Contains(buf.String(), "pulling image"), tc.wantDebug)
			gt.Equal(t, strings.Contains(buf.String(), "container started"), tc.wantInfo)
		}
	}

	t.Run("debug", runTest(testCase{level: "debug", wantDebug: true, wantInfo: true}))
	t.Run("upper case", runTest(testCase{level: "DEBUG", wantDebug: true, wantInfo: true}))
	t.Run("info", runTest(testCase{level: "info", wantInfo: true}))
	t.Run("warn", runTest(testCase{level: "Warn"}))
	t.Run("error", runTest(testCase{level: "error"}))
	t.Run("unknown level", runTest(testCase{level: "verbose", wantErr: true}))
	t.Run("empty level", runTest(testCase{level: "", wantErr: true}))
}

func TestLogger_Configure_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Logger{Level: "info", JSON: true}
	cfg.SetOutput(&buf)

	logger, err := cfg.Configure()
	gt.NoError(t, err)
	logger.Info("test server ready", "pr", 42, "port", 49153)

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Equal(t, record["msg"], any("test server ready"))
	gt.Equal(t, record["pr"], any(float64(42)))
}

func TestLogger_Configure_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Logger{Level: "info", JSON: true}
	cfg.SetOutput(&buf)

	logger, err := cfg.Configure()
	gt.NoError(t, err)

	githubCfg := config.GitHub{
		WebhookSecret: "hook-secret-value",
		AppID:         1234,
		Token:         "ghp_token_value",
	}
	logger.Info("configured", "github", githubCfg)

	out := buf.String()
	gt.String(t, out).Contains("1234")
	gt.False(t, strings.Contains(out, "hook-secret-value"))
	gt.False(t, strings.Contains(out, "ghp_token_value"))
}

func TestLogger_Flags(t *testing.T) {
	cfg := &config.Logger{}
	names := map[string]bool{}
	for _, f := range cfg.Flags() {
		names[f.Names()[0]] = true
	}

	gt.Equal(t, len(names), 2)
	gt.True(t, names["log-level"])
	gt.True(t, names["log-json"])
}
