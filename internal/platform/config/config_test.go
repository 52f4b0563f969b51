package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Pipeline.HighValueThreshold.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, cfg.Pipeline.SignOffThreshold.Equal(decimal.NewFromInt(2_500_000)))
	assert.Equal(t, 7, cfg.Pipeline.DisbursementBusinessDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Pipeline.FrozenAlertAge)
	assert.Equal(t, ResumePrior, cfg.Pipeline.FrozenResume)
	assert.Equal(t, "@every 15m", cfg.Monitor.Schedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADJ_SERVER_ADDR", ":9090")
	t.Setenv("ADJ_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ADJ_PIPELINE_FROZEN_RESUME", ResumeRestartL1)
	t.Setenv("ADJ_PIPELINE_HIGH_VALUE_THRESHOLD", "500000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ResumeRestartL1, cfg.Pipeline.FrozenResume)
	assert.True(t, cfg.Pipeline.HighValueThreshold.Equal(decimal.NewFromInt(500_000)))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjudicator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  schedule: \"@every 1m\"\npipeline:\n  workers: 8\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "@every 1m", cfg.Monitor.Schedule)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
}

func TestLoad_RejectsUnknownResumePolicy(t *testing.T) {
	t.Setenv("ADJ_PIPELINE_FROZEN_RESUME", "guess")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate_SignOffBelowHighValue(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.SignOffThreshold = decimal.NewFromInt(1)
	assert.Error(t, cfg.Validate())
}
