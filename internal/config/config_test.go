package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Testnet)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "linear", cfg.Category)
	assert.Equal(t, "3", cfg.Interval)
	assert.Equal(t, []string{"09:00:00", "16:00:00", "21:00:00"}, cfg.TargetHours)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.ProgressLogInterval)
	assert.True(t, cfg.WickBodyRatio.Equal(decimal.NewFromInt(2)))
}

func TestLoadRequiresCredentialsWhenLive(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	t.Setenv("BYBIT_TESTNET", "false")
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BYBIT_API_KEY")
}

func TestLoadDecodesBase64Credentials(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	t.Setenv("BYBIT_TESTNET", "false")
	t.Setenv("BYBIT_API_KEY", "c2VjcmV0dmFsdWU=") // "secretvalue"
	t.Setenv("BYBIT_API_SECRET", "my-raw-secret!") // not base64, kept as-is

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secretvalue", cfg.APIKey)
	assert.Equal(t, "my-raw-secret!", cfg.APISecret)
}

func TestLoadTestnetUsesSeparateKeyVars(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	t.Setenv("BYBIT_TESTNET", "true")
	t.Setenv("BYBIT_API_KEY", "mainnet-key!")
	t.Setenv("BYBIT_API_SECRET", "mainnet-secret!")
	t.Setenv("BYBIT_API_KEY_TESTNET", "testnet-key!")
	t.Setenv("BYBIT_API_SECRET_TESTNET", "testnet-secret!")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "testnet-key!", cfg.APIKey)
	assert.Equal(t, "testnet-secret!", cfg.APISecret)
}

func TestLoadRejectsBadTargetHours(t *testing.T) {
	t.Setenv("TARGET_HOURS", "09:00:00,25:99:00")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_HOURS")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("TARGET_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_TIMEZONE")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b ,"))
	assert.Empty(t, splitList(" , "))
}
