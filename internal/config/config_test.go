package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pms.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "10000", cfg.Wallet.InitialBalance.String())
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
log_level = "debug"

[storage]
driver = "postgres"

[postgres]
host = "db"
password = "pw"

[wallet]
initial_balance = "2500.50"
currency = "EUR"

[market_data]
timeout = "3s"

[server]
port = 9090
cors_origins = ["https://app.example.com"]
`)
	t.Setenv("PMS_SERVER_PORT", "9191")
	t.Setenv("PMS_NOTIFY_LOW_BALANCE_THRESHOLD", "100")
	t.Setenv("PMS_SERVER_CORS_ORIGINS", " https://a.example.com , ,https://b.example.com")
	t.Setenv("PMS_REDIS_ENABLED", "not-a-bool")
	t.Setenv("PMS_REDIS_NAMESPACE", "ledger-b")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port, "unset keys keep defaults")
	assert.Equal(t, "2500.5", cfg.Wallet.InitialBalance.String())
	assert.Equal(t, "EUR", cfg.Wallet.Currency)
	assert.Equal(t, 3*time.Second, cfg.MarketData.Timeout.Duration)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "100", cfg.Notify.LowBalanceThreshold.String())
	assert.False(t, cfg.Redis.Enabled, "unparseable overrides are ignored")
	assert.Equal(t, "ledger-b", cfg.Redis.Namespace)
	assert.Equal(t, 10000, cfg.Redis.StreamMaxLen)
}

func TestLoad_UnknownKey(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "[wallet]\nstarting_cash = 5\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet.starting_cash")
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PMS_LOG_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "chatty"
	cfg.Storage.Driver = "sqlite"
	cfg.Lock.Enabled = true
	cfg.Archive.Enabled = true
	cfg.Wallet.Currency = "dollars"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"log_level", "storage: unknown driver", "lock: requires redis",
		"archive: requires s3", "wallet: currency", "server: port",
	} {
		assert.Contains(t, msg, want)
	}
	assert.Equal(t, 6, strings.Count(msg, "\n  - "))
}

func TestValidate_PostgresPool(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Driver = DriverPostgres
	cfg.Postgres.PoolMinConns = 20
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_min_conns must not exceed")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pw"
	cfg.S3.SecretKey = "sk"
	cfg.Server.APIKeyHash = "pbkdf2-sha256$1$a$b"
	cfg.Notify.TelegramToken = ""

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Server.APIKeyHash)
	assert.Empty(t, out.Notify.TelegramToken)
	assert.Equal(t, "pw", cfg.Postgres.Password, "original untouched")

	out.Server.CORSOrigins[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Server.CORSOrigins[0])
}

func TestLoad_ExampleMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	def := Defaults()
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Equal(t, def.Server, cfg.Server)
	assert.True(t, def.Wallet.InitialBalance.Equal(cfg.Wallet.InitialBalance))
	assert.Equal(t, def.Lock, cfg.Lock)
	assert.Equal(t, def.Redis, cfg.Redis)
}
