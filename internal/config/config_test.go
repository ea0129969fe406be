package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "LOG_LEVEL", "STORAGE_DRIVER", "SQLITE_PATH", "GOOGLE_SHEET_DATABASE_ID",
		"WHATSAPP_TOKEN", "KAFKA_BROKER", "MAX_RANGE_DAYS", "RECALC_LOOKBACK_DAYS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, 400, cfg.Limits.MaxRangeDays)
	assert.Equal(t, 3, cfg.Scheduler.RecalcLookbackDays)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("MAX_RANGE_DAYS", "forever")

	_, err := Load("testdata/missing.env")
	assert.ErrorContains(t, err, "MAX_RANGE_DAYS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Storage:   StorageConfig{Driver: StorageSQLite, SQLitePath: "dairy.db"},
			Scheduler: SchedulerConfig{Timezone: "UTC", RecalcLookbackDays: 1},
			Limits:    LimitsConfig{MaxRangeDays: 400},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, wantErr: "STORAGE_DRIVER"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Driver = StorageMongo; c.MongoDB.DBName = "d" }, wantErr: "MONGODB_URI"},
		{name: "sheet without credentials", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{name: "whatsapp without phone id", mutate: func(c *Config) { c.WhatsApp.AccessToken = "t" }, wantErr: "WHATSAPP_PHONE_NUMBER_ID"},
		{name: "kafka without topic", mutate: func(c *Config) { c.Kafka.Broker = "localhost:9092" }, wantErr: "KAFKA_TOPIC"},
		{name: "zero range limit", mutate: func(c *Config) { c.Limits.MaxRangeDays = 0 }, wantErr: "MAX_RANGE_DAYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
