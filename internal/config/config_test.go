package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "Asia/Kolkata", cfg.Report.Timezone)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scanner.Cooldown)
	assert.Equal(t, 10, cfg.App.LowStockThreshold)
	assert.Equal(t, "memory", cfg.Realtime.Type)
	assert.False(t, cfg.Changelog.Enabled())
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Changelog.Brokers)
	assert.True(t, cfg.Changelog.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoad_RejectsNegativeCooldown(t *testing.T) {
	t.Setenv("SCANNER_COOLDOWN", "-1s")

	_, err := Load()
	assert.Error(t, err)
}

func TestDocStoreConfig_DSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        DocStoreConfig
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite", DocStoreConfig{Type: "sqlite", Path: "/tmp/x.db"}, "sqlite", "/tmp/x.db", false},
		{"mysql default port", DocStoreConfig{Type: "mysql", Host: "db", Name: "bz", User: "u", Password: "p"},
			"mysql", "u:p@tcp(db:3306)/bz?parseTime=true", false},
		{"postgres", DocStoreConfig{Type: "postgres", Host: "pg", Port: 6543, Name: "bz", User: "u", Password: "p", SSLMode: "disable"},
			"postgres", "postgres://u:p@pg:6543/bz?sslmode=disable", false},
		{"unknown", DocStoreConfig{Type: "mongodb"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := tt.cfg.DSN()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}
