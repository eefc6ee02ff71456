package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CRM_APP_NAME", "CRM_APP_ENV", "CRM_APP_PORT",
	"CRM_DATABASE_DRIVER", "CRM_DATABASE_HOST", "CRM_DATABASE_PORT", "CRM_DATABASE_PASSWORD",
	"CRM_DATABASE_SSLMODE", "CRM_DATABASE_MAX_OPEN_CONNS", "CRM_DATABASE_MAX_IDLE_CONNS",
	"CRM_BACKEND_MODE", "CRM_BACKEND_BASE_URL", "CRM_BACKEND_PROJECT_ID", "CRM_BACKEND_TIMEOUT",
	"CRM_REDIS_ENABLED", "CRM_REDIS_CACHE_TTL",
	"CRM_JWT_SECRET", "CRM_AUTH_ENABLED", "CRM_STORAGE_ENABLED",
}

// clearConfigEnv unsets every CRM_ variable the tests touch and restores them afterwards
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		if orig, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearConfigEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "hubcrm-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, BackendLocal, cfg.Backend.Mode)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "hubcrm", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, "hubcrm-backend", cfg.Telemetry.ServiceName)
		assert.Equal(t, 60*time.Second, cfg.Telemetry.MetricsExportInterval)
		assert.False(t, cfg.Profiling.Enabled)
		assert.Equal(t, "hubcrm-backend", cfg.Profiling.ApplicationName)
	})

	t.Run("loads values from environment variables with CRM prefix", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("CRM_APP_NAME", "test-crm")
		os.Setenv("CRM_APP_PORT", "9000")
		os.Setenv("CRM_DATABASE_HOST", "testdb.local")
		os.Setenv("CRM_DATABASE_PORT", "5433")
		os.Setenv("CRM_REDIS_ENABLED", "true")
		os.Setenv("CRM_REDIS_CACHE_TTL", "30s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-crm", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	})

	t.Run("remote mode requires base url and project id", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("CRM_BACKEND_MODE", "remote")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.base_url")

		os.Setenv("CRM_BACKEND_BASE_URL", "https://api.example.com/v1")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.project_id")

		os.Setenv("CRM_BACKEND_PROJECT_ID", "proj-1")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, BackendRemote, cfg.Backend.Mode)
	})

	t.Run("rejects unknown backend mode", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("CRM_BACKEND_MODE", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.mode")
	})

	t.Run("auth requires a jwt secret", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("CRM_AUTH_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("idle connections cannot exceed open connections", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("CRM_DATABASE_MAX_OPEN_CONNS", "5")
		os.Setenv("CRM_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "auth must be enabled",
			env:     map[string]string{"CRM_APP_ENV": "production"},
			wantErr: "auth.enabled",
		},
		{
			name: "short jwt secret",
			env: map[string]string{
				"CRM_APP_ENV":      "production",
				"CRM_AUTH_ENABLED": "true",
				"CRM_JWT_SECRET":   "short",
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "ssl disabled",
			env: map[string]string{
				"CRM_APP_ENV":      "production",
				"CRM_AUTH_ENABLED": "true",
				"CRM_JWT_SECRET":   "0123456789abcdef0123456789abcdef",
			},
			wantErr: "sslmode",
		},
		{
			name: "valid production config",
			env: map[string]string{
				"CRM_APP_ENV":          "production",
				"CRM_AUTH_ENABLED":     "true",
				"CRM_JWT_SECRET":       "0123456789abcdef0123456789abcdef",
				"CRM_DATABASE_SSLMODE": "require",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "db.local",
		Port:     5432,
		User:     "crm",
		Password: "pass@word#123",
		DBName:   "hubcrm",
		SSLMode:  "disable",
	}
	dsn := pg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.local:5432")
	assert.Contains(t, dsn, "pass%40word%23123")
	assert.Contains(t, dsn, "sslmode=disable")

	lite := DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/crm.db"}
	assert.Equal(t, "/tmp/crm.db", lite.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
