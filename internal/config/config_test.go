package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mautops/governance-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig 测试默认配置
func TestDefaultConfig(t *testing.T) {
	cfg := config.Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "governance", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "http://localhost:8090", cfg.Board.APIURL)
	assert.Equal(t, "./backups", cfg.Backup.Dir)
	assert.Equal(t, 0, cfg.Backup.Interval)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "governance-gin", cfg.Tracing.ServiceName)
	assert.Empty(t, cfg.Auth.TokenSecret)
}

// TestLoadFromFile 测试从配置文件加载
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9090
database:
  dbname: governance_test
auth:
  token_secret: s3cret
backup:
  interval: 24
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "governance_test", cfg.Database.DBName)
	assert.Equal(t, "s3cret", cfg.Auth.TokenSecret)
	assert.Equal(t, 24, cfg.Backup.Interval)

	// 未覆盖的字段保留默认值
	assert.Equal(t, 5432, cfg.Database.Port)
}

// TestLoadMissingFile 测试指定的配置文件不存在时报错
func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestLoadFromEnv 测试环境变量覆盖
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "18080")
	t.Setenv("APP_DATABASE_HOST", "db.internal")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

// TestIsProduction 测试环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.False(t, config.IsProduction(&config.Config{Env: "development"}))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
}
