package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mautops/governance-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path string, port int) {
	t.Helper()
	content := fmt.Sprintf(`
server:
  host: "0.0.0.0"
  port: %d
log:
  level: "info"
`, port)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// TestConfigWatcherReload 测试文件变更触发回调并携带重新加载后的配置
func TestConfigWatcherReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, configPath, 8080)

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)

	watcher := config.NewConfigWatcher(cfg, configPath)
	var mu sync.Mutex
	var reloaded *config.Config
	watcher.OnConfigChange(func(newCfg *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = newCfg
	})

	require.NoError(t, watcher.Start())
	defer watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, configPath, 9090)
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	newCfg := reloaded
	mu.Unlock()
	require.NotNil(t, newCfg, "config change callback should be called")
	assert.Equal(t, 9090, newCfg.Server.Port)
	// 重新加载走完整流程,文件未覆盖的键仍有默认值
	assert.Equal(t, "governance", newCfg.Database.DBName)
	assert.Equal(t, 9090, watcher.GetConfig().Server.Port)
}

// TestConfigWatcherStop 测试停止后不再触发回调
func TestConfigWatcherStop(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, configPath, 8080)

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	watcher := config.NewConfigWatcher(cfg, configPath)
	var mu sync.Mutex
	called := false
	watcher.OnConfigChange(func(*config.Config) {
		mu.Lock()
		defer mu.Unlock()
		called = true
	})

	require.NoError(t, watcher.Start())
	watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeConfigFile(t, configPath, 9090)
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	wasCalled := called
	mu.Unlock()
	assert.False(t, wasCalled, "callback should not fire after stop")
}
