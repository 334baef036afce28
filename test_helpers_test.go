package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

var repoRoot string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			repoRoot = dir
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func projectRoot(t *testing.T) string {
	t.Helper()
	if repoRoot == "" {
		t.Fatal("无法定位项目根目录")
	}
	return repoRoot
}

func configFixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "internal", "config", "testdata", name)
}

// clearConfigEnv 清空可能影响 config.Load 的进程环境变量。
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REGISTRY_URL", "USERNAME", "PASSWORD", "URL", "PORT",
		"USE_CACHE", "CACHE_MAX_ENTRIES", "CACHE_TTL", "COALESCE_FETCHES", "UPSTREAM_TIMEOUT",
		"USE_DB", "DB_PATH", "ACCESS_LOG_QUEUE",
		"USE_LOGGER", "LOG_LEVEL", "LOG_FILE_PATH", "LOG_MAX_SIZE", "LOG_MAX_BACKUPS", "LOG_MAX_AGE", "LOG_COMPRESS",
		configEnvKey,
	} {
		t.Setenv(key, "")
	}
}

// cliOutput 保存测试期间 tarball-proxy 写往 stdout/stderr 的内容。
type cliOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// captureCLIOutput 把 stdOut/stdErr 换成内存缓冲，版本信息与配置错误可直接断言，测试结束后恢复。
func captureCLIOutput(t *testing.T) *cliOutput {
	t.Helper()
	out := &cliOutput{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = &out.stdout, &out.stderr
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return out
}
