package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/tarball-proxy/internal/config"
)

func TestConsoleLoggerDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(&config.Config{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("USE_LOGGER 关闭时应输出到 stdout")
	}
	if _, ok := logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("控制台模式应使用文本格式，得到 %T", logger.Formatter)
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := InitLogger(&config.Config{LogLevel: "chatty"}); err == nil {
		t.Fatalf("未知日志级别应返回错误")
	}
}

func TestInitLoggerFallbackOnPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 用户不受目录权限限制")
	}
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.Chmod(blocked, 0o000); err != nil {
		t.Fatalf("设置目录权限失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	cfg := &config.Config{
		LogLevel:    "info",
		UseLogger:   true,
		LogFilePath: filepath.Join(blocked, "sub", "application.log"),
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("初始化不应失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("fallback 时应退回 stdout")
	}
}

func TestRotatingLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "application.log")
	cfg := &config.Config{
		LogLevel:    "debug",
		UseLogger:   true,
		LogFilePath: path,
		LogMaxSize:  20,
		LogMaxAge:   14,
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("USE_LOGGER 模式应使用 JSON 格式，得到 %T", logger.Formatter)
	}
	logger.Info("test")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields("left-pad", "1.3.0", "index.js", true)
	if fields["package"] != "left-pad" || fields["version"] != "1.3.0" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if hit, _ := fields["cache_hit"].(bool); !hit {
		t.Fatalf("cache_hit 字段应为 true")
	}
}
