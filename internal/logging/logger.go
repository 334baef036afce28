package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/any-hub/tarball-proxy/internal/config"
)

// consoleTimestampFormat 对齐控制台纯文本输出的 ISO 时间格式。
const consoleTimestampFormat = time.RFC3339Nano

// InitLogger 根据配置初始化日志：USE_LOGGER 关闭时输出纯文本到 stdout，
// 开启时输出 JSON 结构化日志到控制台 + 滚动文件。
func InitLogger(cfg *config.Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	var outErr error
	if cfg.UseLogger {
		var output io.Writer
		output, outErr = buildOutput(cfg)
		if outErr != nil {
			fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
		}
		logger.SetOutput(output)
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: consoleTimestampFormat,
			DisableColors:   true,
		})
	}

	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// buildOutput 创建控制台 + 滚动文件的组合 Writer；目录不可用时降级到 stdout 并返回错误。
func buildOutput(cfg *config.Config) (io.Writer, error) {
	dir := filepath.Dir(cfg.LogFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}
	return io.MultiWriter(os.Stdout, rotator), nil
}
