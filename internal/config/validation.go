package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if err := validateRegistry(c.RegistryURL); err != nil {
		return wrapFieldError("REGISTRY_URL", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return newFieldError("PORT", "必须在 1-65535")
	}
	if c.CacheMaxEntries < 0 {
		return newFieldError("CACHE_MAX_ENTRIES", "不能为负数")
	}
	if c.UpstreamTimeout.DurationValue() < 0 {
		return newFieldError("UPSTREAM_TIMEOUT", "不能为负数")
	}
	if c.UseDB && strings.TrimSpace(c.DBPath) == "" {
		return newFieldError("DB_PATH", "USE_DB 开启时不能为空")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LOG_LEVEL", fmt.Sprintf("无法解析日志级别 %q", c.LogLevel))
	}
	if c.UseLogger && strings.TrimSpace(c.LogFilePath) == "" {
		return newFieldError("LOG_FILE_PATH", "USE_LOGGER 开启时不能为空")
	}
	if c.LogMaxSize < 0 || c.LogMaxBackups < 0 || c.LogMaxAge < 0 {
		return newFieldError("LOG_MAX_*", "不能为负数")
	}
	return nil
}

func validateRegistry(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
