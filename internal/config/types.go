package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// Config 汇总所有环境变量风格的配置项，键名与 .env / 进程环境变量保持一致。
type Config struct {
	RegistryURL string `mapstructure:"REGISTRY_URL"`
	Username    string `mapstructure:"USERNAME"`
	Password    string `mapstructure:"PASSWORD"`
	PublicURL   string `mapstructure:"URL"`
	Port        int    `mapstructure:"PORT"`

	UseCache        bool     `mapstructure:"USE_CACHE"`
	CacheMaxEntries int      `mapstructure:"CACHE_MAX_ENTRIES"`
	CacheTTL        Duration `mapstructure:"CACHE_TTL"`
	CoalesceFetches bool     `mapstructure:"COALESCE_FETCHES"`
	UpstreamTimeout Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	UseDB          bool   `mapstructure:"USE_DB"`
	DBPath         string `mapstructure:"DB_PATH"`
	AccessLogQueue int    `mapstructure:"ACCESS_LOG_QUEUE"`

	UseLogger     bool   `mapstructure:"USE_LOGGER"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFilePath   string `mapstructure:"LOG_FILE_PATH"`
	LogMaxSize    int    `mapstructure:"LOG_MAX_SIZE"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAge     int    `mapstructure:"LOG_MAX_AGE"`
	LogCompress   bool   `mapstructure:"LOG_COMPRESS"`
}

// HasCredentials 表示是否配置了完整的上游凭证，只填一半时视为匿名。
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (c *Config) AuthMode() string {
	if c.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}

// PartialCredentials 报告 USERNAME/PASSWORD 只设置了其中一个的情况。
func (c *Config) PartialCredentials() bool {
	return (c.Username == "") != (c.Password == "")
}

// ListenAddress 返回 Fiber 监听地址。
func (c *Config) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AdvertisedAddress 拼接对外展示的地址，例如 http://localhost:8081。
func (c *Config) AdvertisedAddress() string {
	base := strings.TrimSuffix(c.PublicURL, "/")
	if c.Port == 0 {
		return base
	}
	return fmt.Sprintf("%s:%d", base, c.Port)
}

// RegistryHost 返回上游 Host，解析失败时返回空串。
func (c *Config) RegistryHost() string {
	parsed, err := url.Parse(c.RegistryURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
