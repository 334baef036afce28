package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultConfigFile 是未显式指定时尝试读取的 dotenv 文件。
const DefaultConfigFile = ".env"

// DefaultRegistryURL 是公共 npm registry 根地址。
const DefaultRegistryURL = "https://registry.npmjs.org/"

var configKeys = []string{
	"REGISTRY_URL", "USERNAME", "PASSWORD", "URL", "PORT",
	"USE_CACHE", "CACHE_MAX_ENTRIES", "CACHE_TTL", "COALESCE_FETCHES", "UPSTREAM_TIMEOUT",
	"USE_DB", "DB_PATH", "ACCESS_LOG_QUEUE",
	"USE_LOGGER", "LOG_LEVEL", "LOG_FILE_PATH", "LOG_MAX_SIZE", "LOG_MAX_BACKUPS", "LOG_MAX_AGE", "LOG_COMPRESS",
}

// Load 读取 dotenv 文件与进程环境变量，环境变量优先，随后注入默认值并校验。
// path 为空时读取 ./.env，文件不存在不视为错误；显式指定的文件缺失则直接失败。
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	v := viper.New()
	setDefaults(v)
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if err := readConfigFile(v, path, explicit); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("读取配置失败: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("REGISTRY_URL", DefaultRegistryURL)
	v.SetDefault("USERNAME", "")
	v.SetDefault("PASSWORD", "")
	v.SetDefault("URL", "http://localhost")
	v.SetDefault("PORT", 8081)
	v.SetDefault("USE_CACHE", false)
	v.SetDefault("CACHE_MAX_ENTRIES", 0)
	v.SetDefault("CACHE_TTL", "0")
	v.SetDefault("COALESCE_FETCHES", false)
	v.SetDefault("UPSTREAM_TIMEOUT", "0")
	v.SetDefault("USE_DB", false)
	v.SetDefault("DB_PATH", "database/access_log.db")
	v.SetDefault("ACCESS_LOG_QUEUE", 256)
	v.SetDefault("USE_LOGGER", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_PATH", "logs/application.log")
	v.SetDefault("LOG_MAX_SIZE", 20)
	v.SetDefault("LOG_MAX_BACKUPS", 0)
	v.SetDefault("LOG_MAX_AGE", 14)
	v.SetDefault("LOG_COMPRESS", true)
}

func applyDefaults(c *Config) {
	c.RegistryURL = strings.TrimSpace(c.RegistryURL)
	if c.RegistryURL == "" {
		c.RegistryURL = DefaultRegistryURL
	}
	// 拼接 tarball 地址时直接追加包名，因此根地址必须以 / 结尾。
	if !strings.HasSuffix(c.RegistryURL, "/") {
		c.RegistryURL += "/"
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost"
	}
	if c.Port == 0 {
		c.Port = 8081
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AccessLogQueue <= 0 {
		c.AccessLogQueue = 256
	}
	if c.CacheTTL.DurationValue() < 0 {
		c.CacheTTL = Duration(0)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
