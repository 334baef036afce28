package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/tarball-proxy/internal/cache"
)

// RecordCounter 返回已持久化的访问记录数，由 accesslog.SQLiteStore 实现。
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatusSource 收集 /-/status 需要展示的运行时信息，Cache 为 nil 表示未启用缓存。
type StatusSource struct {
	Version          string
	RegistryHost     string
	Cache            cache.Store
	AccessLogEnabled bool
	AccessLog        RecordCounter
	Coalesce         bool
}

type statusPayload struct {
	Version      string        `json:"version"`
	RegistryHost string        `json:"registry_host"`
	Cache        cachePayload  `json:"cache"`
	AccessLog    accessPayload `json:"access_log"`
	Coalesce     bool          `json:"coalesce_fetches"`
}

type cachePayload struct {
	Enabled bool   `json:"enabled"`
	Policy  string `json:"policy,omitempty"`
	Entries int    `json:"entries"`
}

type accessPayload struct {
	Enabled bool   `json:"enabled"`
	Records *int64 `json:"records,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterStatusRoutes 暴露 /-/status 诊断接口，便于确认运行时装配的缓存与访问日志能力。
func RegisterStatusRoutes(app *fiber.App, src StatusSource) {
	if app == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return c.JSON(encodeStatus(ctx, src))
	})
}

func encodeStatus(ctx context.Context, src StatusSource) statusPayload {
	payload := statusPayload{
		Version:      src.Version,
		RegistryHost: src.RegistryHost,
		AccessLog:    accessPayload{Enabled: src.AccessLogEnabled},
		Coalesce:     src.Coalesce,
	}
	if src.AccessLog != nil {
		if n, err := src.AccessLog.Count(ctx); err != nil {
			payload.AccessLog.Error = "count_failed"
		} else {
			payload.AccessLog.Records = &n
		}
	}
	if src.Cache != nil {
		payload.Cache = cachePayload{
			Enabled: true,
			Policy:  src.Cache.Policy(),
			Entries: src.Cache.Len(),
		}
	}
	return payload
}
