package proxy

import (
	"context"
	"errors"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/tarball-proxy/internal/logging"
	"github.com/any-hub/tarball-proxy/internal/server"
)

const (
	bodyNotFound      = "Not Found"
	bodyFileNotFound  = "File not found"
	bodyFetchFailed   = "Error fetching package"
	headerCacheHit    = "X-Tarball-Proxy-Cache-Hit"
	headerDisposition = "Content-Disposition"
)

// Resolver 由 Service 实现，Handler 只依赖该接口便于测试替换。
type Resolver interface {
	ResolveFile(ctx context.Context, name, version, entryPath string) (*File, error)
}

// Handler 把 GET /<name>@<version>/<path> 映射到 Resolver，并输出结构化访问日志。
type Handler struct {
	resolver Resolver
	logger   logrus.FieldLogger
}

var _ server.ProxyHandler = (*Handler)(nil)

// NewHandler constructs a proxy handler around the shared resolver/logger.
func NewHandler(resolver Resolver, logger logrus.FieldLogger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Handle 解析请求路径、调用 Resolver 并写回文件内容，错误详情只进日志。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)

	// c.Path() 引用 Fiber 复用的请求缓冲区，包名会作为缓存键和访问记录长期保留，先复制。
	rawPath := strings.Clone(c.Path())
	name, version, entryPath, ok := ParseRequestPath(rawPath)
	if !ok {
		h.logger.WithFields(logrus.Fields{
			"action":     "proxy",
			"path":       rawPath,
			"request_id": requestID,
		}).Warn("proxy_path_invalid")
		return writeText(c, fiber.StatusNotFound, bodyNotFound)
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := h.resolver.ResolveFile(ctx, name, version, entryPath)
	if err != nil {
		status, body := statusFor(err)
		h.logResult(name, version, entryPath, requestID, status, false, started, err)
		return writeText(c, status, body)
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(headerDisposition, contentDisposition(entryPath))
	c.Set(headerCacheHit, strconv.FormatBool(file.CacheHit))
	c.Status(fiber.StatusOK)
	h.logResult(name, version, entryPath, requestID, fiber.StatusOK, file.CacheHit, started, nil)
	return c.Send(file.Content)
}

func statusFor(err error) (int, string) {
	if errors.Is(err, ErrFileNotFound) {
		return fiber.StatusNotFound, bodyFileNotFound
	}
	return fiber.StatusInternalServerError, bodyFetchFailed
}

func writeText(c fiber.Ctx, status int, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(body)
}

func contentDisposition(entryPath string) string {
	filename := path.Base(entryPath)
	filename = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(filename)
	return `inline; filename="` + filename + `"`
}

func (h *Handler) logResult(
	name, version, entryPath, requestID string,
	status int,
	cacheHit bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(name, version, entryPath, cacheHit)
	fields["action"] = "proxy"
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		if status == fiber.StatusNotFound {
			h.logger.WithFields(fields).Warn("proxy_file_not_found")
			return
		}
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}
