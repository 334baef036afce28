package upstream

import (
	"net"
	"net/http"
	"time"

	"github.com/any-hub/tarball-proxy/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置拨号/握手超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewClient 返回共享 http.Client。UPSTREAM_TIMEOUT 为 0 时不设置整体超时，
// 仅依赖 transport 自身的拨号与握手限制。
func NewClient(cfg *config.Config) *http.Client {
	var timeout time.Duration
	if cfg != nil && cfg.UpstreamTimeout.DurationValue() > 0 {
		timeout = cfg.UpstreamTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
