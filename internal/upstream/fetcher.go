package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultUserAgent = "tarball-proxy"

// FetcherOptions 描述上游 registry 的地址与可选的 Basic Auth 凭证。
type FetcherOptions struct {
	BaseURL   string
	Username  string
	Password  string
	UserAgent string
}

// Fetcher 从 registry 下载 tarball 原始字节，不做重试。
type Fetcher struct {
	client    *http.Client
	baseURL   string
	username  string
	password  string
	userAgent string
}

// NewFetcher 构造 Fetcher，BaseURL 需以 / 结尾（config.Load 已保证）。
func NewFetcher(client *http.Client, opts FetcherOptions) *Fetcher {
	if client == nil {
		client = NewClient(nil)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{
		client:    client,
		baseURL:   opts.BaseURL,
		username:  opts.Username,
		password:  opts.Password,
		userAgent: ua,
	}
}

// TarballURL 按 registry 约定拼接地址：{base}{name}/-/{basename}-{version}.tgz。
// scoped 包（@scope/name）的文件名只使用 name 部分。
func (f *Fetcher) TarballURL(name, version string) string {
	base := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 && strings.HasPrefix(name, "@") {
		base = name[idx+1:]
	}
	return fmt.Sprintf("%s%s/-/%s-%s.tgz", f.baseURL, name, base, version)
}

// Fetch 发起单次 GET，并把完整正文作为不透明二进制返回。
func (f *Fetcher) Fetch(ctx context.Context, name, version string) ([]byte, error) {
	target := f.TarballURL(name, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", f.userAgent)
	if f.username != "" && f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 读一小段正文便于日志排查，避免把超大错误页读入内存。
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}
