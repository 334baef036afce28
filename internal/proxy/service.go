package proxy

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/tarball-proxy/internal/accesslog"
	"github.com/any-hub/tarball-proxy/internal/archive"
	"github.com/any-hub/tarball-proxy/internal/cache"
)

// packageRoot 是 registry tarball 内所有条目共有的根目录。
const packageRoot = "package/"

// Fetcher 下载指定包版本的 tarball 原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, name, version string) ([]byte, error)
}

// Extractor 把 tarball 字节解包为只读文件表。
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*archive.FileTable, error)
}

// ServiceOptions 汇总 Service 依赖，Cache 为 nil 表示关闭缓存。
type ServiceOptions struct {
	Fetcher   Fetcher
	Extractor Extractor
	Cache     cache.Store
	Recorder  accesslog.Recorder
	Logger    logrus.FieldLogger
	Coalesce  bool
}

// File 是一次解析的结果。
type File struct {
	Name        string
	Version     string
	Path        string
	Content     []byte
	ContentType string
	CacheHit    bool
}

// Service 负责 “查缓存 → 回源 → 解包 → 查找文件 → 写缓存” 的编排。
type Service struct {
	fetcher   Fetcher
	extractor Extractor
	cache     cache.Store
	recorder  accesslog.Recorder
	logger    logrus.FieldLogger
	group     *singleflight.Group
}

// NewService constructs a Service; Fetcher and Extractor are required.
func NewService(opts ServiceOptions) *Service {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = accesslog.NopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		logger = silent
	}
	svc := &Service{
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		cache:     opts.Cache,
		recorder:  recorder,
		logger:    logger,
	}
	if opts.Coalesce {
		svc.group = &singleflight.Group{}
	}
	return svc
}

// CachingEnabled 报告是否配置了缓存。
func (s *Service) CachingEnabled() bool {
	return s.cache != nil
}

// ResolveFile 返回 name@version 包中 entryPath 对应的文件内容。
func (s *Service) ResolveFile(ctx context.Context, name, version, entryPath string) (*File, error) {
	key := cache.Key{Name: name, Version: version}
	candidates := lookupCandidates(entryPath)

	if s.cache != nil {
		if table, ok := s.cache.Get(key); ok {
			if content, ok := lookup(table, candidates); ok {
				return newFile(key, entryPath, content, true), nil
			}
			// 缓存中缺少该路径时继续回源，而不是直接返回 404。
			s.logger.WithFields(logrus.Fields{
				"action":  "cache_lookup",
				"key":     key.String(),
				"path":    entryPath,
				"entries": table.Len(),
			}).Debug("cache_path_missing")
		}
	}

	table, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	content, ok := lookup(table, candidates)
	if !ok {
		return nil, ErrFileNotFound
	}

	if s.cache != nil {
		s.cache.Put(key, table)
	}
	s.recorder.Record(name, version)

	return newFile(key, entryPath, content, false), nil
}

func (s *Service) load(ctx context.Context, key cache.Key) (*archive.FileTable, error) {
	if s.group == nil {
		return s.fetchAndExtract(ctx, key)
	}
	value, err, shared := s.group.Do(key.String(), func() (interface{}, error) {
		return s.fetchAndExtract(ctx, key)
	})
	if shared {
		s.logger.WithFields(logrus.Fields{"action": "fetch", "key": key.String()}).Debug("fetch_coalesced")
	}
	if err != nil {
		return nil, err
	}
	return value.(*archive.FileTable), nil
}

func (s *Service) fetchAndExtract(ctx context.Context, key cache.Key) (*archive.FileTable, error) {
	started := time.Now()
	data, err := s.fetcher.Fetch(ctx, key.Name, key.Version)
	if err != nil {
		return nil, &ResolveError{Op: opFetch, Key: key.String(), Err: err}
	}

	table, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, &ResolveError{Op: opExtract, Key: key.String(), Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"action":     "fetch",
		"key":        key.String(),
		"bytes":      len(data),
		"entries":    table.Len(),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Debug("tarball_extracted")
	return table, nil
}

func lookupCandidates(entryPath string) []string {
	candidates := []string{packageRoot + entryPath}
	if strings.HasPrefix(entryPath, packageRoot) {
		candidates = append(candidates, entryPath)
	}
	return candidates
}

func lookup(table *archive.FileTable, candidates []string) ([]byte, bool) {
	for _, candidate := range candidates {
		if content, ok := table.Lookup(candidate); ok {
			return content, true
		}
	}
	return nil, false
}

func newFile(key cache.Key, entryPath string, content []byte, hit bool) *File {
	return &File{
		Name:        key.Name,
		Version:     key.Version,
		Path:        entryPath,
		Content:     content,
		ContentType: ContentTypeFor(entryPath),
		CacheHit:    hit,
	}
}
