package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/any-hub/tarball-proxy/internal/archive"
)

// lruStore 限制条目数量，超出时淘汰最久未访问的包版本。
type lruStore struct {
	cache *lru.Cache[Key, *archive.FileTable]
}

func newLRUStore(size int) (*lruStore, error) {
	c, err := lru.New[Key, *archive.FileTable](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &lruStore{cache: c}, nil
}

func (s *lruStore) Get(key Key) (*archive.FileTable, bool) {
	return s.cache.Get(key)
}

func (s *lruStore) Put(key Key, table *archive.FileTable) {
	if table == nil {
		return
	}
	s.cache.Add(key, table)
}

func (s *lruStore) Len() int {
	return s.cache.Len()
}

func (s *lruStore) Policy() string {
	return PolicyLRU
}

// ttlStore 在写入 ttl 之后让条目失效；size 为 0 时不限制数量。
type ttlStore struct {
	cache *expirable.LRU[Key, *archive.FileTable]
}

func newTTLStore(size int, ttl time.Duration) *ttlStore {
	return &ttlStore{cache: expirable.NewLRU[Key, *archive.FileTable](size, nil, ttl)}
}

func (s *ttlStore) Get(key Key) (*archive.FileTable, bool) {
	return s.cache.Get(key)
}

func (s *ttlStore) Put(key Key, table *archive.FileTable) {
	if table == nil {
		return
	}
	s.cache.Add(key, table)
}

func (s *ttlStore) Len() int {
	return s.cache.Len()
}

func (s *ttlStore) Policy() string {
	return PolicyTTL
}
