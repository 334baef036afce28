package cache

import (
	"sync"
	"time"

	"github.com/any-hub/tarball-proxy/internal/archive"
)

// Key 唯一标识一个包版本，String() 与上游缓存键格式 name@version 一致。
type Key struct {
	Name    string
	Version string
}

func (k Key) String() string {
	return k.Name + "@" + k.Version
}

// Store 负责保存完整解包后的 FileTable，Put 必须整体替换旧值。
type Store interface {
	// Get 返回 key 对应的文件表；不存在（或已过期）时第二个返回值为 false。
	Get(key Key) (*archive.FileTable, bool)

	// Put 写入或替换 key 对应的文件表，nil 值会被忽略。
	Put(key Key, table *archive.FileTable)

	// Len 返回当前条目数量，供诊断接口输出。
	Len() int

	// Policy 返回当前策略名称：unbounded / lru / ttl。
	Policy() string
}

// Options 控制 NewStore 选择的容量/过期策略，零值即无界、永不过期。
type Options struct {
	MaxEntries int
	TTL        time.Duration
}

// NewStore 根据 Options 选择具体实现。
func NewStore(opts Options) (Store, error) {
	switch {
	case opts.TTL > 0:
		return newTTLStore(opts.MaxEntries, opts.TTL), nil
	case opts.MaxEntries > 0:
		return newLRUStore(opts.MaxEntries)
	default:
		return NewMemoryStore(), nil
	}
}

// MemoryStore 是基础实现：进程内 map，无容量上限，无过期。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]*archive.FileTable
}

// NewMemoryStore 创建无界内存缓存。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*archive.FileTable)}
}

func (s *MemoryStore) Get(key Key) (*archive.FileTable, bool) {
	s.mu.RLock()
	table, ok := s.entries[key]
	s.mu.RUnlock()
	return table, ok
}

func (s *MemoryStore) Put(key Key, table *archive.FileTable) {
	if table == nil {
		return
	}
	s.mu.Lock()
	s.entries[key] = table
	s.mu.Unlock()
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Policy() string {
	return PolicyUnbounded
}

// 策略名称常量，出现在启动日志与 /-/status 中。
const (
	PolicyUnbounded = "unbounded"
	PolicyLRU       = "lru"
	PolicyTTL       = "ttl"
)
