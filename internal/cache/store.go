package cache

import (
	"sort"
	"sync"
	"time"
)

// Store 负责管理渲染产物的内存缓存，生命周期与所属站点一致，不做淘汰。
type Store interface {
	// Has 判断 key 是否已有缓存条目。
	Has(key string) bool

	// Get 返回 key 对应的条目；不存在时第二个返回值为 false。
	Get(key string) (Entry, bool)

	// Put 以当前时钟为 StoredAt 写入新条目，整体替换旧值并返回写入结果。
	Put(key string, data []byte) Entry

	// Snapshot 返回按 key 排序的条目副本，供诊断接口使用。
	Snapshot() []Entry
}

// Entry 表示一次成功编译后写入的产物。
type Entry struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Data     []byte    `json:"-"`
}

// SizeBytes 返回产物大小。
func (e Entry) SizeBytes() int {
	return len(e.Data)
}

// NewStore 构建默认使用 time.Now 打时间戳的内存缓存。
func NewStore() Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock 允许注入时钟，测试中用来精确控制 StoredAt。
func NewStoreWithClock(now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		entries: make(map[string]Entry),
		now:     now,
	}
}

// memoryStore 用读写锁保护 map；单个 key 的写入是一次整体替换，不存在半写状态。
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func (s *memoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok
}

func (s *memoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok
}

func (s *memoryStore) Put(key string, data []byte) Entry {
	entry := Entry{
		Key:      key,
		StoredAt: s.now(),
		Data:     data,
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return entry
}

func (s *memoryStore) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil
	}

	result := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}
