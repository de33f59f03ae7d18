package cache

import (
	"errors"
	"fmt"
	"hash/maphash"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultShards 是默认分片数。分片只用于降低锁竞争，不影响容量语义。
	DefaultShards = 8
)

var ErrCapacity = errors.New("cache: capacity 必须 > 0")

// Store 是进程内、有界、按 key 做 LRU 淘汰的并发安全缓存。
//
// 约束：
// - key 按 hash 分到固定分片；每个分片独立加锁（golang-lru 内部锁），不存在全局大锁
// - 总容量 ≈ capacity（向上取整到分片数的倍数）
// - 生命周期由调用方持有（显式注入），不做包级全局变量
type Store[V any] struct {
	seed   maphash.Seed
	shards []*lru.Cache[string, V]
}

// New 构造容量为 capacity 的分片 LRU。shards<=0 时使用 DefaultShards。
func New[V any](capacity, shards int) (*Store[V], error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	if shards <= 0 {
		shards = DefaultShards
	}
	if shards > capacity {
		shards = capacity
	}
	per := (capacity + shards - 1) / shards

	s := &Store[V]{
		seed:   maphash.MakeSeed(),
		shards: make([]*lru.Cache[string, V], shards),
	}
	for i := range s.shards {
		c, err := lru.New[string, V](per)
		if err != nil {
			return nil, fmt.Errorf("cache: 初始化分片失败：%w", err)
		}
		s.shards[i] = c
	}
	return s, nil
}

func (s *Store[V]) shard(key string) *lru.Cache[string, V] {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	return s.shards[maphash.String(s.seed, key)%uint64(len(s.shards))]
}

func (s *Store[V]) Get(key string) (V, bool) {
	return s.shard(key).Get(key)
}

// Add 写入或覆盖 key；分片已满时淘汰该分片最久未使用的条目。
func (s *Store[V]) Add(key string, v V) {
	s.shard(key).Add(key, v)
}

// Len 返回当前条目数（各分片之和，非原子快照）。
func (s *Store[V]) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}
