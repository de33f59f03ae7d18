package listcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/John-Robertt/cinelist/internal/domain"
)

// DefaultTTL 是条目的有效期。
const DefaultTTL = time.Hour

// FetchFunc 在未命中时取回列表。
type FetchFunc func(ctx context.Context) ([]domain.ListingEntry, error)

// Entry 是一条缓存记录。
type Entry struct {
	Entries   []domain.ListingEntry
	FetchedAt time.Time
}

// Cache 是“热门列表前两页”的进程内 TTL 缓存。
//
// 约束：
// - 只缓存 category=popular 且 page∈{1,2}；其他形状直接穿透
// - 空结果与错误永不写入（空结果视为上游抖动，不能遮住之后的成功抓取）
// - 不做 single-flight：并发未命中可能各自抓取一次，结果等价
// - 写入与读出都做拷贝，调用方修改返回值不影响缓存
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

type Option func(*Cache)

// WithClock 注入时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New 构造 Cache。ttl<=0 时使用 DefaultTTL。
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now, entries: map[string]Entry{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Cacheable 判断某个请求形状是否走缓存。
func Cacheable(cat domain.Category, page int) bool {
	return cat == domain.CategoryPopular && (page == 1 || page == 2)
}

func key(lang domain.Language, page int, cat domain.Category) string {
	return fmt.Sprintf("%s_%s_%d", lang, cat, page)
}

// GetOrFetch 命中且未过期时返回缓存副本；否则调用 fetch，并在结果非空时写入。
func (c *Cache) GetOrFetch(ctx context.Context, lang domain.Language, page int, cat domain.Category, fetch FetchFunc) ([]domain.ListingEntry, error) {
	if !Cacheable(cat, page) {
		return fetch(ctx)
	}
	k := key(lang, page, cat)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.FetchedAt) < c.ttl {
		return clone(e.Entries), nil
	}

	out, err := fetch(ctx)
	if err != nil || len(out) == 0 {
		return out, err
	}

	c.mu.Lock()
	c.entries[k] = Entry{Entries: clone(out), FetchedAt: c.now()}
	c.mu.Unlock()
	return out, nil
}

// Len 返回当前记录数（含已过期但尚未被覆盖的记录）。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clone(in []domain.ListingEntry) []domain.ListingEntry {
	return append([]domain.ListingEntry(nil), in...)
}
