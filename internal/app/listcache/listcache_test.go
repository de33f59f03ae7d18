package listcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/cinelist/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type counter struct {
	calls  int
	result []domain.ListingEntry
	err    error
}

func (c *counter) fetch(context.Context) ([]domain.ListingEntry, error) {
	c.calls++
	return c.result, c.err
}

var movies = []domain.ListingEntry{
	{Title: "Jailer", ThumbnailURL: "https://img.test/1.jpg", DetailURL: "https://einthusan.tv/movie/watch/a/"},
	{Title: "Leo", ThumbnailURL: "https://img.test/2.jpg", DetailURL: "https://einthusan.tv/movie/watch/b/"},
}

func newCache() (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(time.Hour, WithClock(clk.Now)), clk
}

func TestGetOrFetch_HitWithinTTL(t *testing.T) {
	c, clk := newCache()
	f := &counter{result: movies}
	ctx := context.Background()

	got, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, movies, got)

	clk.Advance(59 * time.Minute)
	got, err = c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, movies, got)
	assert.Equal(t, 1, f.calls, "TTL 内应命中缓存")
}

func TestGetOrFetch_ExpiresAtTTL(t *testing.T) {
	c, clk := newCache()
	f := &counter{result: movies}
	ctx := context.Background()

	_, err := c.GetOrFetch(ctx, domain.Tamil, 2, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = c.GetOrFetch(ctx, domain.Tamil, 2, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "恰好到达 TTL 时应重新抓取")
}

func TestGetOrFetch_OnlyPopularFirstTwoPages(t *testing.T) {
	c, _ := newCache()
	ctx := context.Background()

	shapes := []struct {
		cat  domain.Category
		page int
	}{
		{domain.CategoryRecent, 1},
		{domain.CategoryRecent, 2},
		{domain.CategoryPopular, 3},
		{domain.CategoryPopular, 0},
	}
	for _, s := range shapes {
		f := &counter{result: movies}
		for i := 0; i < 2; i++ {
			_, err := c.GetOrFetch(ctx, domain.Hindi, s.page, s.cat, f.fetch)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, f.calls, "形状 %s/%d 不应被缓存", s.cat, s.page)
	}
	assert.Equal(t, 0, c.Len())
}

func TestGetOrFetch_NeverStoresEmptyOrError(t *testing.T) {
	c, _ := newCache()
	ctx := context.Background()

	empty := &counter{result: []domain.ListingEntry{}}
	for i := 0; i < 2; i++ {
		got, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, empty.fetch)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 2, empty.calls)

	boom := errors.New("boom")
	failing := &counter{err: boom}
	_, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, failing.fetch)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// 之前的空结果/错误不能遮住之后的成功抓取。
	ok := &counter{result: movies}
	got, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, ok.fetch)
	require.NoError(t, err)
	assert.Equal(t, movies, got)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrFetch_KeysAreIndependent(t *testing.T) {
	c, _ := newCache()
	ctx := context.Background()

	a := &counter{result: movies[:1]}
	b := &counter{result: movies[1:]}
	_, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, a.fetch)
	require.NoError(t, err)
	got, err := c.GetOrFetch(ctx, domain.Telugu, 1, domain.CategoryPopular, b.fetch)
	require.NoError(t, err)
	assert.Equal(t, movies[1:], got)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrFetch_ReturnsCopies(t *testing.T) {
	c, _ := newCache()
	ctx := context.Background()
	src := append([]domain.ListingEntry(nil), movies...)
	f := &counter{result: src}

	first, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)
	first[0].Title = "mutated"
	src[1].Title = "mutated too"

	second, err := c.GetOrFetch(ctx, domain.Tamil, 1, domain.CategoryPopular, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, movies, second)
}

func TestGetOrFetch_ConcurrentAccess(t *testing.T) {
	c := New(0)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			got, err := c.GetOrFetch(ctx, domain.Tamil, page, domain.CategoryPopular, func(context.Context) ([]domain.ListingEntry, error) {
				return movies, nil
			})
			assert.NoError(t, err)
			assert.Len(t, got, len(movies))
		}(1 + i%2)
	}
	wg.Wait()
	assert.Equal(t, 2, c.Len())
}
