package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/cinelist/internal/infra/cache"
)

const (
	// MaxBodyBytes 是单页响应体上限；超出部分被截断（列表/详情页远小于该值）。
	MaxBodyBytes = 8 << 20
	// DefaultMemoSize 是页面 memo 的默认容量（条目数）。
	DefaultMemoSize = 128
	// MaxMemoPageBytes 是可进入 memo 的单页上限；更大的页面照常返回但不 memo。
	// memo 的内存上界因此是 DefaultMemoSize * MaxMemoPageBytes（64 MiB）。
	MaxMemoPageBytes = 512 << 10
)

type noMemoKey struct{}

// NoMemo 标记 ctx：用它发起的 Fetch 既不读也不写页面 memo。
// 列表/搜索页有自己的 TTL 缓存，必须每次都能打到上游。
func NoMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, noMemoKey{}, true)
}

func memoAllowed(ctx context.Context) bool {
	skip, _ := ctx.Value(noMemoKey{}).(bool)
	return !skip
}

// Kind 是抓取失败的分类。
type Kind string

const (
	KindInvalidURL Kind = "invalid_url"
	KindTransport  Kind = "transport"
	KindTimeout    Kind = "timeout"
	KindStatus     Kind = "status"
)

// Error 表示一次抓取失败。调用方用 errors.As 取出 Kind/StatusCode 做分类。
type Error struct {
	URL        string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "fetch error"
	}
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s：HTTP %d", e.URL, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s：%s：%v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s：%s", e.URL, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher 取回一个页面的原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client 是基于共享 *http.Client 的 Fetcher，成功的响应按 URL 原文 memo。
//
// 约束：
// - 网络策略（UA/超时/重试/限速/代理）全部在 http.Client 的 Transport 内，这里只管“取字节 + 分类错误”
// - 失败永远不写入 memo；下一次调用会重新请求
type Client struct {
	http  *http.Client
	pages *cache.Store[[]byte]
	log   *slog.Logger
}

// Option 调整 Client 的可选行为。
type Option func(*Client)

// WithMemo 设置页面 memo；传 nil 表示不 memo。
func WithMemo(s *cache.Store[[]byte]) Option {
	return func(c *Client) { c.pages = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{http: hc, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "fetch")
	return c
}

// Fetch 发起一次 GET；非 2xx、超时与传输错误都以 *Error 返回。
// 返回的切片由 memo 共享，调用方不得修改。
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	memo := c.pages != nil && memoAllowed(ctx)
	if memo {
		if b, ok := c.pages.Get(rawURL); ok {
			c.log.Debug("page memo hit", "url", rawURL)
			return b, nil
		}
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("必须是 http/https 绝对地址")
		}
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(&Error{URL: rawURL, Kind: classify(err), Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, c.fail(&Error{URL: rawURL, Kind: KindStatus, StatusCode: resp.StatusCode})
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, c.fail(&Error{URL: rawURL, Kind: classify(err), Err: err})
	}
	if memo && len(b) <= MaxMemoPageBytes {
		c.pages.Add(rawURL, b)
	}
	return b, nil
}

func (c *Client) fail(e *Error) error {
	c.log.Warn("fetch failed", "url", e.URL, "kind", string(e.Kind), "status", e.StatusCode, "err", e.Err)
	return e
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

// KindOf 返回 err 链上的 *Error 分类；不是抓取错误时返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
