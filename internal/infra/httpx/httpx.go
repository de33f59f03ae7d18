package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 8 * time.Second
	DefaultRetryMax = 1

	// DefaultUserAgent 是共享身份；站点对 UA 敏感时可在 site profile 中覆盖。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	retryDelay = 150 * time.Millisecond
)

// Transport 把“固定 UA + 出站限速 + 有界重试 + 代理”固化为统一策略。
//
// 设计目标：抓取与解析只关心“页面字节”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 1 表示最多 2 次尝试。
	// 只重试传输层错误；非 2xx 状态码由上层判定，不在这里重试。
	RetryMax int

	// Limiter 为 nil 时不限速。
	Limiter *rate.Limiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	ctx := req.Context()
	var resp *http.Response
	err := retry.Do(
		func() error {
			if t.Limiter != nil {
				if err := t.Limiter.Wait(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
			r := req.Clone(ctx)
			if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
				r.Header.Set("User-Agent", t.UserAgent)
			}
			res, err := t.Base.RoundTrip(r)
			if err != nil {
				return err
			}
			resp = res
			return nil
		},
		retry.Attempts(uint(max+1)),
		retry.Context(ctx),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Options 描述共享 client 的网络策略。零值可用（全部走默认）。
type Options struct {
	ProxyURL  string
	Timeout   time.Duration
	RetryMax  int
	UserAgent string

	// RatePerSecond<=0 表示不限速；Burst<=0 时取 1。
	RatePerSecond float64
	Burst         int
}

// NewClient 构造抓取页面用的共享 HTTP client。
//
// 规则：
// - proxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 固定 UA（共享身份）
// - 有界重试 + 总超时
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 8 * time.Second,
	}

	proxyURL := strings.TrimSpace(opts.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	tr := &Transport{
		Base:      base,
		UserAgent: ua,
		RetryMax:  opts.RetryMax,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		tr.Limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
