package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/John-Robertt/cinelist/internal/app/listcache"
	"github.com/John-Robertt/cinelist/internal/domain"
	"github.com/John-Robertt/cinelist/internal/extract"
	"github.com/John-Robertt/cinelist/internal/fetch"
	"github.com/John-Robertt/cinelist/internal/lang"
	"github.com/John-Robertt/cinelist/internal/site"
)

// ListRequest 是“按语言/分类/页码列出电影”的入参（均为调用方原始输入）。
type ListRequest struct {
	Language string
	Category string
	// Page 为 0 时视为 1；负数是非法输入。
	Page int
}

type SearchRequest struct {
	Language string
	Query    string
}

// WatchRequest 是详情解析的入参。Title 非空时直接作为结果标题。
type WatchRequest struct {
	URL   string
	Title string
}

// Deps 是 Service 的协作者，全部由调用方构造并持有。
type Deps struct {
	Profile   site.Profile
	Languages *lang.Resolver
	Fetcher   fetch.Fetcher
	Extractor *extract.Extractor
	Listings  *listcache.Cache
	Logger    *slog.Logger
}

// Service 把语言解析、URL 构造、缓存、抓取与解析串成对外的三个操作。
//
// 错误策略：
// - 输入不合法：返回 code=invalid_input 的 *domain.Error
// - 列表/搜索时上游不可用：记录日志并降级为空结果（不是错误）
// - 详情解析时上游不可用：返回 code=upstream_unavailable 的 *domain.Error
type Service struct {
	profile   site.Profile
	langs     *lang.Resolver
	fetcher   fetch.Fetcher
	extractor *extract.Extractor
	listings  *listcache.Cache
	log       *slog.Logger
}

func New(d Deps) (*Service, error) {
	if d.Languages == nil {
		return nil, errors.New("query: Languages 不能为空")
	}
	if d.Fetcher == nil {
		return nil, errors.New("query: Fetcher 不能为空")
	}
	if d.Extractor == nil {
		return nil, errors.New("query: Extractor 不能为空")
	}
	if d.Listings == nil {
		d.Listings = listcache.New(listcache.DefaultTTL)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		profile:   d.Profile,
		langs:     d.Languages,
		fetcher:   d.Fetcher,
		extractor: d.Extractor,
		listings:  d.Listings,
		log:       d.Logger.With("component", "query"),
	}, nil
}

// Languages 返回支持的语言（固定顺序）。
func (s *Service) Languages() []domain.Language {
	return append([]domain.Language(nil), domain.Languages...)
}

func (s *Service) List(ctx context.Context, req ListRequest) (domain.ListingResult, error) {
	l, err := s.resolveLanguage(req.Language)
	if err != nil {
		return domain.ListingResult{}, err
	}
	cat, err := domain.ParseCategory(req.Category)
	if err != nil {
		return domain.ListingResult{}, domain.InvalidInput("%v", err)
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return domain.ListingResult{}, domain.InvalidInput("page 必须 >= 1，实际是 %d", req.Page)
	}

	u := s.profile.ListingURL(l, cat, page)
	movies, err := s.listings.GetOrFetch(ctx, l, page, cat, func(ctx context.Context) ([]domain.ListingEntry, error) {
		return s.fetchListing(ctx, u)
	})
	if err != nil {
		s.log.Warn("listing degraded to empty", "language", l, "category", cat, "page", page, "err", err)
		movies = nil
	}
	return domain.NewListingResult(l, cat, page, movies), nil
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (domain.SearchResult, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return domain.SearchResult{}, domain.InvalidInput("query 不能为空")
	}
	l, err := s.resolveLanguage(req.Language)
	if err != nil {
		return domain.SearchResult{}, err
	}

	movies, err := s.fetchListing(ctx, s.profile.SearchURL(l, q))
	if err != nil {
		s.log.Warn("search degraded to empty", "language", l, "query", q, "err", err)
		movies = nil
	}
	return domain.NewSearchResult(l, q, movies), nil
}

// Watch 抓取详情页一次，并从同一份字节中解析标题与播放地址。
func (s *Service) Watch(ctx context.Context, req WatchRequest) (domain.DetailResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return domain.DetailResult{}, domain.InvalidInput("url 不能为空")
	}
	u, err := s.profile.DetailURL(req.URL)
	if err != nil {
		return domain.DetailResult{}, domain.InvalidInput("%v", err)
	}

	page, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return domain.DetailResult{}, domain.Upstream("无法抓取详情页", err)
	}
	res := s.extractor.ParseDetail(page, req.Title)
	if !res.HasVideo() {
		s.log.Info("no video url on detail page", "url", u)
	}
	return domain.NewDetailResult(res), nil
}

func (s *Service) resolveLanguage(input string) (domain.Language, error) {
	if strings.TrimSpace(input) == "" {
		return "", domain.InvalidInput("language 不能为空")
	}
	l, ok := s.langs.Resolve(input)
	if !ok {
		return "", domain.InvalidInput("无法识别的语言：%q", input)
	}
	return l, nil
}

// fetchListing 绕过页面 memo 取列表页（新鲜度由 Listing Cache 的 TTL 决定）；
// 解析时回详情页的请求仍使用 memo。
func (s *Service) fetchListing(ctx context.Context, u string) ([]domain.ListingEntry, error) {
	page, err := s.fetcher.Fetch(fetch.NoMemo(ctx), u)
	if err != nil {
		return nil, err
	}
	return s.extractor.ExtractListing(ctx, page)
}
