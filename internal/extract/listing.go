package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/sourcegraph/conc/pool"

	"github.com/John-Robertt/cinelist/internal/domain"
	"github.com/John-Robertt/cinelist/internal/title"
)

// RawBlock 是从一个列表块中读出的原始字段（只在一次 ExtractListing 内部使用）。
type RawBlock struct {
	Index      int
	Href       string
	ImageSrc   string
	ImageAlt   string
	ImageTitle string
	TitleText  string
}

// ExtractListing 解析列表页，返回按页面顺序排列的条目。
//
// 约束：
// - DOM 只在当前 goroutine 中读取（goquery.Selection 不保证并发安全），并发只发生在 RawBlock 之后
// - 输出顺序与页面中 block 的顺序一致；缺少链接或图片的 block 被丢弃
// - 每个保留条目的 Title 非空（最差为 domain.UntitledTitle）
func (e *Extractor) ExtractListing(ctx context.Context, page []byte) ([]domain.ListingEntry, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	blocks := e.readBlocks(doc)
	if len(blocks) == 0 {
		return []domain.ListingEntry{}, nil
	}

	// 列表请求被取消时，已发起的详情页回查仍然跑完（各自受 client 超时约束）。
	detailCtx := context.WithoutCancel(ctx)

	results := make([]*domain.ListingEntry, len(blocks))
	p := pool.New().WithMaxGoroutines(e.workers)
	for _, b := range blocks {
		b := b
		p.Go(func() {
			results[b.Index] = e.resolveBlock(detailCtx, b)
		})
	}
	p.Wait()

	out := make([]domain.ListingEntry, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (e *Extractor) readBlocks(doc *goquery.Document) []RawBlock {
	sel := e.profile.Selectors
	var blocks []RawBlock
	doc.Find(sel.Block).Each(func(i int, s *goquery.Selection) {
		link := s.Find(sel.Link).First()
		img := s.Find(sel.Image).First()
		b := RawBlock{
			Index:      i,
			Href:       attr(link, "href"),
			ImageAlt:   attr(img, "alt"),
			ImageTitle: attr(img, "title"),
		}
		for _, name := range sel.ImageAttrs {
			if v := attr(img, name); v != "" {
				b.ImageSrc = v
				break
			}
		}
		if sel.Title != "" {
			b.TitleText = normSpace(s.Find(sel.Title).First().Text())
		}
		blocks = append(blocks, b)
	})
	return blocks
}

func (e *Extractor) resolveBlock(ctx context.Context, b RawBlock) *domain.ListingEntry {
	if b.Href == "" || b.ImageSrc == "" {
		e.log.Debug("drop malformed block", "index", b.Index, "has_link", b.Href != "", "has_image", b.ImageSrc != "")
		return nil
	}
	detailURL := e.profile.Absolute(b.Href)
	return &domain.ListingEntry{
		Title:        e.blockTitle(ctx, b, detailURL),
		ThumbnailURL: e.profile.Absolute(b.ImageSrc),
		DetailURL:    detailURL,
	}
}

func (e *Extractor) titleStrategies() []Strategy[RawBlock] {
	accept := func(raw string) (string, bool) {
		s, ok := e.norm.Normalize(raw)
		if !ok || !title.Acceptable(s, e.minLen) {
			return "", false
		}
		return s, true
	}
	return []Strategy[RawBlock]{
		{Name: "title_element", Run: func(b RawBlock) (string, bool) { return accept(b.TitleText) }},
		{Name: "image_alt", Run: func(b RawBlock) (string, bool) { return accept(b.ImageAlt) }},
		{Name: "image_title", Run: func(b RawBlock) (string, bool) { return accept(b.ImageTitle) }},
		{Name: "link", Run: func(b RawBlock) (string, bool) { return accept(title.FromLink(b.Href)) }},
	}
}

// blockTitle 走标题回退链；链上没有可信值或值像短编号时，回详情页取标题，仍失败则用兜底标题。
func (e *Extractor) blockTitle(ctx context.Context, b RawBlock, detailURL string) string {
	t, used, trace, ok := FirstOf(b, e.titleStrategies())
	if ok && !title.LooksLikeCode(t) {
		return t
	}
	e.log.Debug("title fallback to detail page", "index", b.Index, "candidate", t, "strategy", used, "attempts", len(trace))

	if e.fetcher == nil {
		return domain.UntitledTitle
	}
	page, err := e.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		e.log.Debug("detail title fetch failed", "url", detailURL, "err", err)
		return domain.UntitledTitle
	}
	if dt, ok := e.DetailTitle(page); ok {
		return dt
	}
	return domain.UntitledTitle
}
