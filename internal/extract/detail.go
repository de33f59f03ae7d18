package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cinelist/internal/domain"
)

// DetailTitle 从详情页取标题：og:title -> <title> -> 第一个 <h1>，各自清洗后第一个非空者胜出。
func (e *Extractor) DetailTitle(page []byte) (string, bool) {
	doc, err := parse(page)
	if err != nil {
		return "", false
	}
	return e.detailTitle(doc)
}

func (e *Extractor) detailStrategies() []Strategy[*goquery.Document] {
	sel := e.profile.Selectors
	return []Strategy[*goquery.Document]{
		{Name: "og_title", Run: func(d *goquery.Document) (string, bool) {
			return e.norm.Normalize(attr(d.Find(sel.OGTitle).First(), "content"))
		}},
		{Name: "document_title", Run: func(d *goquery.Document) (string, bool) {
			return e.norm.Normalize(d.Find(sel.DocumentTitle).First().Text())
		}},
		{Name: "heading", Run: func(d *goquery.Document) (string, bool) {
			return e.norm.Normalize(d.Find(sel.Heading).First().Text())
		}},
	}
}

func (e *Extractor) detailTitle(doc *goquery.Document) (string, bool) {
	t, _, _, ok := FirstOf(doc, e.detailStrategies())
	return t, ok
}

// ParseDetail 对详情页只解析一次，同时得到标题与播放地址。
// 标题优先级：knownTitle（非空白）> 页面解析结果 > domain.UntitledTitle。
// 播放地址缺失不是错误：VideoURL 为空。
func (e *Extractor) ParseDetail(page []byte, knownTitle string) domain.VideoResolution {
	var res domain.VideoResolution
	if t := normSpace(knownTitle); t != "" {
		res.Title = t
	}

	doc, err := parse(page)
	if err != nil {
		e.log.Debug("detail page parse failed", "err", err)
	} else {
		if res.Title == "" {
			res.Title, _ = e.detailTitle(doc)
		}
		res.VideoURL, _ = e.videoURL(doc, page)
	}

	if res.Title == "" {
		res.Title = domain.UntitledTitle
	}
	return res
}
