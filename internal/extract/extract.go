package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cinelist/internal/fetch"
	"github.com/John-Robertt/cinelist/internal/site"
	"github.com/John-Robertt/cinelist/internal/title"
)

// Options 是 Extractor 的可选参数；零值使用默认值。
type Options struct {
	// Workers 是单次列表解析中并发处理 block 的上限；<=0 时为 runtime.NumCPU()。
	Workers int
	// MinTitleLen 是候选标题的最小可信长度；<=0 时为 title.DefaultMinLen。
	MinTitleLen int
	Normalizer  *title.Normalizer
	Logger      *slog.Logger
}

// Extractor 把列表页/详情页字节解析成领域数据。
// 所有 DOM 细节来自 site.Profile；这里只有流程。
type Extractor struct {
	profile site.Profile
	fetcher fetch.Fetcher
	norm    *title.Normalizer
	workers int
	minLen  int
	log     *slog.Logger

	attrRE    *regexp.Regexp
	scriptREs []*regexp.Regexp
}

// New 构造 Extractor。fetcher 只用于列表解析中“回详情页取标题”这一步，可为 nil（此时直接走兜底）。
func New(p site.Profile, f fetch.Fetcher, opts Options) *Extractor {
	e := &Extractor{
		profile: p,
		fetcher: f,
		norm:    opts.Normalizer,
		workers: opts.Workers,
		minLen:  opts.MinTitleLen,
		log:     opts.Logger,

		attrRE:    attrPattern(p.Selectors.PlayerAttr),
		scriptREs: scriptVarPatterns(p.Video.ScriptVars),
	}
	if e.norm == nil {
		e.norm = title.Default()
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.minLen <= 0 {
		e.minLen = title.DefaultMinLen
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With("component", "extract")
	return e
}

func parse(page []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%w", err)
	}
	return doc, nil
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
