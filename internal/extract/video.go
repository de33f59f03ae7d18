package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type detailPage struct {
	doc *goquery.Document
	raw []byte
}

// VideoURL 从详情页解析可播放地址；页面没有播放器时返回 false（不是错误）。
func (e *Extractor) VideoURL(page []byte) (string, bool) {
	doc, err := parse(page)
	if err != nil {
		return "", false
	}
	return e.videoURL(doc, page)
}

func (e *Extractor) videoURL(doc *goquery.Document, raw []byte) (string, bool) {
	v, used, _, ok := FirstOf(detailPage{doc: doc, raw: raw}, e.videoStrategies())
	if ok {
		e.log.Debug("video url resolved", "strategy", used)
	}
	return v, ok
}

func (e *Extractor) videoStrategies() []Strategy[detailPage] {
	sel := e.profile.Selectors
	return []Strategy[detailPage]{
		{Name: "player_element", Run: func(p detailPage) (string, bool) {
			if p.doc == nil {
				return "", false
			}
			return e.splice(attr(p.doc.Find(sel.Player).First(), sel.PlayerAttr))
		}},
		{Name: "player_attr_scan", Run: func(p detailPage) (string, bool) {
			return e.scan(e.attrRE, p.raw)
		}},
		{Name: "script_var_scan", Run: func(p detailPage) (string, bool) {
			for _, re := range e.scriptREs {
				if v, ok := e.scan(re, p.raw); ok {
					return v, true
				}
			}
			return "", false
		}},
	}
}

// scan 依次尝试 re 在原始标记中的每个匹配，第一个能拼接成功的值胜出。
func (e *Extractor) scan(re *regexp.Regexp, raw []byte) (string, bool) {
	if re == nil {
		return "", false
	}
	for _, m := range re.FindAllSubmatch(raw, -1) {
		if v, ok := e.splice(string(m[1])); ok {
			return v, true
		}
	}
	return "", false
}

func (e *Extractor) splice(v string) (string, bool) {
	v = strings.TrimSpace(html.UnescapeString(v))
	if v == "" {
		return "", false
	}
	return e.profile.SpliceVideo(v)
}

func attrPattern(name string) *regexp.Regexp {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*=\s*["']([^"']+)["']`)
}

func scriptVarPatterns(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?:\b(?:var|let|const)\s+)?\b`+regexp.QuoteMeta(n)+`\s*[:=]\s*["']([^"']+)["']`))
	}
	return out
}
