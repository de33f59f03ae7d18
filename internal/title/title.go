package title

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/John-Robertt/cinelist/internal/domain"
)

// DefaultMinLen 是候选标题的最小可信长度（严格大于）。
// 过短或纯数字的文本通常是占位符/编号，而不是片名。
const DefaultMinLen = 3

// Rule 是一条“模式 -> 替换”的清洗规则（全量替换，不是只替换第一次匹配）。
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

func (r Rule) Apply(s string) string { return r.Pattern.ReplaceAllString(s, r.Replace) }

// DefaultRules 是内置清洗规则表，顺序即语义：
// 后面的规则假定站点前缀/后缀已被前面的规则剥离。
// 例如语言标签必须先于年份剥离，"Jailer (2023) [Tamil]" 才能得到 "Jailer"。
var DefaultRules = buildRules(domain.Languages)

func buildRules(langs []domain.Language) []Rule {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, regexp.QuoteMeta(string(l)))
	}
	alt := strings.Join(names, "|")

	var (
		siteSuffix = `\s*[|–—-]\s*Einthusan(?:\s*[-–—]\s*Watch Movies Online)?`
		pageSuffix = `\s*\(\d{4}\)\s*(?:` + alt + `)\s*in\s*(?:HD|SD)`
		fullMovie  = `\s*[-–—|]?\s*Watch Full Movie Online Free`
		watchFree  = `\s*[-–—|]?\s*Online Watch Free (?:HD|SD)`
		freeMovies = `\s*[-–—|]?\s*Free Movies Online`
		langTag    = `\s*\[(?:` + alt + `)\]`
		year       = `\s*\(\d{4}\)`
	)
	// tail 是任意可被后续规则剥掉的尾部噪声；每条后缀规则连同其后的噪声一起剥离，
	// 这样后面的规则不会再露出前面规则能匹配的后缀。
	tail := `(?:` + strings.Join([]string{siteSuffix, pageSuffix, fullMovie, watchFree, freeMovies, langTag, year}, "|") + `)*\s*$`
	suffix := func(name, piece string) Rule {
		return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + piece + tail)}
	}

	return []Rule{
		{Name: "site_prefix", Pattern: regexp.MustCompile(`(?i)^\s*(?:(?:\[(?:` + alt + `)\]\s*)*Einthusan\s*[-–—|:]\s*)+`)},
		suffix("site_suffix", siteSuffix),
		suffix("page_title_suffix", pageSuffix),
		suffix("promo_full_movie", fullMovie),
		suffix("promo_watch_free", watchFree),
		suffix("promo_free_movies", freeMovies),
		{Name: "language_tag", Pattern: regexp.MustCompile(`(?i)` + langTag)},
		{Name: "trailing_year", Pattern: regexp.MustCompile(`(?:` + year + `)+\s*$`)},
	}
}

// Normalizer 按固定顺序应用规则表。规则是数据；扩展规则不需要改控制流。
type Normalizer struct {
	rules []Rule
}

func NewNormalizer(rules []Rule) *Normalizer {
	return &Normalizer{rules: append([]Rule(nil), rules...)}
}

// Default 返回使用 DefaultRules 的 Normalizer。
func Default() *Normalizer { return NewNormalizer(DefaultRules) }

// Normalize 清洗原始标题：按表顺序各应用一次，最后折叠空白。
// 返回 false 表示输入为空白（或被规则完全清空）。
//
// 前缀规则吸收重复的站点前缀，后缀规则吸收其后所有尾部噪声，
// 因此单次遍历后不会再有规则命中：Normalize(Normalize(x)) == Normalize(x)。
func (n *Normalizer) Normalize(raw string) (string, bool) {
	s := normSpace(raw)
	if s == "" {
		return "", false
	}
	for _, r := range n.rules {
		s = r.Apply(s)
	}
	s = normSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// Acceptable 判断清洗后的候选是否可信：长度严格大于 minLen，且不是纯数字。
func Acceptable(s string, minLen int) bool {
	if len([]rune(s)) <= minLen {
		return false
	}
	return !isDigits(s)
}

// LooksLikeCode 判断标题是否像短编号（例如 "9dRc"、"XKCD"），这类值需要回详情页取真标题。
// 条件：单个 token、2~8 个字符、只含字母数字，且（含数字 或 不含元音）。
func LooksLikeCode(s string) bool {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	if n < 2 || n > 8 {
		return false
	}
	hasDigit, hasVowel := false, false
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			if strings.ContainsRune("aeiouAEIOU", r) {
				hasVowel = true
			}
		default:
			return false
		}
	}
	return hasDigit || !hasVowel
}

// FromLink 从链接中推导候选标题：
// - "...?title=Some+Movie&..."  => "Some Movie"
// - ".../watch/some-movie-2019/" => "Some Movie"（丢弃纯数字单词）
// slug 只剩一个单词时视为站点的不透明 ID（例如 "Kbqa"），返回空串。
// 推导失败返回空串。结果仍需经过 Normalize/Acceptable。
func FromLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		if t := strings.TrimSpace(u.Query().Get("title")); t != "" {
			return titleCase(normSpace(t))
		}
	}

	_, rest, ok := strings.Cut(href, "/watch/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, "/")
	slug, _, _ = strings.Cut(slug, "?")
	if dec, err := url.PathUnescape(slug); err == nil {
		slug = dec
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
	kept := words[:0]
	for _, w := range words {
		if !isDigits(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) < 2 {
		return ""
	}
	return titleCase(strings.Join(kept, " "))
}

// titleCase 每次新建 Caser：Caser 有状态，不能在 goroutine 之间共享。
func titleCase(s string) string { return cases.Title(language.Und).String(s) }

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
