package lang

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/John-Robertt/cinelist/internal/domain"
	"github.com/John-Robertt/cinelist/internal/infra/cache"
)

const (
	// Cutoff 是接受模糊匹配的最低相似度（含）。
	Cutoff = 0.7
	// DefaultMemoSize 是解析结果 memo 的默认容量。
	DefaultMemoSize = 256
)

type result struct {
	lang domain.Language
	ok   bool
}

// Resolver 把用户输入的语言名容错地映射到 domain.Languages 中的某一项。
//
// 约束：
// - 输出只可能是 domain.Languages 的成员
// - 同一原始输入的结果稳定，因此可以按原始字符串 memo
type Resolver struct {
	langs []domain.Language
	memo  *cache.Store[result]
}

// NewResolver 构造 Resolver。memoSize<=0 时使用 DefaultMemoSize。
func NewResolver(memoSize int) (*Resolver, error) {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	memo, err := cache.New[result](memoSize, 0)
	if err != nil {
		return nil, err
	}
	return &Resolver{langs: domain.Languages, memo: memo}, nil
}

// Resolve 返回与 input 最相近的语言；最高分低于 Cutoff 或输入为空时返回 false。
// 平局按 domain.Languages 的顺序取靠前者。
func (r *Resolver) Resolve(input string) (domain.Language, bool) {
	// 规范名直接命中，不占 memo。
	if l := domain.Language(fold(input)); l.Valid() {
		return l, true
	}
	if v, ok := r.memo.Get(input); ok {
		return v.lang, v.ok
	}
	l, ok := Match(r.langs, input)
	r.memo.Add(input, result{lang: l, ok: ok})
	return l, ok
}

// Match 是不带 memo 的匹配过程。
func Match(langs []domain.Language, input string) (domain.Language, bool) {
	s := fold(input)
	if s == "" {
		return "", false
	}

	var (
		best  domain.Language
		score float64
	)
	for _, l := range langs {
		// 严格大于：平局保留先出现的语言。
		if v := Ratio(string(l), s); v > score {
			best, score = l, v
		}
	}
	if score < Cutoff {
		return "", false
	}
	return best, true
}

// Ratio 返回按字符计算的相似度 2*M/T（M 为匹配字符数，T 为两串总长）。
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(strings.TrimSpace(s))))
}
