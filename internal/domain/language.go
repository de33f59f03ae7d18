package domain

import (
	"fmt"
	"strings"
)

// Language 是站点支持的语言（封闭枚举）。
// 每个值的解析结果都是它自身；解析器不会产出枚举之外的值。
type Language string

const (
	Tamil     Language = "tamil"
	Hindi     Language = "hindi"
	Telugu    Language = "telugu"
	Malayalam Language = "malayalam"
	Kannada   Language = "kannada"
	Bengali   Language = "bengali"
	Marathi   Language = "marathi"
	Punjabi   Language = "punjabi"
)

// Languages 按固定顺序列出全部语言（顺序也用于模糊匹配的平局裁决）。
var Languages = []Language{Tamil, Hindi, Telugu, Malayalam, Kannada, Bengali, Marathi, Punjabi}

func (l Language) Valid() bool {
	for _, v := range Languages {
		if v == l {
			return true
		}
	}
	return false
}

func (l Language) String() string { return string(l) }

// Category 是列表排序方式。
type Category string

const (
	CategoryRecent  Category = "recent"
	CategoryPopular Category = "popular"
)

// ParseCategory 解析 category 参数；空串回退为 recent，未知值报错（不静默降级）。
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case "", CategoryRecent:
		return CategoryRecent, nil
	case CategoryPopular:
		return CategoryPopular, nil
	default:
		return "", fmt.Errorf("category 只能是 recent 或 popular，实际是 %q", s)
	}
}
