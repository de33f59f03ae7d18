package domain

// ListingResult 是“按语言/分类/页码列出电影”的对外稳定输出。
type ListingResult struct {
	Language Language       `json:"language"`
	Category Category       `json:"category"`
	Page     int            `json:"page"`
	Movies   []ListingEntry `json:"movies"`
	NextPage int            `json:"next_page"`
	HasMore  bool           `json:"has_more"`
}

// NewListingResult 统一计算分页字段：
// - has_more 当且仅当本页至少有一条结果
// - next_page = page+1（has_more）；否则为 0
// - movies 永远是数组（JSON 中不出现 null）
func NewListingResult(lang Language, cat Category, page int, movies []ListingEntry) ListingResult {
	if movies == nil {
		movies = []ListingEntry{}
	}
	r := ListingResult{
		Language: lang,
		Category: cat,
		Page:     page,
		Movies:   movies,
		HasMore:  len(movies) > 0,
	}
	if r.HasMore {
		r.NextPage = page + 1
	}
	return r
}

// SearchResult 是搜索的对外稳定输出。
type SearchResult struct {
	Language Language       `json:"language"`
	Query    string         `json:"query"`
	Movies   []ListingEntry `json:"movies"`
}

func NewSearchResult(lang Language, query string, movies []ListingEntry) SearchResult {
	if movies == nil {
		movies = []ListingEntry{}
	}
	return SearchResult{Language: lang, Query: query, Movies: movies}
}

// DetailResult 是详情解析的对外稳定输出。
// 找不到播放地址时 video_url 为 null，但 title 仍然返回。
type DetailResult struct {
	Title    string  `json:"title"`
	VideoURL *string `json:"video_url"`
}

func NewDetailResult(v VideoResolution) DetailResult {
	r := DetailResult{Title: v.Title}
	if r.Title == "" {
		r.Title = UntitledTitle
	}
	if v.HasVideo() {
		u := v.VideoURL
		r.VideoURL = &u
	}
	return r
}
