package domain

// UntitledTitle 是标题兜底值：所有回退都失败时写入，保证 Title 永不为空。
const UntitledTitle = "Untitled Movie (Title Not Found)"

// ListingEntry 是列表页/搜索页中的一条电影。
//
// 不变量：
// - DetailURL 必须是绝对 URL（指向单部电影的详情页）
// - Title 永不为空；找不到可靠标题时为 UntitledTitle
type ListingEntry struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	DetailURL    string `json:"detail_url"`
}

// VideoResolution 是详情页解析结果。
// VideoURL 为空表示页面没有暴露播放地址（这是正常结果，不是错误）。
type VideoResolution struct {
	Title    string
	VideoURL string
}

func (v VideoResolution) HasVideo() bool { return v.VideoURL != "" }
