package site

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/cinelist/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// Profile 描述一个上游站点的“易变部分”：URL 模板、DOM 选择器与播放地址拼接规则。
//
// 约束：
// - 上游改版只需要改 profile（YAML），不需要改解析流程
// - 所有字段在 normalizeAndValidate 之后才可被使用
type Profile struct {
	Name         string   `yaml:"name"`
	BaseURL      string   `yaml:"base_url"`
	CDNOrigin    string   `yaml:"cdn_origin"`
	AllowedHosts []string `yaml:"allowed_hosts"`
	UserAgent    string   `yaml:"user_agent"`

	Listing   Listing   `yaml:"listing"`
	Selectors Selectors `yaml:"selectors"`
	Video     Video     `yaml:"video"`
}

// Listing 是列表/搜索页 URL 模板（支持 {lang} {page} {query} 占位符）。
type Listing struct {
	Recent  string `yaml:"recent"`
	Popular string `yaml:"popular"`
	Search  string `yaml:"search"`
}

type Selectors struct {
	Block      string   `yaml:"block"`
	Link       string   `yaml:"link"`
	Image      string   `yaml:"image"`
	ImageAttrs []string `yaml:"image_attrs"`
	Title      string   `yaml:"title"`

	OGTitle       string `yaml:"og_title"`
	DocumentTitle string `yaml:"document_title"`
	Heading       string `yaml:"heading"`

	Player     string `yaml:"player"`
	PlayerAttr string `yaml:"player_attr"`
}

type Video struct {
	// PathMarker 是媒体路径中的固定片段；marker 之后的尾部拼接到 CDNOrigin/<marker>。
	PathMarker string   `yaml:"path_marker"`
	ScriptVars []string `yaml:"script_vars"`
}

// Default 返回内置 profile（每次返回新副本，调用方可自由修改）。
func Default() (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(defaultYAML, &p); err != nil {
		return Profile{}, fmt.Errorf("解析内置 site profile 失败：%w", err)
	}
	if err := p.normalizeAndValidate(); err != nil {
		return Profile{}, fmt.Errorf("内置 site profile 无效：%w", err)
	}
	return p, nil
}

// Load 读取 YAML 覆盖文件，并叠加到内置 profile 之上（文件中缺省的字段沿用默认值）。
// path 为空时等价于 Default。
func Load(path string) (Profile, error) {
	p, err := Default()
	if err != nil {
		return Profile{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("读取 site profile 失败：%w", err)
	}
	if err := Parse(b, &p); err != nil {
		return Profile{}, fmt.Errorf("%s：%w", path, err)
	}
	return p, nil
}

// Parse 把 YAML 叠加到 p 上并做规范化校验。
func Parse(b []byte, p *Profile) error {
	if err := yaml.Unmarshal(b, p); err != nil {
		return err
	}
	return p.normalizeAndValidate()
}

func (p *Profile) normalizeAndValidate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.CDNOrigin = strings.TrimRight(strings.TrimSpace(p.CDNOrigin), "/")
	p.UserAgent = strings.TrimSpace(p.UserAgent)

	if p.Name == "" {
		return errors.New("name is required")
	}
	if err := checkOrigin("base_url", p.BaseURL); err != nil {
		return err
	}
	if err := checkOrigin("cdn_origin", p.CDNOrigin); err != nil {
		return err
	}

	hosts := make([]string, 0, len(p.AllowedHosts))
	for _, h := range p.AllowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	p.AllowedHosts = hosts

	for name, tpl := range map[string]string{
		"listing.recent":  p.Listing.Recent,
		"listing.popular": p.Listing.Popular,
	} {
		if !strings.Contains(tpl, "{lang}") || !strings.Contains(tpl, "{page}") {
			return fmt.Errorf("%s 必须包含 {lang} 与 {page}：%q", name, tpl)
		}
	}
	if !strings.Contains(p.Listing.Search, "{lang}") || !strings.Contains(p.Listing.Search, "{query}") {
		return fmt.Errorf("listing.search 必须包含 {lang} 与 {query}：%q", p.Listing.Search)
	}

	s := &p.Selectors
	for name, v := range map[string]*string{
		"selectors.block":          &s.Block,
		"selectors.link":           &s.Link,
		"selectors.image":          &s.Image,
		"selectors.og_title":       &s.OGTitle,
		"selectors.document_title": &s.DocumentTitle,
		"selectors.heading":        &s.Heading,
		"selectors.player":         &s.Player,
		"selectors.player_attr":    &s.PlayerAttr,
	} {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	// title 选择器允许为空：此时直接从图片属性开始回退。
	s.Title = strings.TrimSpace(s.Title)
	if len(s.ImageAttrs) == 0 {
		s.ImageAttrs = []string{"src"}
	}

	p.Video.PathMarker = strings.TrimSpace(p.Video.PathMarker)
	if p.Video.PathMarker == "" {
		return errors.New("video.path_marker is required")
	}
	return nil
}

func checkOrigin(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

// ListingURL 按分类选择模板并展开占位符。
func (p Profile) ListingURL(lang domain.Language, cat domain.Category, page int) string {
	tpl := p.Listing.Recent
	if cat == domain.CategoryPopular {
		tpl = p.Listing.Popular
	}
	return p.expand(tpl, lang, page, "")
}

func (p Profile) SearchURL(lang domain.Language, query string) string {
	return p.expand(p.Listing.Search, lang, 0, query)
}

func (p Profile) expand(tpl string, lang domain.Language, page int, query string) string {
	r := strings.NewReplacer(
		"{lang}", url.QueryEscape(string(lang)),
		"{page}", strconv.Itoa(page),
		"{query}", url.QueryEscape(query),
	)
	out := r.Replace(tpl)
	if strings.HasPrefix(out, "http://") || strings.HasPrefix(out, "https://") {
		return out
	}
	return p.BaseURL + "/" + strings.TrimLeft(out, "/")
}

// Absolute 把页面中的 href/src 规范化为绝对 URL：
// - "//host/x"  => "https://host/x"
// - 已是 http(s) => 原样
// - 相对路径    => 以站点 origin 为基准拼接
func (p Profile) Absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(p.BaseURL + "/")
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

// DetailURL 校验调用方传入的详情页 URL：必须能规范化为 http(s) 绝对 URL，
// 且 host 属于 allowed_hosts（列表为空时不限制）。
func (p Profile) DetailURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url 不能为空")
	}
	abs := p.Absolute(raw)
	u, err := url.Parse(abs)
	if err != nil {
		return "", fmt.Errorf("url 无效：%w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("url 必须是 http/https 绝对地址：%q", raw)
	}
	if len(p.AllowedHosts) == 0 {
		return abs, nil
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.AllowedHosts {
		if host == h {
			return abs, nil
		}
	}
	return "", fmt.Errorf("url 不属于允许的站点：%q", u.Host)
}

// SpliceVideo 把页面中的媒体路径拼接到 CDN origin 上。
//
// 规则：取 path_marker 第一次出现之后的全部尾部，结果为 <cdn_origin>/<marker><tail>。
// 不含 marker 时，仅当值本身已是 http(s) 绝对地址才接受。
func (p Profile) SpliceVideo(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if _, tail, ok := strings.Cut(value, p.Video.PathMarker); ok {
		return p.CDNOrigin + "/" + p.Video.PathMarker + tail, true
	}
	if strings.HasPrefix(value, "//") {
		return "https:" + value, true
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value, true
	}
	return "", false
}
