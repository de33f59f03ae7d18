package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// ErrCodeNotFound 表示通过 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（可选）。
	FileName = "cinelist.json"
	// EnvPrefix 是环境变量前缀（例如 CINELIST_ADDR）。
	EnvPrefix = "CINELIST_"
)

const (
	DefaultAddr              = ":8080"
	DefaultTimeoutSeconds    = 8
	MinTimeoutSeconds        = 5
	MaxTimeoutSeconds        = 10
	DefaultRetryMax          = 1
	DefaultPageCacheSize     = 128
	DefaultLangCacheSize     = 256
	DefaultListingTTLSeconds = 3600
	DefaultMinTitleLen       = 3
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --log-level=info 必须能覆盖环境变量中的 debug。
type CLIArgs struct {
	// ConfigPath 非空时配置文件必选；为空时尝试读取 <cwd>/cinelist.json（可选）。
	ConfigPath string

	Addr    string
	AddrSet bool

	Proxy    string
	ProxySet bool

	SiteProfile    string
	SiteProfileSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 cinelist.json 的解析结构。
type FileConfig struct {
	Addr              string       `json:"addr"`
	SiteProfile       string       `json:"site_profile"`
	Proxy             *ProxyConfig `json:"proxy"`
	TimeoutSeconds    int          `json:"timeout_seconds"`
	RetryMax          *int         `json:"retry_max"`
	RatePerSecond     float64      `json:"rate_per_second"`
	Burst             int          `json:"burst"`
	Workers           int          `json:"workers"`
	PageCacheSize     int          `json:"page_cache_size"`
	LangCacheSize     int          `json:"lang_cache_size"`
	ListingTTLSeconds int          `json:"listing_ttl_seconds"`
	MinTitleLen       int          `json:"min_title_len"`
	Log               *LogConfig   `json:"log"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	// File 非空时日志写入该文件（按大小轮转）；为空时写 stderr。
	File string `json:"file"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Addr        string
	SiteProfile string

	ProxyURL      string
	Timeout       time.Duration
	RetryMax      int
	RatePerSecond float64
	Burst         int

	Workers       int
	PageCacheSize int
	LangCacheSize int
	ListingTTL    time.Duration
	MinTitleLen   int

	LogLevel  string
	LogFormat string
	LogFile   string

	// ConfigFile 是实际读取到的配置文件路径（未读取到时为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，再与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：读取该文件（必选）
// 2) 否则尝试读取 <cwd>/cinelist.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量（CINELIST_*）> 配置文件 > 默认值。
// getenv 为 nil 时使用 os.Getenv。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if !exists {
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, fc, envSource(getenv))
	if err != nil {
		src := cfgPath
		if src == "" {
			src = "<env/cli>"
		}
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: src, Err: err}
	}
	eff.ConfigFile = cfgPath
	return eff, nil
}

type envSource func(string) string

func (e envSource) lookup(name string) (string, bool) {
	v := strings.TrimSpace(e(EnvPrefix + name))
	return v, v != ""
}

func (e envSource) intValue(name string) (int, bool, error) {
	v, ok := e.lookup(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s 必须是整数：%q", EnvPrefix, name, v)
	}
	return n, true, nil
}

func (e envSource) floatValue(name string) (float64, bool, error) {
	v, ok := e.lookup(name)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s 必须是数字：%q", EnvPrefix, name, v)
	}
	return f, true, nil
}

// pick 按 CLI > env > file 取字符串值；都为空时返回 def。
func pick(cliSet bool, cliVal string, env envSource, envName, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	if v, ok := env.lookup(envName); ok {
		return v
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, env envSource) (EffectiveConfig, error) {
	var fileLog LogConfig
	if fc.Log != nil {
		fileLog = *fc.Log
	}
	fileProxy := ""
	if fc.Proxy != nil {
		fileProxy = fc.Proxy.URL
	}

	eff := EffectiveConfig{
		Addr:        pick(cli.AddrSet, cli.Addr, env, "ADDR", fc.Addr, DefaultAddr),
		SiteProfile: pick(cli.SiteProfileSet, cli.SiteProfile, env, "SITE_PROFILE", fc.SiteProfile, ""),
		ProxyURL:    pick(cli.ProxySet, cli.Proxy, env, "PROXY_URL", fileProxy, ""),
		LogLevel:    strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, env, "LOG_LEVEL", fileLog.Level, DefaultLogLevel)),
		LogFormat:   strings.ToLower(pick(false, "", env, "LOG_FORMAT", fileLog.Format, DefaultLogFormat)),
		LogFile:     pick(false, "", env, "LOG_FILE", fileLog.File, ""),
	}

	if eff.Addr == "" {
		eff.Addr = DefaultAddr
	}
	if eff.SiteProfile != "" {
		eff.SiteProfile = absCleanFrom(cwdAbs, eff.SiteProfile)
	}
	if eff.LogFile != "" {
		eff.LogFile = absCleanFrom(cwdAbs, eff.LogFile)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Host == "" {
			if err == nil {
				err = errors.New("缺少 host")
			}
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%w", err)
		}
	}
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.level 只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}
	switch eff.LogFormat {
	case "text", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 text 或 json，实际是 %q", eff.LogFormat)
	}

	timeout := fc.TimeoutSeconds
	if v, ok, err := env.intValue("TIMEOUT_SECONDS"); err != nil {
		return EffectiveConfig{}, err
	} else if ok {
		timeout = v
	}
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	eff.Timeout = time.Duration(clamp(timeout, MinTimeoutSeconds, MaxTimeoutSeconds)) * time.Second

	retryMax := DefaultRetryMax
	if fc.RetryMax != nil {
		retryMax = *fc.RetryMax
	}
	eff.RetryMax = clamp(retryMax, 0, 5)

	rps := fc.RatePerSecond
	if v, ok, err := env.floatValue("RATE_PER_SECOND"); err != nil {
		return EffectiveConfig{}, err
	} else if ok {
		rps = v
	}
	if rps < 0 {
		return EffectiveConfig{}, fmt.Errorf("rate_per_second 不能为负数：%v", rps)
	}
	eff.RatePerSecond = rps
	eff.Burst = fc.Burst
	if eff.Burst < 1 {
		eff.Burst = 1
	}

	workers := fc.Workers
	if v, ok, err := env.intValue("WORKERS"); err != nil {
		return EffectiveConfig{}, err
	} else if ok {
		workers = v
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	// 范围 [1, 64]；超出截断。
	eff.Workers = clamp(workers, 1, 64)

	eff.PageCacheSize = positiveOr(fc.PageCacheSize, DefaultPageCacheSize)
	eff.LangCacheSize = positiveOr(fc.LangCacheSize, DefaultLangCacheSize)
	eff.ListingTTL = time.Duration(positiveOr(fc.ListingTTLSeconds, DefaultListingTTLSeconds)) * time.Second
	eff.MinTitleLen = clamp(positiveOr(fc.MinTitleLen, DefaultMinTitleLen), 1, 20)

	return eff, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
