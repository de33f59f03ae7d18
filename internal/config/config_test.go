package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("没有配置文件时 ConfigFile 应为空，实际=%q", eff.ConfigFile)
	}
	if eff.Addr != DefaultAddr {
		t.Fatalf("期望 addr=%q，实际=%q", DefaultAddr, eff.Addr)
	}
	if eff.Timeout != DefaultTimeoutSeconds*time.Second {
		t.Fatalf("期望 timeout=%ds，实际=%v", DefaultTimeoutSeconds, eff.Timeout)
	}
	if eff.RetryMax != DefaultRetryMax {
		t.Fatalf("期望 retry_max=%d，实际=%d", DefaultRetryMax, eff.RetryMax)
	}
	want := runtime.NumCPU()
	if want > 64 {
		want = 64
	}
	if eff.Workers != want {
		t.Fatalf("期望 workers=%d，实际=%d", want, eff.Workers)
	}
	if eff.ListingTTL != time.Hour {
		t.Fatalf("期望 listing_ttl=1h，实际=%v", eff.ListingTTL)
	}
	if eff.MinTitleLen != DefaultMinTitleLen || eff.LogLevel != "info" || eff.LogFormat != "text" {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Burst != 1 || eff.RatePerSecond != 0 {
		t.Fatalf("默认不限速，实际 rate=%v burst=%d", eff.RatePerSecond, eff.Burst)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json"}, noEnv)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		"addr": "127.0.0.1:9000",
		"site_profile": "profiles/site.yaml",
		"proxy": {"url": "http://127.0.0.1:7890"},
		"timeout_seconds": 120,
		"retry_max": 0,
		"rate_per_second": 2.5,
		"burst": 4,
		"workers": 500,
		"listing_ttl_seconds": 60,
		"log": {"level": "DEBUG", "format": "json", "file": "logs/cinelist.log"}
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigFile 不符合预期：%q", eff.ConfigFile)
	}
	if eff.Addr != "127.0.0.1:9000" || eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("addr/proxy 不符合预期：%+v", eff)
	}
	if eff.SiteProfile != filepath.Join(cwd, "profiles", "site.yaml") {
		t.Fatalf("site_profile 应相对 cwd 解析，实际=%q", eff.SiteProfile)
	}
	if eff.LogFile != filepath.Join(cwd, "logs", "cinelist.log") {
		t.Fatalf("log.file 应相对 cwd 解析，实际=%q", eff.LogFile)
	}
	if eff.Timeout != MaxTimeoutSeconds*time.Second {
		t.Fatalf("timeout 应截断到 %ds，实际=%v", MaxTimeoutSeconds, eff.Timeout)
	}
	if eff.RetryMax != 0 {
		t.Fatalf("retry_max=0 应禁用重试，实际=%d", eff.RetryMax)
	}
	if eff.RatePerSecond != 2.5 || eff.Burst != 4 {
		t.Fatalf("限速配置不符合预期：rate=%v burst=%d", eff.RatePerSecond, eff.Burst)
	}
	if eff.Workers != 64 {
		t.Fatalf("workers 应截断到 64，实际=%d", eff.Workers)
	}
	if eff.ListingTTL != time.Minute {
		t.Fatalf("期望 listing_ttl=1m，实际=%v", eff.ListingTTL)
	}
	if eff.LogLevel != "debug" || eff.LogFormat != "json" {
		t.Fatalf("log 配置不符合预期：level=%q format=%q", eff.LogLevel, eff.LogFormat)
	}
}

func TestLoadEffective_MergeOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"addr":":1111","workers":2,"log":{"level":"warn"}}`))

	// 环境变量覆盖配置文件。
	env := envMap(map[string]string{
		"CINELIST_ADDR":      ":2222",
		"CINELIST_WORKERS":   "3",
		"CINELIST_LOG_LEVEL": "debug",
	})
	eff, err := LoadEffective(cwd, CLIArgs{}, env)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":2222" || eff.Workers != 3 || eff.LogLevel != "debug" {
		t.Fatalf("env 应覆盖文件：%+v", eff)
	}

	// CLI 显式指定，则覆盖环境变量。
	eff, err = LoadEffective(cwd, CLIArgs{Addr: ":3333", AddrSet: true, LogLevel: "error", LogLevelSet: true}, env)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":3333" || eff.LogLevel != "error" {
		t.Fatalf("CLI 应覆盖 env：%+v", eff)
	}
	if eff.Workers != 3 {
		t.Fatalf("CLI 未指定的字段沿用 env，实际 workers=%d", eff.Workers)
	}
}

func TestLoadEffective_TimeoutBounds(t *testing.T) {
	cases := map[string]time.Duration{
		"1":  MinTimeoutSeconds * time.Second,
		"-3": MinTimeoutSeconds * time.Second,
		"7":  7 * time.Second,
		"30": MaxTimeoutSeconds * time.Second,
	}
	for v, want := range cases {
		env := envMap(map[string]string{"CINELIST_TIMEOUT_SECONDS": v})
		eff, err := LoadEffective(t.TempDir(), CLIArgs{}, env)
		if err != nil {
			t.Fatalf("TIMEOUT_SECONDS=%s：不期望错误：%v", v, err)
		}
		if eff.Timeout != want {
			t.Fatalf("TIMEOUT_SECONDS=%s：期望 %v，实际 %v", v, want, eff.Timeout)
		}
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]struct {
		file string
		env  map[string]string
		cli  CLIArgs
	}{
		"bad_json":      {file: `{`},
		"bad_proxy":     {file: `{"proxy":{"url":"http://[::1"}}`},
		"proxy_no_host": {cli: CLIArgs{Proxy: "not-a-url", ProxySet: true}},
		"bad_level":     {file: `{"log":{"level":"verbose"}}`},
		"bad_format":    {env: map[string]string{"CINELIST_LOG_FORMAT": "xml"}},
		"bad_workers":   {env: map[string]string{"CINELIST_WORKERS": "many"}},
		"negative_rate": {file: `{"rate_per_second":-1}`},
	}
	for name, tc := range cases {
		cwd := t.TempDir()
		if tc.file != "" {
			writeFile(t, filepath.Join(cwd, FileName), []byte(tc.file))
		}
		_, err := LoadEffective(cwd, tc.cli, envMap(tc.env))
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败 %q：%v", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
