package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/John-Robertt/cinelist/internal/app/listcache"
	"github.com/John-Robertt/cinelist/internal/app/query"
	"github.com/John-Robertt/cinelist/internal/config"
	"github.com/John-Robertt/cinelist/internal/extract"
	"github.com/John-Robertt/cinelist/internal/fetch"
	"github.com/John-Robertt/cinelist/internal/infra/cache"
	"github.com/John-Robertt/cinelist/internal/infra/httpx"
	"github.com/John-Robertt/cinelist/internal/infra/logx"
	"github.com/John-Robertt/cinelist/internal/lang"
	"github.com/John-Robertt/cinelist/internal/site"
	"github.com/John-Robertt/cinelist/internal/title"
)

// app 是一次进程运行期间共享的对象图（全部显式构造，没有包级单例）。
type app struct {
	log    *slog.Logger
	svc    *query.Service
	closer io.Closer
}

func build(eff config.EffectiveConfig, logOut io.Writer) (*app, error) {
	log, closer, err := logx.New(logx.Options{
		Level:  eff.LogLevel,
		Format: eff.LogFormat,
		File:   eff.LogFile,
		Writer: logOut,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败：%w", err)
	}

	profile, err := site.Load(eff.SiteProfile)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("加载 site profile 失败：%w", err)
	}

	ua := profile.UserAgent
	if ua == "" {
		ua = httpx.DefaultUserAgent
	}
	hc, err := httpx.NewClient(httpx.Options{
		ProxyURL:      eff.ProxyURL,
		Timeout:       eff.Timeout,
		RetryMax:      eff.RetryMax,
		UserAgent:     ua,
		RatePerSecond: eff.RatePerSecond,
		Burst:         eff.Burst,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	pages, err := cache.New[[]byte](eff.PageCacheSize, cache.DefaultShards)
	if err != nil {
		closer.Close()
		return nil, err
	}
	fetcher := fetch.New(hc, fetch.WithMemo(pages), fetch.WithLogger(log))

	resolver, err := lang.NewResolver(eff.LangCacheSize)
	if err != nil {
		closer.Close()
		return nil, err
	}

	ex := extract.New(profile, fetcher, extract.Options{
		Workers:     eff.Workers,
		MinTitleLen: eff.MinTitleLen,
		Normalizer:  title.Default(),
		Logger:      log,
	})

	svc, err := query.New(query.Deps{
		Profile:   profile,
		Languages: resolver,
		Fetcher:   fetcher,
		Extractor: ex,
		Listings:  listcache.New(eff.ListingTTL),
		Logger:    log,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	log.Debug("app ready",
		"site", profile.Name,
		"base_url", profile.BaseURL,
		"workers", eff.Workers,
		"timeout", eff.Timeout,
		"config_file", eff.ConfigFile,
	)
	return &app{log: log, svc: svc, closer: closer}, nil
}
