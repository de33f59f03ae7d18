package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/cinelist/internal/app/query"
	"github.com/John-Robertt/cinelist/internal/config"
	"github.com/John-Robertt/cinelist/internal/domain"
	"github.com/John-Robertt/cinelist/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env 可选；已存在的环境变量不会被覆盖。
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run 是可测试的入口：返回进程退出码。
// 0 成功；1 运行失败（配置/输入/上游）；2 用法错误。
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Fprint(stdout, usage)
		return 0
	}
	cmd, rest := args[0], args[1:]
	for _, a := range rest {
		if isHelp(a) {
			fmt.Fprint(stdout, usage)
			return 0
		}
	}

	ca, err := parseArgs(cmd, rest)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n%s", err, usage)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	eff, err := config.LoadEffective(cwd, ca.CLI, getenv)
	if err != nil {
		emitError(stdout, httpapi.ErrorBody{Error: err.Error(), Code: config.Code(err)})
		return 1
	}

	a, err := build(eff, stderr)
	if err != nil {
		emitError(stdout, httpapi.ErrorBody{Error: err.Error(), Code: config.ErrCodeInvalid})
		return 1
	}
	defer a.closer.Close()

	switch cmd {
	case "serve":
		return serve(ctx, a, eff.Addr)
	case "languages":
		return emit(stdout, a.svc.Languages(), nil)
	case "list":
		res, err := a.svc.List(ctx, query.ListRequest{Language: ca.Language, Category: ca.Category, Page: ca.Page})
		return emit(stdout, res, err)
	case "search":
		res, err := a.svc.Search(ctx, query.SearchRequest{Language: ca.Language, Query: ca.Query})
		return emit(stdout, res, err)
	case "watch":
		res, err := a.svc.Watch(ctx, query.WatchRequest{URL: ca.URL, Title: ca.Title})
		return emit(stdout, res, err)
	}
	return 2
}

func serve(ctx context.Context, a *app, addr string) int {
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(a.svc, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info("server started", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server stopped", "err", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("shutdown error", "err", err)
		return 1
	}
	return 0
}

// emit 向 stdout 输出一个 JSON（成功为结果信封，失败为 {error, code}）。
// stdout 是终端时缩进输出，便于阅读；否则单行输出，便于管道处理。
func emit(w io.Writer, v any, err error) int {
	if err != nil {
		code := domain.ErrorCode(err)
		if code == "" {
			code = "internal"
		}
		emitError(w, httpapi.ErrorBody{Error: err.Error(), Code: code})
		return 1
	}
	writeJSON(w, v)
	return 0
}

func emitError(w io.Writer, body httpapi.ErrorBody) {
	writeJSON(w, body)
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f, ok := w.(*os.File); ok && isTTY(f) {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
