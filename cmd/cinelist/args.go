package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/cinelist/internal/config"
)

// cmdArgs 是一次命令调用解析后的参数：全局覆盖项 + 命令自身的参数。
type cmdArgs struct {
	CLI config.CLIArgs

	// list / search
	Language string
	Category string
	Page     int
	Query    string

	// watch
	URL   string
	Title string
}

// valueFlags 是需要一个值的参数；同时支持 "--flag value" 与 "--flag=value"。
var valueFlags = map[string]bool{
	"--config":       true,
	"--addr":         true,
	"--proxy":        true,
	"--site-profile": true,
	"--log-level":    true,
	"--category":     true,
	"--page":         true,
	"--title":        true,
}

// allowedFlags 列出各命令接受的参数（全局参数对所有命令有效）。
var allowedFlags = map[string]map[string]bool{
	"serve":     {"--addr": true},
	"list":      {"--category": true, "--page": true},
	"search":    {},
	"watch":     {"--title": true},
	"languages": {},
}

var globalFlags = map[string]bool{
	"--config":       true,
	"--proxy":        true,
	"--site-profile": true,
	"--log-level":    true,
}

func parseArgs(cmd string, args []string) (cmdArgs, error) {
	allowed, ok := allowedFlags[cmd]
	if !ok {
		return cmdArgs{}, fmt.Errorf("未知命令：%q", cmd)
	}

	var (
		ca  cmdArgs
		pos []string
	)
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") || a == "--" {
			if a == "--" {
				pos = append(pos, args[i+1:]...)
				break
			}
			pos = append(pos, a)
			continue
		}

		name, val, hasVal := strings.Cut(a, "=")
		if !globalFlags[name] && !allowed[name] {
			return cmdArgs{}, fmt.Errorf("未知参数 %q", name)
		}
		if valueFlags[name] && !hasVal {
			if i+1 >= len(args) {
				return cmdArgs{}, fmt.Errorf("%s 需要一个值", name)
			}
			i++
			val = args[i]
		}
		if err := ca.set(name, val); err != nil {
			return cmdArgs{}, err
		}
	}

	switch cmd {
	case "list":
		if len(pos) != 1 {
			return cmdArgs{}, fmt.Errorf("list 需要且只需要一个 language 参数")
		}
		ca.Language = pos[0]
	case "search":
		if len(pos) < 2 {
			return cmdArgs{}, fmt.Errorf("search 需要 language 与 query 参数")
		}
		ca.Language = pos[0]
		ca.Query = strings.Join(pos[1:], " ")
	case "watch":
		if len(pos) != 1 {
			return cmdArgs{}, fmt.Errorf("watch 需要且只需要一个 url 参数")
		}
		ca.URL = pos[0]
	default:
		if len(pos) != 0 {
			return cmdArgs{}, fmt.Errorf("%s 不接受位置参数：%q", cmd, pos[0])
		}
	}
	return ca, nil
}

func (ca *cmdArgs) set(name, val string) error {
	switch name {
	case "--config":
		ca.CLI.ConfigPath = val
	case "--addr":
		ca.CLI.Addr, ca.CLI.AddrSet = val, true
	case "--proxy":
		ca.CLI.Proxy, ca.CLI.ProxySet = val, true
	case "--site-profile":
		ca.CLI.SiteProfile, ca.CLI.SiteProfileSet = val, true
	case "--log-level":
		ca.CLI.LogLevel, ca.CLI.LogLevelSet = val, true
	case "--category":
		ca.Category = val
	case "--page":
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("--page 必须是整数，实际是 %q", val)
		}
		ca.Page = n
	case "--title":
		ca.Title = val
	}
	return nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

const usage = `用法：
  cinelist serve     [--addr :8080]
  cinelist list      <language> [--category recent|popular] [--page N]
  cinelist search    <language> <query...>
  cinelist watch     <url> [--title T]
  cinelist languages

全局参数：
  --config PATH        配置文件（默认读取 ./cinelist.json，若存在）
  --proxy URL          出站代理
  --site-profile PATH  站点 profile（YAML，覆盖内置默认值）
  --log-level LEVEL    debug|info|warn|error
  -h, --help           显示帮助

环境变量（CINELIST_*，可写在 .env 中）优先级低于命令行参数、高于配置文件。
除 serve 外，命令向 stdout 输出一个 JSON；日志走 stderr。
`
