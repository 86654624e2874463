// 命令行入口（每次调用执行一轮）：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端，按 SOURCE 选择数据源
// - 抓取→归一化→写出 flights.json；任何失败都仍写出合法 JSON 并以非 0 退出
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-flight-board/internal/aggregate"
	"go-flight-board/internal/board"
	"go-flight-board/internal/config"
	"go-flight-board/internal/export"
	"go-flight-board/internal/fetch"
	"go-flight-board/internal/logx"
	"go-flight-board/internal/model"
	"go-flight-board/internal/normalize"
	"go-flight-board/internal/rules"
)

func main() { os.Exit(run(os.Args[1:], os.Stdout)) }

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("flight-board", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = fs.String("rules", "rules.yaml", "path to rules.yaml (optional, scrape selectors)")
		exportPath = fs.String("export", "", "output json path (default: OUTPUT in settings.yaml)")
		printBoard = fs.Bool("print", false, "print the written snapshot as terminal tables")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 1) 加载配置：失败时仍用默认机场描述写出降级快照
	cfg, err := config.Load(*configPath)
	if err != nil {
		logx.Init("info", "pretty", "zh-CN", "auto")
		logx.Errorf("加载配置失败：%v", err)
		def := config.Default()
		out := pick(*exportPath, def.Output)
		writeDegraded(out, normalize.DegradedSnapshot(def.Airport, time.Now().In(def.Location()), err))
		return 1
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	out := pick(*exportPath, cfg.Output)
	degrade := func(err error) int {
		writeDegraded(out, normalize.DegradedSnapshot(cfg.Airport, time.Now().In(cfg.Location()), err))
		return 1
	}

	if err := cfg.CheckCredentials(); err != nil {
		logx.Errorf("凭据缺失：%v", err)
		return degrade(err)
	}

	var rl *rules.Rules
	if cfg.Source == config.SourceScrape && *rulesPath != "" {
		if r, err := rules.Load(*rulesPath); err == nil {
			rl = r
		} else {
			logx.Warnf("加载 rules.yaml 失败，使用内置选择器：%v", err)
		}
	}

	// 3) 初始化 HTTP 客户端（代理与超时，不重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
	})
	if err != nil {
		logx.Errorf("初始化 HTTP 客户端失败：%v", err)
		return degrade(err)
	}
	src, err := aggregate.NewAdapter(cfg, cl, rl)
	if err != nil {
		logx.Errorf("选择数据源失败：%v", err)
		return degrade(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4) 运行：出错时 snap 已是降级快照
	started := time.Now()
	runner := aggregate.New(cfg, src)
	snap, runErr := runner.Run(ctx)
	code := 0
	if runErr != nil {
		code = 1
	}

	// 5) 写出：数据库失败时仍写出本次快照，但以非 0 退出
	if err := runner.Persist(ctx, snap, out, started); err != nil {
		logx.Errorf("持久化失败：%v", err)
		code = 1
	} else if code == 0 {
		logx.Infof("已导出 %s：到达=%d 出发=%d", out, len(snap.Arrivals), len(snap.Departures))
	}

	// 打印实际写出的文件内容；读不回来时退回内存中的快照
	if *printBoard {
		shown, err := export.ReadJSON(out)
		if err != nil {
			logx.Warnf("读取 %s 失败，打印内存中的快照：%v", out, err)
			shown = snap
		}
		if err := board.Render(stdout, shown, cfg.LogLocale); err != nil {
			logx.Warnf("打印航班表失败：%v", err)
		}
	}
	return code
}

// writeDegraded 写出降级快照；连降级快照都写不出时只能记录日志。
func writeDegraded(path string, snap model.Snapshot) {
	if err := export.WriteJSON(path, snap); err != nil {
		logx.Errorf("写出降级快照 %s 失败：%v", path, err)
		return
	}
	logx.Warnf("已写出降级快照 %s：%s", path, snap.Error)
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
