package aggregate

import (
	"fmt"
	"time"

	"go-flight-board/internal/config"
	"go-flight-board/internal/fetch"
	"go-flight-board/internal/rules"
	"go-flight-board/internal/source"
	"go-flight-board/internal/source/aeroapi"
	"go-flight-board/internal/source/aviationstack"
	"go-flight-board/internal/source/scrape"
)

// NewAdapter 按 SOURCE 选择数据源；rl 为 nil 时抓取源使用内置选择器。
func NewAdapter(cfg *config.Config, cl *fetch.Client, rl *rules.Rules) (source.Adapter, error) {
	switch cfg.Source {
	case config.SourceAviationstack:
		return aviationstack.New(cl, cfg.Aviationstack.BaseURL, cfg.AviationstackKey, cfg.Airport.Code), nil
	case config.SourceAeroAPI:
		return aeroapi.New(cl, cfg.AeroAPI.BaseURL, cfg.AeroAPIKey, cfg.Airport.ICAO, cfg.AeroAPI.MaxPages), nil
	case config.SourceScrape:
		var opts []scrape.Option
		if cfg.Scrape.Engine == "browser" {
			opts = append(opts, scrape.WithBrowser(&scrape.Browser{
				ExecPath:  cfg.Scrape.ChromePath,
				Proxy:     pick(cfg.Proxy.HTTPS, cfg.Proxy.HTTP),
				UserAgent: fetch.UserAgent(),
				NoSandbox: cfg.Scrape.NoSandbox,
			}))
		}
		return scrape.New(cl, cfg.Scrape.BaseURL, cfg.Airport.ICAO,
			rl.FlightBoardFor(cfg.Scrape.Theme),
			time.Duration(cfg.Scrape.WaitSec)*time.Second,
			time.Duration(cfg.Scrape.PollMs)*time.Millisecond, opts...), nil
	}
	return nil, fmt.Errorf("%w: %s", config.ErrUnknownSource, cfg.Source)
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
