// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验；凭据只从环境变量读取。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // 机场时区固定，不依赖宿主机 zoneinfo

	"gopkg.in/yaml.v3"

	"go-flight-board/internal/model"
)

// 数据源类型
const (
	SourceAviationstack = "aviationstack"
	SourceAeroAPI       = "aeroapi"
	SourceScrape        = "scrape"
)

// 凭据环境变量名
const (
	EnvAviationstackKey = "AVIATIONSTACK_API_KEY"
	EnvAeroAPIKey       = "AEROAPI_API_KEY"
)

var (
	// ErrMissingCredential 表示所选数据源需要的 API Key 缺失（ConfigError）。
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnknownSource 表示 SOURCE 不是受支持的数据源。
	ErrUnknownSource = errors.New("unknown source")
)

type Config struct {
	Source        string        `yaml:"SOURCE"` // aviationstack|aeroapi|scrape
	Airport       model.Airport `yaml:"AIRPORT"`
	Output        string        `yaml:"OUTPUT"`
	SimpleMode    bool          `yaml:"SIMPLE_MODE"`
	Database      Database      `yaml:"DATABASE"`
	Fetch         Fetch         `yaml:"FETCH"`
	Proxy         Proxy         `yaml:"PROXY"`
	Aviationstack Aviationstack `yaml:"AVIATIONSTACK"`
	AeroAPI       AeroAPI       `yaml:"AEROAPI"`
	Scrape        Scrape        `yaml:"SCRAPE"`
	LogLevel      string        `yaml:"LOG_LEVEL"`
	LogFormat     string        `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale     string        `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor      string        `yaml:"LOG_COLOR"`  // auto|always|never

	// 以下字段来自环境变量，不参与 YAML 解析
	AviationstackKey string `yaml:"-"`
	AeroAPIKey       string `yaml:"-"`

	loc *time.Location
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./flights.db
	// 运行审计记录保留天数；0 表示使用默认 30 天，负数表示不清理
	RunsKeepDays int `yaml:"runs_keep_days"`
}

// Fetch 控制两个方向的抓取方式：并发更快，顺序+间隔对抓取目标更友好。
type Fetch struct {
	Mode       string `yaml:"mode"` // concurrent|sequential
	DelayMs    int    `yaml:"delay_ms"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

type Aviationstack struct {
	BaseURL string `yaml:"base_url"`
}

type AeroAPI struct {
	BaseURL  string `yaml:"base_url"`
	MaxPages int    `yaml:"max_pages"`
}

type Scrape struct {
	BaseURL    string `yaml:"base_url"`
	Theme      string `yaml:"theme"`
	Engine     string `yaml:"engine"` // browser|http
	ChromePath string `yaml:"chrome_path"`
	NoSandbox  bool   `yaml:"no_sandbox"`
	WaitSec    int    `yaml:"wait_sec"`
	PollMs     int    `yaml:"poll_ms"`
}

// Default 返回一份已填充默认值的配置（不含凭据）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

func Load(path string) (*Config, error) {
	// Load 从文件读取 YAML 并反序列化为 Config，随后读取环境变量凭据并校验。
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	c.LoadEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadEnv 从环境变量读取凭据。
func (c *Config) LoadEnv() {
	c.AviationstackKey = strings.TrimSpace(os.Getenv(EnvAviationstackKey))
	c.AeroAPIKey = strings.TrimSpace(os.Getenv(EnvAeroAPIKey))
}

func (c *Config) Validate() error {
	// Validate 负责默认值填充与合法性检查，凭据检查单独放在 CheckCredentials。
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		c.Source = SourceAviationstack
	}
	switch c.Source {
	case SourceAviationstack, SourceAeroAPI, SourceScrape:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSource, c.Source)
	}
	if c.Airport.Code == "" {
		c.Airport = model.Airport{
			Code:     "PVR",
			ICAO:     "MMPR",
			Name:     "Aeropuerto Internacional Lic. Gustavo Díaz Ordaz",
			City:     "Puerto Vallarta",
			Timezone: "America/Bahia_Banderas",
		}
	}
	c.Airport.Code = strings.ToUpper(c.Airport.Code)
	c.Airport.ICAO = strings.ToUpper(c.Airport.ICAO)
	if c.Airport.ICAO == "" && c.Source != SourceAviationstack {
		return errors.New("AIRPORT.icao required for source " + c.Source)
	}
	if c.Airport.Timezone == "" {
		return errors.New("AIRPORT.timezone required")
	}
	loc, err := time.LoadLocation(c.Airport.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %s: %w", c.Airport.Timezone, err)
	}
	c.loc = loc
	if c.Output == "" {
		c.Output = "public/data/flights.json"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./flights.db"
	}
	if c.Database.RunsKeepDays == 0 {
		c.Database.RunsKeepDays = 30
	}
	c.Fetch.Mode = strings.ToLower(strings.TrimSpace(c.Fetch.Mode))
	switch c.Fetch.Mode {
	case "":
		// 抓取网页时默认顺序访问，API 默认并发
		if c.Source == SourceScrape {
			c.Fetch.Mode = "sequential"
		} else {
			c.Fetch.Mode = "concurrent"
		}
	case "concurrent", "sequential":
	default:
		return fmt.Errorf("unsupported FETCH.mode: %s", c.Fetch.Mode)
	}
	if c.Fetch.DelayMs < 0 {
		return errors.New("FETCH.delay_ms must be >= 0")
	}
	if c.Fetch.DelayMs == 0 && c.Fetch.Mode == "sequential" {
		c.Fetch.DelayMs = 1500
	}
	if c.Fetch.TimeoutSec <= 0 {
		c.Fetch.TimeoutSec = 25
	}
	if c.Aviationstack.BaseURL == "" {
		c.Aviationstack.BaseURL = "http://api.aviationstack.com/v1"
	}
	if c.AeroAPI.BaseURL == "" {
		c.AeroAPI.BaseURL = "https://aeroapi.flightaware.com/aeroapi"
	}
	if c.AeroAPI.MaxPages <= 0 {
		c.AeroAPI.MaxPages = 2
	}
	if c.Scrape.BaseURL == "" {
		c.Scrape.BaseURL = "https://www.flightradar24.com/data/airports"
	}
	c.Scrape.Engine = strings.ToLower(strings.TrimSpace(c.Scrape.Engine))
	switch c.Scrape.Engine {
	case "":
		c.Scrape.Engine = "browser"
	case "browser", "http":
	default:
		return fmt.Errorf("unsupported SCRAPE.engine: %s", c.Scrape.Engine)
	}
	if c.Scrape.WaitSec <= 0 {
		c.Scrape.WaitSec = 20
	}
	if c.Scrape.PollMs <= 0 {
		c.Scrape.PollMs = 2000
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// CheckCredentials 检查所选数据源所需的 API Key；抓取模式无需凭据。
func (c *Config) CheckCredentials() error {
	switch c.Source {
	case SourceAviationstack:
		if c.AviationstackKey == "" {
			return fmt.Errorf("%w: %s not set", ErrMissingCredential, EnvAviationstackKey)
		}
	case SourceAeroAPI:
		if c.AeroAPIKey == "" {
			return fmt.Errorf("%w: %s not set", ErrMissingCredential, EnvAeroAPIKey)
		}
	}
	return nil
}

// Location 返回机场所在时区；未校验的配置回退到 UTC。
func (c *Config) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// SequentialDelay 返回顺序抓取时两个方向之间的间隔；并发模式为 0。
func (c *Config) SequentialDelay() time.Duration {
	if c.Fetch.Mode != "sequential" {
		return 0
	}
	return time.Duration(c.Fetch.DelayMs) * time.Millisecond
}
