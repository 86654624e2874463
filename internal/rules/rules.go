// 包 rules 负责加载并提供抓取规则（rules.yaml），
// 以预设名（如 default/fr24）组织航班表格的 CSS 选择器，用于 scrape 数据源。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个站点预设。
type Preset struct {
	FlightBoard *FlightBoard `yaml:"flight_board"`
}

// FlightBoard 描述航班表格页的选择器：
// - table/row：表格容器与行
// - flight/city/status：取文本或属性（支持 a@href、"||" 回退）
// - empty：出现即表示“今日无航班”的标记
// - challenge：页面文本中出现即视为反爬验证页（不区分大小写）
type FlightBoard struct {
	Table     string   `yaml:"table"`
	Row       string   `yaml:"row"`
	Flight    string   `yaml:"flight"`
	City      string   `yaml:"city"`
	Status    string   `yaml:"status"`
	Empty     string   `yaml:"empty"`
	Challenge []string `yaml:"challenge"`
}

// DefaultFlightBoard 为内置规则：链接文本为航班号、第二列为对端城市、最后一列为状态。
func DefaultFlightBoard() FlightBoard {
	return FlightBoard{
		Table:  "table",
		Row:    "tbody tr||tr",
		Flight: "a||td:first-child",
		City:   "td:nth-child(2)",
		Status: "td:last-child",
		Empty:  ".no-flights||.empty-state",
		Challenge: []string{
			"just a moment",
			"checking your browser",
			"attention required",
			"cf-challenge",
			"captcha",
			"access denied",
		},
	}
}

// WithDefaults 用内置规则补齐空字段。
func (fb FlightBoard) WithDefaults() FlightBoard {
	d := DefaultFlightBoard()
	if fb.Table == "" {
		fb.Table = d.Table
	}
	if fb.Row == "" {
		fb.Row = d.Row
	}
	if fb.Flight == "" {
		fb.Flight = d.Flight
	}
	if fb.City == "" {
		fb.City = d.City
	}
	if fb.Status == "" {
		fb.Status = d.Status
	}
	if fb.Empty == "" {
		fb.Empty = d.Empty
	}
	if len(fb.Challenge) == 0 {
		fb.Challenge = d.Challenge
	}
	return fb
}

func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}

// FlightBoardFor 返回主题对应的表格规则，缺失时使用内置规则。
func (r *Rules) FlightBoardFor(theme string) FlightBoard {
	if p, ok := r.GetPreset(theme); ok && p.FlightBoard != nil {
		return p.FlightBoard.WithDefaults()
	}
	return DefaultFlightBoard()
}
