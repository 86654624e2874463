package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go-flight-board/internal/model"
)

// Signals 为结构化数据源提供的状态信号。
// 只有预计时间而没有实际起飞事件的到达航班视为 Scheduled，预计时间不参与判断。
type Signals struct {
	Direction       model.Direction
	Cancelled       bool
	Diverted        bool
	ActualArrival   bool // 到达航班：已落地/已到位
	ActualDeparture bool // 到达航班：已从始发地起飞；出发航班：已离开本场
}

// InferStatus 按固定优先级推断状态，先命中者胜出。
func InferStatus(s Signals) model.Status {
	switch {
	case s.Cancelled:
		return model.StatusCancelled
	case s.Diverted:
		return model.StatusDiverted
	}
	if s.Direction == model.Departure {
		if s.ActualDeparture {
			return model.StatusDeparted
		}
		return model.StatusScheduled
	}
	if s.ActualArrival {
		return model.StatusLanded
	}
	if s.ActualDeparture {
		return model.StatusEnRoute
	}
	return model.StatusScheduled
}

// textRules 为自由文本状态的匹配顺序（不区分大小写的子串匹配）。
var textRules = []struct {
	status  model.Status
	needles []string
}{
	{model.StatusCancelled, []string{"cancel"}},
	{model.StatusDiverted, []string{"divert", "desviado"}},
	{model.StatusIncident, []string{"incident", "incidente"}},
	{model.StatusEnRoute, []string{"en route", "en-route", "enroute", "active", "in air", "in-air", "airborne", "en vuelo"}},
	{model.StatusLanded, []string{"landed", "arrived", "aterriz", "llegó", "arribó"}},
	{model.StatusDeparted, []string{"departed", "despeg", "salió"}},
	{model.StatusDelayed, []string{"delay", "retras", "demora"}},
	{model.StatusScheduled, []string{"scheduled", "programado", "on time", "a tiempo"}},
}

// StatusFromText 将上游自由文本映射到状态枚举；未命中时首字母大写后原样透传。
// 空文本返回空串，由调用方决定回退策略。
func StatusFromText(text string) model.Status {
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return ""
	}
	lower := strings.ToLower(t)
	for _, r := range textRules {
		for _, n := range r.needles {
			if strings.Contains(lower, n) {
				return r.status
			}
		}
	}
	// Caser 带状态，不能跨 goroutine 共享
	return model.Status(cases.Title(language.Und).String(t))
}
