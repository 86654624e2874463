// 包 model 定义导出的数据模型（航班/机场/快照），即 flights.json 的结构契约。
package model

import "strings"

// Direction 表示航班方向：到达或出发。方向决定 Flight 中哪一组地点字段有值。
type Direction string

const (
	Arrival   Direction = "arrival"
	Departure Direction = "departure"
)

// Directions 按固定顺序返回两个方向（先到达后出发）。
func Directions() []Direction { return []Direction{Arrival, Departure} }

// Plural 返回 URL 路径与日志中使用的复数形式（arrivals/departures）。
func (d Direction) Plural() string {
	if d == Departure {
		return "departures"
	}
	return "arrivals"
}

func (d Direction) Valid() bool { return d == Arrival || d == Departure }

// Status 为航班状态。枚举集合封闭；无法识别的上游文本以首字母大写形式原样透传。
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusEnRoute   Status = "En Route"
	StatusLanded    Status = "Landed"
	StatusDeparted  Status = "Departed"
	StatusDelayed   Status = "Delayed"
	StatusCancelled Status = "Cancelled"
	StatusDiverted  Status = "Diverted"
	StatusIncident  Status = "Incident"
)

var knownStatuses = []Status{
	StatusScheduled, StatusEnRoute, StatusLanded, StatusDeparted,
	StatusDelayed, StatusCancelled, StatusDiverted, StatusIncident,
}

// Known 判断是否属于固定枚举。
func (s Status) Known() bool {
	for _, k := range knownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Rank 为去重时的状态优先级：越“落定”的记录越大。
// Landed/Departed > En Route/Diverted/Incident > Scheduled/Delayed > 透传文本 > Cancelled
func (s Status) Rank() int {
	switch s {
	case StatusLanded, StatusDeparted:
		return 4
	case StatusEnRoute, StatusDiverted, StatusIncident:
		return 3
	case StatusScheduled, StatusDelayed:
		return 2
	case StatusCancelled:
		return 0
	default:
		if strings.TrimSpace(string(s)) == "" {
			return 0
		}
		return 1
	}
}

// Flight 为归一化后的航班条目。
// 到达航班仅填 origin/originCode，出发航班仅填 destination/destinationCode，另一组保持 null。
type Flight struct {
	FlightNumber    string  `json:"flightNumber"`
	Airline         string  `json:"airline"`
	AirlineCode     string  `json:"airlineCode"`
	Origin          *string `json:"origin"`
	OriginCode      *string `json:"originCode"`
	Destination     *string `json:"destination"`
	DestinationCode *string `json:"destinationCode"`
	Scheduled       *string `json:"scheduled"`
	Estimated       *string `json:"estimated"`
	Actual          *string `json:"actual"`
	Status          Status  `json:"status"`
	Terminal        *string `json:"terminal"`
	Gate            *string `json:"gate"`
}

// Direction 由地点字段推断方向。
func (f Flight) Direction() Direction {
	if f.Destination != nil || f.DestinationCode != nil {
		return Departure
	}
	return Arrival
}

// Airport 为静态机场描述。
type Airport struct {
	Code     string `json:"code"`
	ICAO     string `json:"icao"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`
}

// Snapshot 为 flights.json 顶层结构，每次运行整体重建。
type Snapshot struct {
	LastUpdated string   `json:"lastUpdated"`
	Airport     Airport  `json:"airport"`
	Arrivals    []Flight `json:"arrivals"`
	Departures  []Flight `json:"departures"`
	Error       string   `json:"error,omitempty"`
}

// Normalize 保证列表序列化为 [] 而不是 null。
func (s *Snapshot) Normalize() {
	if s.Arrivals == nil {
		s.Arrivals = []Flight{}
	}
	if s.Departures == nil {
		s.Departures = []Flight{}
	}
}

// Degraded 判断是否为降级快照。
func (s Snapshot) Degraded() bool { return s.Error != "" }

// Str 返回字符串指针；空串视为缺失。
func Str(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref 读取可空字符串。
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
