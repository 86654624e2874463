// 包 aviationstack 实现 REST 聚合源：每个方向一次 GET，
// 通过 arr_iata / dep_iata 过滤本机场，access_key 放在查询串中。
package aviationstack

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go-flight-board/internal/fetch"
	"go-flight-board/internal/model"
	"go-flight-board/internal/source"
)

const Name = "aviationstack"

// Flight 为上游单条记录（仅保留用到的字段）。
type Flight struct {
	FlightDate   string   `json:"flight_date"`
	FlightStatus string   `json:"flight_status"`
	Departure    Endpoint `json:"departure"`
	Arrival      Endpoint `json:"arrival"`
	Airline      Airline  `json:"airline"`
	Flight       Number   `json:"flight"`
}

// Endpoint 为出发/到达端信息。
type Endpoint struct {
	Airport   string `json:"airport"`
	Timezone  string `json:"timezone"`
	IATA      string `json:"iata"`
	ICAO      string `json:"icao"`
	Terminal  string `json:"terminal"`
	Gate      string `json:"gate"`
	Delay     *int   `json:"delay"`
	Scheduled string `json:"scheduled"`
	Estimated string `json:"estimated"`
	Actual    string `json:"actual"`
}

type Airline struct {
	Name string `json:"name"`
	IATA string `json:"iata"`
	ICAO string `json:"icao"`
}

type Number struct {
	Number string `json:"number"`
	IATA   string `json:"iata"`
	ICAO   string `json:"icao"`
}

// Response 为 /flights 响应。上游出错时 HTTP 可能仍是 200，错误放在 error 字段。
type Response struct {
	Data  []Flight `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Adapter 为 aviationstack 数据源。
type Adapter struct {
	cl      *fetch.Client
	baseURL string
	key     string
	airport string
}

func New(cl *fetch.Client, baseURL, key, airportIATA string) *Adapter {
	return &Adapter{cl: cl, baseURL: strings.TrimRight(baseURL, "/"), key: key, airport: airportIATA}
}

func (a *Adapter) Name() string { return Name }

// Fetch 拉取单个方向的航班。
func (a *Adapter) Fetch(ctx context.Context, dir model.Direction) ([]any, error) {
	if a.key == "" {
		return nil, &source.UpstreamError{Source: Name, Direction: dir, Err: errors.New("empty access key")}
	}
	q := url.Values{}
	q.Set("access_key", a.key)
	if dir == model.Departure {
		q.Set("dep_iata", a.airport)
	} else {
		q.Set("arr_iata", a.airport)
	}
	var resp Response
	if err := a.cl.GetJSON(ctx, a.baseURL+"/flights?"+q.Encode(), nil, &resp); err != nil {
		return nil, &source.UpstreamError{Source: Name, Direction: dir, Err: err}
	}
	if resp.Error != nil {
		return nil, &source.UpstreamError{Source: Name, Direction: dir,
			Err: fmt.Errorf("api error %s: %s", resp.Error.Code, resp.Error.Message)}
	}
	out := make([]any, 0, len(resp.Data))
	for i := range resp.Data {
		out = append(out, &resp.Data[i])
	}
	return out, nil
}
