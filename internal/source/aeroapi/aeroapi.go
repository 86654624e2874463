// 包 aeroapi 实现第二种 REST 源：整座机场一次 GET（/airports/{icao}/flights），
// 凭据放在 x-apikey 请求头，响应由服务端按到达/出发分组。
package aeroapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-flight-board/internal/fetch"
	"go-flight-board/internal/model"
	"go-flight-board/internal/source"
)

const Name = "aeroapi"

// AirportRef 为航班中引用的机场。
type AirportRef struct {
	Code     *string `json:"code"`
	CodeICAO *string `json:"code_icao"`
	CodeIATA *string `json:"code_iata"`
	Name     *string `json:"name"`
	City     *string `json:"city"`
}

// Flight 为上游 BaseFlight 的子集。
type Flight struct {
	Ident               string      `json:"ident"`
	IdentICAO           *string     `json:"ident_icao"`
	IdentIATA           *string     `json:"ident_iata"`
	Operator            *string     `json:"operator"`
	OperatorICAO        *string     `json:"operator_icao"`
	OperatorIATA        *string     `json:"operator_iata"`
	Diverted            bool        `json:"diverted"`
	Cancelled           bool        `json:"cancelled"`
	Origin              *AirportRef `json:"origin"`
	Destination         *AirportRef `json:"destination"`
	Status              string      `json:"status"`
	GateOrigin          *string     `json:"gate_origin"`
	GateDestination     *string     `json:"gate_destination"`
	TerminalOrigin      *string     `json:"terminal_origin"`
	TerminalDestination *string     `json:"terminal_destination"`
	ScheduledOut        *time.Time  `json:"scheduled_out"`
	EstimatedOut        *time.Time  `json:"estimated_out"`
	ActualOut           *time.Time  `json:"actual_out"`
	ScheduledOff        *time.Time  `json:"scheduled_off"`
	EstimatedOff        *time.Time  `json:"estimated_off"`
	ActualOff           *time.Time  `json:"actual_off"`
	ScheduledOn         *time.Time  `json:"scheduled_on"`
	EstimatedOn         *time.Time  `json:"estimated_on"`
	ActualOn            *time.Time  `json:"actual_on"`
	ScheduledIn         *time.Time  `json:"scheduled_in"`
	EstimatedIn         *time.Time  `json:"estimated_in"`
	ActualIn            *time.Time  `json:"actual_in"`
}

// AirportFlights 为 /airports/{id}/flights 响应，包含已执行与计划中的四个分组。
type AirportFlights struct {
	Arrivals            []Flight `json:"arrivals"`
	Departures          []Flight `json:"departures"`
	ScheduledArrivals   []Flight `json:"scheduled_arrivals"`
	ScheduledDepartures []Flight `json:"scheduled_departures"`
}

// Adapter 为 AeroAPI 数据源。一次运行只请求一次，两个方向共享结果。
type Adapter struct {
	cl       *fetch.Client
	baseURL  string
	key      string
	icao     string
	maxPages int

	mu   sync.Mutex
	done bool
	resp AirportFlights
	err  error
}

func New(cl *fetch.Client, baseURL, key, airportICAO string, maxPages int) *Adapter {
	return &Adapter{cl: cl, baseURL: strings.TrimRight(baseURL, "/"), key: key, icao: airportICAO, maxPages: maxPages}
}

func (a *Adapter) Name() string { return Name }

// Fetch 返回指定方向的航班：已执行分组在前，计划分组在后，重复由归一化阶段去重。
func (a *Adapter) Fetch(ctx context.Context, dir model.Direction) ([]any, error) {
	resp, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	var groups [][]Flight
	if dir == model.Departure {
		groups = [][]Flight{resp.Departures, resp.ScheduledDepartures}
	} else {
		groups = [][]Flight{resp.Arrivals, resp.ScheduledArrivals}
	}
	var out []any
	for _, g := range groups {
		for i := range g {
			out = append(out, &g[i])
		}
	}
	return out, nil
}

// load 执行唯一一次请求；失败同样被缓存，另一方向直接得到同一错误。
func (a *Adapter) load(ctx context.Context) (AirportFlights, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return a.resp, a.err
	}
	a.done = true
	if a.key == "" {
		a.err = &source.UpstreamError{Source: Name, Err: errors.New("empty api key")}
		return a.resp, a.err
	}
	q := url.Values{}
	q.Set("max_pages", strconv.Itoa(a.maxPages))
	u := fmt.Sprintf("%s/airports/%s/flights?%s", a.baseURL, url.PathEscape(a.icao), q.Encode())
	h := http.Header{}
	h.Set("x-apikey", a.key)
	h.Set("Accept", "application/json")
	if err := a.cl.GetJSON(ctx, u, h, &a.resp); err != nil {
		a.err = &source.UpstreamError{Source: Name, Err: err}
	}
	return a.resp, a.err
}
