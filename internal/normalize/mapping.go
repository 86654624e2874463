package normalize

import (
	"regexp"
	"strings"
	"time"

	"go-flight-board/internal/model"
	"go-flight-board/internal/source/aeroapi"
	"go-flight-board/internal/source/aviationstack"
	"go-flight-board/internal/source/scrape"
)

// candidate 为映射后的单条记录，附带解析好的计划时间供过滤/去重/排序使用。
type candidate struct {
	flight model.Flight
	sched  time.Time
	hasSch bool
	seq    int
}

// place 为对端地点。
type place struct{ name, code string }

// setPlace 按方向写入对端地点：到达写 origin，出发写 destination。两个字段都保证非 null。
func setPlace(f *model.Flight, dir model.Direction, p place) {
	code := strings.ToUpper(strings.TrimSpace(p.code))
	name := strings.TrimSpace(p.name)
	if name == "" {
		name = code
	}
	if name == "" {
		name = "Unknown"
	}
	if dir == model.Departure {
		f.Destination, f.DestinationCode = &name, &code
		return
	}
	f.Origin, f.OriginCode = &name, &code
}

func first(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstPtr(vals ...*string) string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

func cleanNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// fromAviationstack 映射 REST 聚合源记录；时间字符串原样保留。
func fromAviationstack(r *aviationstack.Flight, dir model.Direction) model.Flight {
	num := first(r.Flight.IATA, r.Flight.ICAO)
	if num == "" && r.Airline.IATA != "" && r.Flight.Number != "" {
		num = r.Airline.IATA + r.Flight.Number
	}
	num = cleanNumber(num)
	code := strings.ToUpper(first(r.Airline.IATA, r.Airline.ICAO))
	if code == "" {
		code, _ = carrierFromFlightNumber(num)
	}
	f := model.Flight{
		FlightNumber: num,
		Airline:      resolveAirline(r.Airline.Name, r.Airline.IATA, r.Airline.ICAO, code),
		AirlineCode:  code,
	}
	local, remote := r.Arrival, r.Departure
	if dir == model.Departure {
		local, remote = r.Departure, r.Arrival
	}
	setPlace(&f, dir, place{name: first(remote.Airport, remote.IATA), code: first(remote.IATA, remote.ICAO)})
	f.Scheduled = model.Str(local.Scheduled)
	f.Estimated = model.Str(local.Estimated)
	f.Actual = model.Str(local.Actual)
	f.Terminal = model.Str(local.Terminal)
	f.Gate = model.Str(local.Gate)

	f.Status = StatusFromText(r.FlightStatus)
	if f.Status == "" {
		f.Status = InferStatus(Signals{
			Direction:       dir,
			ActualArrival:   dir == model.Arrival && r.Arrival.Actual != "",
			ActualDeparture: r.Departure.Actual != "",
		})
	}
	return f
}

// fromAeroAPI 映射第二种 REST 源记录；时间统一格式化为机场当地时区的 RFC3339。
// 计划时间优先取到位/推出时间（in/out），缺失时回退到落地/起飞时间（on/off）。
func fromAeroAPI(r *aeroapi.Flight, dir model.Direction, loc *time.Location) model.Flight {
	num := cleanNumber(first(firstPtr(r.IdentIATA), firstPtr(r.IdentICAO), r.Ident))
	code := strings.ToUpper(first(firstPtr(r.OperatorIATA), firstPtr(r.OperatorICAO), firstPtr(r.Operator)))
	if code == "" {
		code, _ = carrierFromFlightNumber(num)
	}
	f := model.Flight{
		FlightNumber: num,
		Airline:      resolveAirline("", firstPtr(r.OperatorIATA), firstPtr(r.OperatorICAO), firstPtr(r.Operator), code),
		AirlineCode:  code,
	}
	remote := r.Origin
	if dir == model.Departure {
		remote = r.Destination
	}
	if remote != nil {
		setPlace(&f, dir, place{
			name: firstPtr(remote.City, remote.Name, remote.CodeIATA, remote.Code),
			code: firstPtr(remote.CodeIATA, remote.CodeICAO, remote.Code),
		})
	} else {
		setPlace(&f, dir, place{})
	}
	if dir == model.Departure {
		f.Scheduled = fmtTime(pick(r.ScheduledOut, r.ScheduledOff), loc)
		f.Estimated = fmtTime(pick(r.EstimatedOut, r.EstimatedOff), loc)
		f.Actual = fmtTime(pick(r.ActualOut, r.ActualOff), loc)
		f.Terminal = model.Str(firstPtr(r.TerminalOrigin))
		f.Gate = model.Str(firstPtr(r.GateOrigin))
	} else {
		f.Scheduled = fmtTime(pick(r.ScheduledIn, r.ScheduledOn), loc)
		f.Estimated = fmtTime(pick(r.EstimatedIn, r.EstimatedOn), loc)
		f.Actual = fmtTime(pick(r.ActualIn, r.ActualOn), loc)
		f.Terminal = model.Str(firstPtr(r.TerminalDestination))
		f.Gate = model.Str(firstPtr(r.GateDestination))
	}
	sig := Signals{Direction: dir, Cancelled: r.Cancelled, Diverted: r.Diverted}
	if dir == model.Departure {
		sig.ActualDeparture = r.ActualOut != nil || r.ActualOff != nil
	} else {
		sig.ActualArrival = r.ActualOn != nil || r.ActualIn != nil
		sig.ActualDeparture = r.ActualOff != nil || r.ActualOut != nil
	}
	f.Status = InferStatus(sig)
	return f
}

var cityCodeRe = regexp.MustCompile(`^(.*?)\s*\(([A-Za-z0-9]{3,4})\)\s*$`)

// fromScrape 映射网页表格行；时间为当地 HH:MM，承运人由航班号前缀查表。
func fromScrape(r *scrape.Row, dir model.Direction) model.Flight {
	num := cleanNumber(r.FlightNumber)
	code, name := carrierFromFlightNumber(num)
	f := model.Flight{
		FlightNumber: num,
		Airline:      resolveAirline(name, code),
		AirlineCode:  code,
		Scheduled:    model.Str(r.Time),
	}
	p := place{name: r.City}
	if m := cityCodeRe.FindStringSubmatch(r.City); m != nil {
		p = place{name: m[1], code: m[2]}
	}
	setPlace(&f, dir, p)
	f.Status = StatusFromText(r.StatusText)
	if f.Status == "" {
		f.Status = model.StatusScheduled
	}
	return f
}

func pick(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return nil
}

func fmtTime(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339)
	return &s
}
