// 包 normalize 是归一化流水线：
// - 将各数据源的原始记录映射为统一的 model.Flight
// - 只保留机场当地“今天”的航班（按计划时间的日历日期严格相等）
// - 按航班号去重，保留状态最“落定”的一条，再按计划时间升序排列
// - 组装快照；上游失败时生成降级快照
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go-flight-board/internal/model"
	"go-flight-board/internal/source/aeroapi"
	"go-flight-board/internal/source/aviationstack"
	"go-flight-board/internal/source/scrape"
)

// Stats 为单个方向的处理统计。
type Stats struct {
	Raw           int
	Unsupported   int
	MissingNumber int
	NoTimestamp   int
	OtherDay      int
	Duplicates    int
	Kept          int
}

func (s Stats) String() string {
	return fmt.Sprintf("原始=%d 无航班号=%d 无计划时间=%d 非今日=%d 重复=%d 未知类型=%d 保留=%d",
		s.Raw, s.MissingNumber, s.NoTimestamp, s.OtherDay, s.Duplicates, s.Unsupported, s.Kept)
}

// Pipeline 持有机场描述与时区；Now 可替换以便测试固定“今天”。
type Pipeline struct {
	Airport model.Airport
	Loc     *time.Location
	Now     func() time.Time
}

func New(airport model.Airport, loc *time.Location) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{Airport: airport, Loc: loc, Now: time.Now}
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now().In(p.Loc)
	}
	return p.Now().In(p.Loc)
}

// Map 将单条原始记录映射为 Flight；不支持的类型返回 false。
func (p *Pipeline) Map(raw any, dir model.Direction) (model.Flight, bool) {
	switch r := raw.(type) {
	case *aviationstack.Flight:
		return fromAviationstack(r, dir), true
	case *aeroapi.Flight:
		return fromAeroAPI(r, dir, p.Loc), true
	case *scrape.Row:
		return fromScrape(r, dir), true
	}
	return model.Flight{}, false
}

// Normalize 对一个方向执行 映射 → 丢弃无航班号 → 今日过滤 → 去重 → 排序。
// 先过滤再去重：同一航班号昨天的已落地记录不应压过今天的计划记录。
func (p *Pipeline) Normalize(raws []any, dir model.Direction) ([]model.Flight, Stats) {
	st := Stats{Raw: len(raws)}
	today := p.now()
	var kept []candidate
	for i, raw := range raws {
		f, ok := p.Map(raw, dir)
		if !ok {
			st.Unsupported++
			continue
		}
		if f.FlightNumber == "" {
			st.MissingNumber++
			continue
		}
		sched, ok := ParseTimestamp(model.Deref(f.Scheduled), today)
		if !ok {
			st.NoTimestamp++
			continue
		}
		if !SameLocalDay(sched, today) {
			st.OtherDay++
			continue
		}
		kept = append(kept, candidate{flight: f, sched: sched, hasSch: true, seq: i})
	}
	deduped := dedup(kept)
	st.Duplicates = len(kept) - len(deduped)
	sortCandidates(deduped)
	out := make([]model.Flight, 0, len(deduped))
	for _, c := range deduped {
		out = append(out, c.flight)
	}
	st.Kept = len(out)
	return out, st
}

// dedup 每个航班号只保留一条：状态优先级高者胜，其次计划时间早者胜，再次先出现者胜。
func dedup(in []candidate) []candidate {
	idx := make(map[string]int, len(in))
	out := make([]candidate, 0, len(in))
	for _, c := range in {
		key := strings.ToUpper(c.flight.FlightNumber)
		j, seen := idx[key]
		if !seen {
			idx[key] = len(out)
			out = append(out, c)
			continue
		}
		if better(c, out[j]) {
			out[j] = c
		}
	}
	return out
}

func better(a, b candidate) bool {
	ra, rb := a.flight.Status.Rank(), b.flight.Status.Rank()
	if ra != rb {
		return ra > rb
	}
	if a.hasSch != b.hasSch {
		return a.hasSch
	}
	if a.hasSch && !a.sched.Equal(b.sched) {
		return a.sched.Before(b.sched)
	}
	return a.seq < b.seq
}

// sortCandidates 按计划时间升序；无法解析的排在最后；同一时间按航班号、再按出现顺序。
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.hasSch != b.hasSch {
			return a.hasSch
		}
		if a.hasSch && !a.sched.Equal(b.sched) {
			return a.sched.Before(b.sched)
		}
		if a.flight.FlightNumber != b.flight.FlightNumber {
			return a.flight.FlightNumber < b.flight.FlightNumber
		}
		return a.seq < b.seq
	})
}

// Assemble 组装快照。
func (p *Pipeline) Assemble(arrivals, departures []model.Flight) model.Snapshot {
	s := model.Snapshot{
		LastUpdated: p.now().Format(time.RFC3339),
		Airport:     p.Airport,
		Arrivals:    arrivals,
		Departures:  departures,
	}
	s.Normalize()
	return s
}

// Degraded 生成降级快照：结构不变、列表为空、error 说明原因。
func (p *Pipeline) Degraded(err error) model.Snapshot {
	return DegradedSnapshot(p.Airport, p.now(), err)
}

// DegradedSnapshot 在没有 Pipeline（如配置加载失败）时也能生成降级快照。
func DegradedSnapshot(airport model.Airport, now time.Time, err error) model.Snapshot {
	msg := "unknown error"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	s := model.Snapshot{
		LastUpdated: now.Format(time.RFC3339),
		Airport:     airport,
		Error:       msg,
	}
	s.Normalize()
	return s
}
