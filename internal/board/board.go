// 包 board 将快照渲染为终端对齐表格（到达/出发两张表），按显示宽度对齐中日韩与重音字符。
package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"go-flight-board/internal/model"
)

// maxCell 为单元格最大显示宽度，超出截断。
const maxCell = 28

var headers = map[string][]string{
	"en":    {"Time", "Flight", "Airline", "%s", "Status", "Term", "Gate"},
	"zh-CN": {"时间", "航班", "航空公司", "%s", "状态", "航站楼", "登机口"},
}

var counterpart = map[string][2]string{
	"en":    {"From", "To"},
	"zh-CN": {"始发地", "目的地"},
}

var zhStatus = map[model.Status]string{
	model.StatusScheduled: "计划",
	model.StatusEnRoute:   "飞行中",
	model.StatusLanded:    "已到达",
	model.StatusDeparted:  "已起飞",
	model.StatusDelayed:   "延误",
	model.StatusCancelled: "取消",
	model.StatusDiverted:  "备降",
	model.StatusIncident:  "事故",
}

// Render 写出快照的两张表；降级快照会先打印错误原因。
func Render(w io.Writer, snap model.Snapshot, locale string) error {
	locale = normLocale(locale)
	title := fmt.Sprintf("%s (%s) %s  %s", snap.Airport.Name, snap.Airport.Code, snap.Airport.City, snap.LastUpdated)
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if snap.Degraded() {
		if _, err := fmt.Fprintf(w, "! %s\n", snap.Error); err != nil {
			return err
		}
	}
	for _, dir := range model.Directions() {
		list := snap.Arrivals
		if dir == model.Departure {
			list = snap.Departures
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", sectionName(locale, dir), len(list)); err != nil {
			return err
		}
		for _, line := range Table(list, dir, locale) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Table 返回对齐后的表格行（含表头与分隔线）。
func Table(list []model.Flight, dir model.Direction, locale string) []string {
	locale = normLocale(locale)
	head := append([]string(nil), headers[locale]...)
	cp := counterpart[locale][0]
	if dir == model.Departure {
		cp = counterpart[locale][1]
	}
	head[3] = fmt.Sprintf(head[3], cp)

	rows := [][]string{head}
	for _, f := range list {
		rows = append(rows, []string{
			clock(model.Deref(f.Scheduled)),
			f.FlightNumber,
			f.Airline,
			place(f, dir),
			statusLabel(f.Status, locale),
			orDash(model.Deref(f.Terminal)),
			orDash(model.Deref(f.Gate)),
		})
	}

	widths := make([]int, len(head))
	for _, r := range rows {
		for i := range r {
			r[i] = runewidth.Truncate(r[i], maxCell, "…")
			if n := runewidth.StringWidth(r[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	out := make([]string, 0, len(rows)+1)
	for i, r := range rows {
		var sb strings.Builder
		for j, cell := range r {
			if j > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[j]))
		}
		out = append(out, strings.TrimRight(sb.String(), " "))
		if i == 0 {
			var sep strings.Builder
			for j, n := range widths {
				if j > 0 {
					sep.WriteString("  ")
				}
				sep.WriteString(strings.Repeat("-", n))
			}
			out = append(out, sep.String())
		}
	}
	return out
}

func place(f model.Flight, dir model.Direction) string {
	name, code := model.Deref(f.Origin), model.Deref(f.OriginCode)
	if dir == model.Departure {
		name, code = model.Deref(f.Destination), model.Deref(f.DestinationCode)
	}
	switch {
	case code == "" || strings.EqualFold(name, code):
		return orDash(name)
	case name == "":
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// clock 从 ISO-8601 时间中取出 HH:MM；已是 HH:MM 的原样返回。
func clock(s string) string {
	if i := strings.IndexAny(s, "T "); i >= 0 && len(s) >= i+6 {
		return s[i+1 : i+6]
	}
	return orDash(s)
}

// statusLabel 只翻译固定枚举；透传的上游文本原样显示。
func statusLabel(s model.Status, locale string) string {
	if locale == "zh-CN" && s.Known() {
		return zhStatus[s]
	}
	return orDash(string(s))
}

func sectionName(locale string, dir model.Direction) string {
	if locale == "zh-CN" {
		if dir == model.Departure {
			return "出发"
		}
		return "到达"
	}
	if dir == model.Departure {
		return "Departures"
	}
	return "Arrivals"
}

func normLocale(l string) string {
	if strings.HasPrefix(strings.ToLower(l), "zh") {
		return "zh-CN"
	}
	return "en"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
