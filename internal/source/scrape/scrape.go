// 包 scrape 实现网页抓取源：用无头浏览器加载机场实时航班页，按 rules.yaml 选择器抽取表格行。
// - 遇到反爬验证页：记录警告并返回空列表（只影响当前方向）
// - 表格在限定时间内未出现：同样降级为空列表
// - 浏览器无法启动时回退为直接请求 HTML 并轮询
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-flight-board/internal/fetch"
	"go-flight-board/internal/logx"
	"go-flight-board/internal/model"
	"go-flight-board/internal/rules"
)

const Name = "scrape"

// Row 为表格中的一行原始数据。
type Row struct {
	FlightNumber string
	City         string
	Time         string // HH:MM，机场当地时间
	StatusText   string
}

var timeRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)

type pageState int

const (
	pagePending pageState = iota
	pageTable
	pageEmpty
	pageChallenge
)

// Adapter 为网页抓取数据源。
type Adapter struct {
	cl      *fetch.Client
	browser *Browser
	baseURL string
	icao    string
	board   rules.FlightBoard
	wait    time.Duration
	poll    time.Duration
	log     logx.Logger
}

// Option 为 Adapter 的可选参数。
type Option func(*Adapter)

// WithBrowser 使用无头浏览器渲染页面；未设置时直接请求 HTML。
func WithBrowser(b *Browser) Option { return func(a *Adapter) { a.browser = b } }

func New(cl *fetch.Client, baseURL, airportICAO string, board rules.FlightBoard, wait, poll time.Duration, opts ...Option) *Adapter {
	if poll <= 0 {
		poll = time.Second
	}
	a := &Adapter{
		cl:      cl,
		baseURL: strings.TrimRight(baseURL, "/"),
		icao:    strings.ToLower(airportICAO),
		board:   board.WithDefaults(),
		wait:    wait,
		poll:    poll,
		log:     logx.With("source", Name),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

// SetLogger 替换日志器，使告警带上运行级字段。
func (a *Adapter) SetLogger(l logx.Logger) { a.log = l }

// PageURL 返回指定方向的页面地址：{base}/{icao}/{arrivals|departures}
func (a *Adapter) PageURL(dir model.Direction) string {
	return fmt.Sprintf("%s/%s/%s", a.baseURL, url.PathEscape(a.icao), dir.Plural())
}

// Fetch 抓取单个方向。该数据源的任何失败都只降级当前方向，因此总是返回 nil 错误。
func (a *Adapter) Fetch(ctx context.Context, dir model.Direction) ([]any, error) {
	if a.browser != nil {
		rows, err := a.fetchBrowser(ctx, dir)
		if !errors.Is(err, ErrBrowserUnavailable) {
			return rows, nil
		}
		a.log.Warnf("[%s] 无头浏览器不可用，改为直接请求页面：%v", dir.Plural(), err)
	}
	return a.fetchHTTP(ctx, dir), nil
}

// fetchBrowser 渲染一次页面并等待表格或“无航班”标记出现。
// 仅在浏览器无法启动时返回 ErrBrowserUnavailable，其余失败都已降级为空列表。
func (a *Adapter) fetchBrowser(ctx context.Context, dir model.Direction) ([]any, error) {
	pageURL := a.PageURL(dir)
	html, ready, err := a.browser.Render(ctx, pageURL, cssList(a.board.Table, a.board.Empty), a.wait)
	if errors.Is(err, ErrBrowserUnavailable) {
		return nil, err
	}
	if err != nil {
		a.log.Warnf("[%s] 渲染页面失败，该方向置空：%s 错误=%v", dir.Plural(), pageURL, err)
		return []any{}, nil
	}
	rows, state, err := a.parse(html)
	if err != nil {
		a.log.Warnf("[%s] 解析页面失败，该方向置空：%v", dir.Plural(), err)
		return []any{}, nil
	}
	if rows, done := a.settle(dir, pageURL, rows, state, 1); done {
		return rows, nil
	}
	if !ready {
		a.log.Warnf("[%s] 等待 %s 后仍未出现航班表格，该方向置空：%s", dir.Plural(), a.wait, pageURL)
	} else {
		a.log.Warnf("[%s] 就绪元素已出现但未匹配到表格，该方向置空：%s", dir.Plural(), pageURL)
	}
	return []any{}, nil
}

// fetchHTTP 直接请求 HTML 并在限定时间内轮询，适用于服务端渲染的页面。
func (a *Adapter) fetchHTTP(ctx context.Context, dir model.Direction) []any {
	pageURL := a.PageURL(dir)
	deadline := time.Now().Add(a.wait)
	for attempt := 1; ; attempt++ {
		b, err := a.cl.Get(ctx, pageURL, nil)
		if err != nil {
			a.log.Warnf("[%s] 抓取页面失败，该方向置空：%s 错误=%v", dir.Plural(), pageURL, err)
			return []any{}
		}
		rows, state, err := a.parse(b)
		if err != nil {
			a.log.Warnf("[%s] 解析页面失败，该方向置空：%v", dir.Plural(), err)
			return []any{}
		}
		if rows, done := a.settle(dir, pageURL, rows, state, attempt); done {
			return rows
		}
		if !time.Now().Add(a.poll).Before(deadline) {
			a.log.Warnf("[%s] 等待 %s 后仍未出现航班表格，该方向置空：%s", dir.Plural(), a.wait, pageURL)
			return []any{}
		}
		select {
		case <-ctx.Done():
			a.log.Warnf("[%s] 等待航班表格被取消：%v", dir.Plural(), ctx.Err())
			return []any{}
		case <-time.After(a.poll):
		}
	}
}

// settle 处理已确定的页面状态；pending 返回 done=false。
func (a *Adapter) settle(dir model.Direction, pageURL string, rows []any, state pageState, attempt int) ([]any, bool) {
	switch state {
	case pageTable:
		a.log.Debugf("[%s] 第 %d 次加载解析到 %d 行", dir.Plural(), attempt, len(rows))
		return rows, true
	case pageEmpty:
		a.log.Infof("[%s] 页面显示今日无航班", dir.Plural())
		return []any{}, true
	case pageChallenge:
		a.log.Warnf("[%s] 检测到反爬验证页，该方向置空：%s", dir.Plural(), pageURL)
		return []any{}, true
	}
	return nil, false
}

// parse 判断页面状态并抽取行。
func (a *Adapter) parse(b []byte) ([]any, pageState, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, pagePending, fmt.Errorf("parse html: %w", err)
	}
	fb := a.board
	if table := findAny(doc.Selection, fb.Table); table.Length() > 0 {
		out := []any{}
		findAny(table.First(), fb.Row).Each(func(_ int, tr *goquery.Selection) {
			row := &Row{
				FlightNumber: strings.Join(strings.Fields(getVal(tr, fb.Flight)), ""),
				City:         collapse(getVal(tr, fb.City)),
				StatusText:   collapse(getVal(tr, fb.Status)),
			}
			if m := timeRe.FindStringSubmatch(rowText(tr)); m != nil {
				h, _ := strconv.Atoi(m[1])
				row.Time = fmt.Sprintf("%02d:%s", h, m[2])
			}
			if row.FlightNumber == "" && row.City == "" {
				return
			}
			out = append(out, row)
		})
		return out, pageTable, nil
	}
	if findAny(doc.Selection, fb.Empty).Length() > 0 {
		return nil, pageEmpty, nil
	}
	title := doc.Find("title").Text()
	doc.Find("script,style,noscript").Remove()
	text := strings.ToLower(title + " " + doc.Text())
	for _, marker := range fb.Challenge {
		if marker != "" && strings.Contains(text, strings.ToLower(marker)) {
			return nil, pageChallenge, nil
		}
	}
	return nil, pagePending, nil
}

// findAny 依次尝试 "||" 分隔的选择器，返回第一个非空结果。
func findAny(scope *goquery.Selection, expr string) *goquery.Selection {
	for _, p := range strings.Split(expr, "||") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sel := scope.Find(p); sel.Length() > 0 {
			return sel
		}
	}
	return scope.Slice(0, 0)
}

// getVal 解析表达式并支持 "||" 回退，例如 "a@title||a" 或 ".flight||td:first-child"。
func getVal(scope *goquery.Selection, expr string) string {
	for _, p := range strings.Split(expr, "||") {
		if v := getValSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// getValSingle 解析单个表达式："." 取当前文本，"sel@attr" 取属性，其余取选择器文本。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		target := scope
		if sel != "" {
			target = scope.Find(sel).First()
		}
		val, _ := target.Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

// rowText 以空格拼接单元格文本，避免相邻单元格粘连成一个词。
func rowText(tr *goquery.Selection) string {
	cells := tr.Find("td,th")
	if cells.Length() == 0 {
		return tr.Text()
	}
	return strings.Join(cells.Map(func(_ int, c *goquery.Selection) string { return c.Text() }), " ")
}
