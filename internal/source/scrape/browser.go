package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrBrowserUnavailable 表示无头浏览器无法启动（未安装或无权限）。
var ErrBrowserUnavailable = errors.New("headless browser unavailable")

// Browser 用无头 Chrome 渲染页面：导航后等待就绪选择器可见，再取整页 HTML。
type Browser struct {
	ExecPath  string // 为空时由 chromedp 自行查找
	Proxy     string
	UserAgent string
	NoSandbox bool // 以 root 运行（容器内）时需要
}

// Render 返回渲染后的 HTML；ready 为 true 表示在 wait 内等到了就绪选择器。
// 超时不算错误，仍返回当时的页面，由调用方判断是否为验证页。
func (b *Browser) Render(ctx context.Context, pageURL, readySel string, wait time.Duration) ([]byte, bool, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	if b.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.Proxy))
	}
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	if b.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// 空 Run 只负责启动浏览器；浏览器生命周期绑定在 tabCtx 上，不受下面等待超时影响
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	waitCtx, cancelWait := context.WithTimeout(tabCtx, wait)
	err := chromedp.Run(waitCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(readySel, chromedp.ByQuery),
	)
	cancelWait()
	ready := err == nil
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, false, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, ready, fmt.Errorf("read html %s: %w", pageURL, err)
	}
	return []byte(html), ready, nil
}

// cssList 将规则里的 "a||b" 回退写法转为浏览器可用的选择器列表 "a, b"。
func cssList(exprs ...string) string {
	var parts []string
	for _, e := range exprs {
		for _, p := range strings.Split(e, "||") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, ", ")
}
