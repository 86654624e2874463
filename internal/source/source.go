// 包 source 定义数据源适配器接口：按方向返回上游原始记录，不做任何归一化。
// 三种实现（aviationstack / aeroapi / scrape）按配置三选一，见 aggregate.NewAdapter。
package source

import (
	"context"
	"fmt"

	"go-flight-board/internal/logx"
	"go-flight-board/internal/model"
)

// Adapter 为单一上游数据源。
// Fetch 返回的记录类型由具体实现决定（*aviationstack.Flight、*aeroapi.Flight、*scrape.Row）。
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, dir model.Direction) ([]any, error)
}

// LoggerSetter 由需要自行记录日志的数据源实现，运行器借此注入带 run/source 字段的日志器。
type LoggerSetter interface {
	SetLogger(l logx.Logger)
}

// UpstreamError 表示上游不可用：非 2xx、响应体非法或上游在载荷中报告错误。
type UpstreamError struct {
	Source    string
	Direction model.Direction
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Direction == "" {
		return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("upstream %s (%s): %v", e.Source, e.Direction, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
