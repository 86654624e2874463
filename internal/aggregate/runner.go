// 包 aggregate 负责单次运行的编排：
// - 按配置选择数据源，抓取到达/出发两个方向（并发，或顺序并间隔）
// - 两个方向在汇合点合并后归一化
// - 组装快照；任一方向失败则整体返回降级快照与错误
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-flight-board/internal/config"
	"go-flight-board/internal/logx"
	"go-flight-board/internal/model"
	"go-flight-board/internal/normalize"
	"go-flight-board/internal/source"
)

// Runner 单次运行执行器，持有配置/数据源/流水线。
type Runner struct {
	cfg  *config.Config
	src  source.Adapter
	pipe *normalize.Pipeline
	log  logx.Logger
	// RunID 在日志与 runs 审计表中标识本次运行
	RunID string
	// Stats 记录最近一次运行各方向的处理统计
	Stats map[model.Direction]normalize.Stats
}

// New 创建 Runner。
func New(cfg *config.Config, src source.Adapter) *Runner {
	id := uuid.NewString()
	r := &Runner{
		cfg:   cfg,
		src:   src,
		pipe:  normalize.New(cfg.Airport, cfg.Location()),
		log:   logx.With("run", id[:8], "source", src.Name()),
		RunID: id,
		Stats: map[model.Direction]normalize.Stats{},
	}
	if ls, ok := src.(source.LoggerSetter); ok {
		ls.SetLogger(r.log)
	}
	return r
}

// Pipeline 暴露归一化流水线，便于替换时钟。
func (r *Runner) Pipeline() *normalize.Pipeline { return r.pipe }

// Run 执行一轮：抓取→汇合→归一化→组装。
// 出错时返回的快照已是降级快照，调用方照常写出即可。
func (r *Runner) Run(ctx context.Context) (model.Snapshot, error) {
	start := time.Now()
	r.log.Infof("开始运行：机场=%s 抓取模式=%s", r.cfg.Airport.Code, r.cfg.Fetch.Mode)

	buf := NewJoinBuffer()
	if r.cfg.Fetch.Mode == "sequential" {
		r.fetchSequential(ctx, buf)
	} else {
		r.fetchConcurrent(ctx, buf)
	}
	if err := buf.Err(); err != nil {
		r.log.Errorf("抓取失败，生成降级快照：%v", err)
		return r.pipe.Degraded(err), err
	}

	lists := make(map[model.Direction][]model.Flight, 2)
	for _, dir := range model.Directions() {
		raws := buf.Raws(dir)
		flights, st := r.pipe.Normalize(raws, dir)
		r.Stats[dir] = st
		lists[dir] = flights
		r.log.Infof("[%s] 抓取耗时=%s %s", dir.Plural(), buf.duration(dir), st)
	}
	snap := r.pipe.Assemble(lists[model.Arrival], lists[model.Departure])
	r.log.Infof("运行完成：到达=%d 出发=%d 总耗时=%s",
		len(snap.Arrivals), len(snap.Departures), time.Since(start).Round(time.Millisecond))
	return snap, nil
}

func (r *Runner) fetchOne(ctx context.Context, dir model.Direction, buf *JoinBuffer) error {
	t0 := time.Now()
	raws, err := r.src.Fetch(ctx, dir)
	dur := time.Since(t0).Round(time.Millisecond).String()
	if err != nil {
		r.log.Warnf("[%s] 抓取失败：%v", dir.Plural(), err)
		buf.Put(dir, nil, err, dur)
		return err
	}
	r.log.Debugf("[%s] 原始记录=%d", dir.Plural(), len(raws))
	buf.Put(dir, raws, nil, dur)
	return nil
}

func (r *Runner) fetchConcurrent(ctx context.Context, buf *JoinBuffer) {
	var wg sync.WaitGroup
	for _, dir := range model.Directions() {
		dir := dir
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.fetchOne(ctx, dir, buf)
		}()
	}
	wg.Wait()
}

// fetchSequential 顺序抓取，方向之间暂停；前一方向失败则不再请求后一方向。
func (r *Runner) fetchSequential(ctx context.Context, buf *JoinBuffer) {
	delay := r.cfg.SequentialDelay()
	for i, dir := range model.Directions() {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				buf.Put(dir, nil, fmt.Errorf("wait before %s: %w", dir.Plural(), ctx.Err()), "0s")
				return
			case <-time.After(delay):
			}
		}
		if err := r.fetchOne(ctx, dir, buf); err != nil {
			return
		}
	}
}
