package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-flight-board/internal/export"
	"go-flight-board/internal/model"
	"go-flight-board/internal/store"
)

// Persist 写出本次运行的快照：
// - 极简模式：直接写 JSON
// - 正常模式：先替换库中快照并记录运行，再从库导出
// 数据库只是镜像：库出错时仍把 snap 原样写出，同时返回错误使进程以非 0 退出。
func (r *Runner) Persist(ctx context.Context, snap model.Snapshot, out string, started time.Time) error {
	if r.cfg.SimpleMode {
		if err := export.WriteJSON(out, snap); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		return nil
	}

	st, err := store.OpenSQLite(r.cfg.Database.DSN)
	if err != nil {
		r.log.Errorf("打开数据库失败，跳过镜像直接写出：%v", err)
		return r.writeDirect(out, snap, fmt.Errorf("open store: %w", err))
	}
	defer st.Close()

	if err := st.ReplaceSnapshot(ctx, r.RunID, snap); err != nil {
		r.log.Errorf("写入快照失败，跳过镜像直接写出：%v", err)
		return r.writeDirect(out, snap, fmt.Errorf("replace snapshot: %w", err))
	}
	var persistErr error
	if _, err := export.FromStore(ctx, st, out); err != nil {
		r.log.Errorf("从库导出失败，改为直接写出：%v", err)
		persistErr = r.writeDirect(out, snap, fmt.Errorf("export from store: %w", err))
	}

	rec := store.Run{
		ID:         r.RunID,
		Source:     r.src.Name(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Arrivals:   len(snap.Arrivals),
		Departures: len(snap.Departures),
		Error:      snap.Error,
	}
	if err := st.RecordRun(ctx, rec); err != nil {
		r.log.Warnf("写入运行记录失败：%v", err)
	}
	if n, err := st.PruneRuns(ctx, r.cfg.Database.RunsKeepDays); err != nil {
		r.log.Warnf("清理运行记录失败：%v", err)
	} else if n > 0 {
		r.log.Debugf("已清理 %d 条过期运行记录", n)
	}
	return persistErr
}

// writeDirect 绕过数据库写出 snap；storeErr 总会被返回。
func (r *Runner) writeDirect(out string, snap model.Snapshot, storeErr error) error {
	if err := export.WriteJSON(out, snap); err != nil {
		return errors.Join(storeErr, fmt.Errorf("write %s: %w", out, err))
	}
	return storeErr
}
