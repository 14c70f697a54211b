package ingest

import (
	"context"
	"time"

	"popmap/internal/logger"
	"popmap/internal/metrics"
	"popmap/internal/population"
)

// Reload：从来源拉取一次并替换快照；失败时保留旧快照
func Reload(ctx context.Context, src population.Source, name string, h *population.Holder) (*population.Dataset, error) {
	t0 := time.Now()
	ds, err := population.Load(ctx, src, name)
	if err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	h.Set(ds)
	metrics.DatasetReloadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetDepartements.Set(float64(len(ds.Departements)))
	logger.L().Info("dataset_loaded", "source", name, "departements", ds.Index.Len(), "ms", time.Since(t0).Milliseconds())
	return ds, nil
}

// 文档注释：后台定期重载统计快照
// 背景：统计源按年更新，服务可长期运行；按 RELOAD_INTERVAL_S 周期拉取，错误只记日志，下一周期继续。
// 约束：every ≤ 0 时不启动；ctx 取消后退出；onSwap 在每次成功替换后调用（可为 nil）。
func StartPeriodicReload(ctx context.Context, src population.Source, name string, h *population.Holder, every time.Duration, onSwap func(*population.Dataset)) {
	if every <= 0 {
		return
	}
	l := logger.L()
	go func() {
		tk := time.NewTicker(every)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
			}
			l.Debug("reload_start", "source", name)
			ds, err := Reload(ctx, src, name, h)
			if err != nil {
				l.Error("reload_error", "source", name, "err", err)
				continue
			}
			if onSwap != nil {
				onSwap(ds)
			}
		}
	}()
}
