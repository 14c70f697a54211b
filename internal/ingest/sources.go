package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"popmap/internal/logger"
	"popmap/internal/metrics"
	"popmap/internal/population"
)

// FileSource：本地 INSEE CSV 文件
type FileSource struct{ Path string }

func (s FileSource) Departements(ctx context.Context) ([]population.Departement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	defer f.Close()
	deps, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv source %s: %w", s.Path, err)
	}
	logger.L().Debug("csv_loaded", "path", s.Path, "rows", len(deps))
	return deps, nil
}

// 文档注释：远端统计接口（返回 Departement JSON 数组）
// 背景：统计服务与地图服务分开部署时，本服务作为只读消费方；接口已完成编码过滤与数值清洗。
// 约束：非 2xx 视为失败，不重试（由重载调度决定下次时间）；Client 为空时使用 10 秒超时的默认客户端。
type RemoteSource struct {
	URL    string
	Client *http.Client
}

func (s RemoteSource) Departements(ctx context.Context) ([]population.Departement, error) {
	cli := s.Client
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := cli.Do(req)
	if err != nil {
		metrics.RemoteFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("remote source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteFetchTotal.WithLabelValues("bad_status").Inc()
		return nil, fmt.Errorf("remote source: status %d", resp.StatusCode)
	}
	var deps []population.Departement
	if err := json.NewDecoder(resp.Body).Decode(&deps); err != nil {
		metrics.RemoteFetchTotal.WithLabelValues("bad_body").Inc()
		return nil, fmt.Errorf("remote source: decode: %w", err)
	}
	metrics.RemoteFetchTotal.WithLabelValues("ok").Inc()
	logger.L().Debug("remote_loaded", "url", s.URL, "rows", len(deps))
	return deps, nil
}
