package carto

import (
	"time"

	"github.com/paulmach/orb"

	"popmap/internal/logger"
	"popmap/internal/metrics"
)

// 文档注释：几何编排器（要素 → 边界合成 → 按视口投影并缓存）
// 背景：几何只在启动时加载一次；边界与视口无关，只合成一次；投影结果按视口缓存。
// 约束：features 加载后只读；Atlas 可被多个会话并发读取。
type Atlas struct {
	features []Feature
	boundary orb.MultiLineString
	cache    *LayerCache
}

func NewAtlas(features []Feature, cacheTTL time.Duration) *Atlas {
	t0 := time.Now()
	b := Boundaries(features)
	logger.L().Info("boundaries_ready", "features", len(features), "lines", len(b), "ms", time.Since(t0).Milliseconds())
	return &Atlas{features: features, boundary: b, cache: NewLayerCache(16, cacheTTL)}
}

func (a *Atlas) Features() []Feature { return a.features }

func (a *Atlas) Boundary() orb.MultiLineString { return a.boundary }

// Layer：取视口对应的渲染层；非法视口返回 nil
func (a *Atlas) Layer(vp Viewport) *Layer {
	if a == nil || !vp.Valid() {
		return nil
	}
	if l, ok := a.cache.Get(vp); ok {
		metrics.LayerCacheHitsTotal.Inc()
		return l
	}
	metrics.LayerCacheMissesTotal.Inc()
	t0 := time.Now()
	l := BuildLayer(a.features, a.boundary, vp)
	metrics.LayerBuildDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	a.cache.Set(vp, l)
	logger.L().Debug("layer_built", "width", vp.Width, "height", vp.Height, "regions", len(l.Regions))
	return l
}
