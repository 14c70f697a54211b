// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"popmap/internal/carto"
	"popmap/internal/logger"
	"popmap/internal/metrics"
	"popmap/internal/population"
	"popmap/internal/store"
)

const (
	cacheKeyAll    = "pop:all"
	cacheKeyFrance = "pop:fr"
	cacheTTL       = 24 * time.Hour

	NotFoundDetail = "Département non trouvé"
	LoadingDetail  = "Chargement des données"
)

// 文档注释：路由依赖
// 约束：Store、Redis、Session 均可为 nil；Holder 当前快照为 nil 时数据接口返回 503（加载中）。
type Deps struct {
	Holder     *population.Holder
	Atlas      *carto.Atlas
	Store      *store.Store
	Redis      *redis.Client
	Session    http.Handler
	CORSOrigin string
}

type errorBody struct {
	Detail string `json:"detail"`
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(d Deps) http.Handler {
	apiMux := http.NewServeMux()
	dd := newDedup(d.Redis)

	countQuery := func(r *http.Request, session bool) {
		if d.Store == nil {
			return
		}
		if !dd.firstSeen(r.Context(), visitorIP(r)+"|"+r.URL.Path, time.Now()) {
			return
		}
		if err := d.Store.IncrStats(r.Context(), session); err != nil {
			logger.L().Warn("stats_incr_error", "path", r.URL.Path, "err", err)
		}
	}

	apiMux.Handle("GET /population", instrument("population", func(w http.ResponseWriter, r *http.Request) {
		ds := d.Holder.Current()
		if ds == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: LoadingDetail})
			return
		}
		b, err := cachedJSON(r.Context(), d.Redis, cacheKey(cacheKeyAll, ds), func() (any, error) { return ds.Departements, nil })
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error()})
			return
		}
		countQuery(r, false)
		writeRaw(w, http.StatusOK, b)
	}))

	apiMux.Handle("GET /population/{id}", instrument("population_id", func(w http.ResponseWriter, r *http.Request) {
		ds := d.Holder.Current()
		if ds == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: LoadingDetail})
			return
		}
		dep := ds.Index.Lookup(r.PathValue("id"))
		if dep == nil {
			metrics.NotFoundTotal.Inc()
			writeJSON(w, http.StatusNotFound, errorBody{Detail: NotFoundDetail})
			return
		}
		countQuery(r, false)
		writeJSON(w, http.StatusOK, dep)
	}))

	apiMux.Handle("GET /france", instrument("france", func(w http.ResponseWriter, r *http.Request) {
		ds := d.Holder.Current()
		if ds == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: LoadingDetail})
			return
		}
		b, err := cachedJSON(r.Context(), d.Redis, cacheKey(cacheKeyFrance, ds), func() (any, error) {
			return population.Aggregate(ds.Departements), nil
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error()})
			return
		}
		writeRaw(w, http.StatusOK, b)
	}))

	geometry := sync.OnceValues(func() ([]byte, error) {
		return json.Marshal(carto.Collection(d.Atlas.Features()))
	})
	apiMux.Handle("GET /geometry", instrument("geometry", func(w http.ResponseWriter, r *http.Request) {
		if d.Atlas == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: LoadingDetail})
			return
		}
		b, err := geometry()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error()})
			return
		}
		w.Header().Set("cache-control", "public, max-age=86400")
		w.Header().Set("content-type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}))

	apiMux.Handle("GET /search", instrument("search", func(w http.ResponseWriter, r *http.Request) {
		ds := d.Holder.Current()
		if ds == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: LoadingDetail})
			return
		}
		writeJSON(w, http.StatusOK, population.Search(ds.Departements, r.URL.Query().Get("q")))
	}))

	apiMux.Handle("GET /stats", instrument("stats", func(w http.ResponseWriter, r *http.Request) {
		t := &store.Totals{}
		if d.Store != nil {
			got, err := d.Store.GetTotals(r.Context())
			if err != nil {
				logger.L().Warn("stats_totals_error", "err", err)
			} else {
				t = got
			}
		}
		writeJSON(w, http.StatusOK, t)
	}))

	if d.Session != nil {
		apiMux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
			metrics.RequestsTotal.WithLabelValues("session").Inc()
			countQuery(r, true)
			d.Session.ServeHTTP(w, r)
		})
	}

	origin := d.CORSOrigin
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})(apiMux)
}

// cacheKey：缓存键带上快照加载时间，进程重启或快照替换后不会命中旧值
func cacheKey(base string, ds *population.Dataset) string {
	return base + ":" + strconv.FormatInt(ds.LoadedAt.UnixNano(), 36)
}

// InvalidateCache：删除 Redis 中各版本的统计缓存（旧版本即使不删也会按 TTL 过期）
func InvalidateCache(ctx context.Context, rc *redis.Client) {
	if rc == nil {
		return
	}
	var keys []string
	for _, base := range []string{cacheKeyAll, cacheKeyFrance} {
		iter := rc.Scan(ctx, 0, base+":*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			logger.L().Warn("cache_invalidate_error", "err", err)
			return
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := rc.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("cache_invalidate_error", "err", err)
		return
	}
	logger.L().Debug("cache_invalidated", "keys", len(keys))
}

func instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		h(w, r)
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Microseconds()) / 1000)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b, _ = json.Marshal(errorBody{Detail: err.Error()})
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
