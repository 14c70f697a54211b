package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"popmap/internal/api"
	"popmap/internal/carto"
	"popmap/internal/ingest"
	"popmap/internal/logger"
	"popmap/internal/metrics"
	"popmap/internal/middleware"
	"popmap/internal/migrate"
	"popmap/internal/population"
	"popmap/internal/session"
	"popmap/internal/store"
	"popmap/internal/utils"
)

// commit 由构建参数 -ldflags "-X main.commit=..." 注入
var commit = "dev"

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.EnvString("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)
	ui := utils.EnvString("UI_DIST", filepath.Join("ui", "dist"))
	l.Debug("config_ui_dir", "dir", ui)
	backend := utils.EnvString("STATS_BACKEND", "csv")
	l.Debug("config_stats_backend", "backend", backend)

	// Postgres：仅在统计来源为 postgres 或显式开启计数时连接
	var st *store.Store
	if backend == "postgres" || utils.EnvBool("PG_ENABLED", false) {
		db := openPostgres(l)
		defer db.Close()
		st = store.AttachDB(db)
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		rc = nil
	} else {
		l.Info("redis_ping_ok")
	}

	src, name := statsSource(l, backend, st)
	holder := &population.Holder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 首次加载放到后台，加载完成前接口与会话返回加载中
	go func() {
		if _, err := ingest.Reload(ctx, src, name, holder); err != nil {
			l.Error("dataset_load_error", "source", name, "err", err)
			return
		}
		api.InvalidateCache(ctx, rc)
	}()
	ingest.StartPeriodicReload(ctx, src, name, holder, utils.EnvSeconds("RELOAD_INTERVAL_S", 0), func(*population.Dataset) {
		api.InvalidateCache(ctx, rc)
	})

	var atlas *carto.Atlas
	geoPath := utils.EnvString("POP_GEOJSON_PATH", filepath.Join("data", "geo", "departements.geojson"))
	if features, err := carto.LoadFeatures(geoPath); err != nil {
		l.Error("geometry_load_error", "path", geoPath, "err", err)
	} else {
		l.Info("geometry_loaded", "path", geoPath, "features", len(features))
		atlas = carto.NewAtlas(features, utils.EnvSeconds("LAYER_CACHE_TTL_S", 10*time.Minute))
	}

	corsOrigin := utils.EnvString("CORS_ORIGIN", "http://localhost:3000")
	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(api.Deps{
		Holder:     holder,
		Atlas:      atlas,
		Store:      st,
		Redis:      rc,
		Session:    session.NewHandler(holder, atlas, corsOrigin),
		CORSOrigin: corsOrigin,
	})
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	fs := http.FileServer(http.Dir(ui))
	mux.Handle("/", fs)

	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
		_, _ = w.Write([]byte("window.__DATA_SOURCE__='INSEE, estimations de population'\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + commit + "'"))
	})

	addr := utils.EnvString("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if utils.EnvBool("TLS_ENABLE", false) {
		certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "popmap.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if utils.EnvBool("TLS_REDIRECT_ENABLE", false) {
			go serveRedirect(l, utils.EnvString("TLS_REDIRECT_ADDR", ":80"), addr)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
	}
}

func openPostgres(l *slog.Logger) *sql.DB {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	l.Info("db_open_ok")
	if err := db.Ping(); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	return db
}

// statsSource：按 STATS_BACKEND 选择统计来源（csv | postgres | remote）
func statsSource(l *slog.Logger, backend string, st *store.Store) (population.Source, string) {
	switch backend {
	case "postgres":
		return st, "postgres"
	case "remote":
		u := utils.EnvString("STATS_URL", "http://localhost:8000/api/population")
		l.Info("stats_remote", "url", u)
		return ingest.RemoteSource{URL: u}, "remote"
	}
	p := utils.EnvString("POP_CSV_PATH", filepath.Join("data", "population.csv"))
	l.Info("stats_csv", "path", p)
	return ingest.FileSource{Path: p}, "csv"
}

func serveRedirect(l *slog.Logger, redirAddr, httpsAddr string) {
	httpRedir := http.NewServeMux()
	httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// 替换目标端口为HTTPS服务端口
		httpsPort := strings.TrimPrefix(httpsAddr, ":")
		baseHost := r.Host
		if i := strings.LastIndex(baseHost, ":"); i != -1 {
			baseHost = baseHost[:i]
		}
		targetHost := baseHost
		if httpsPort != "" {
			targetHost = baseHost + ":" + httpsPort
		}
		target := "https://" + targetHost + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+httpsAddr)
	_ = http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(httpRedir))
}
