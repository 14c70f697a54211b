// 数据导入工具：解析 INSEE 省级人口 CSV 并整表写入 PostgreSQL
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"popmap/internal/ingest"
	"popmap/internal/logger"
	"popmap/internal/migrate"
	"popmap/internal/store"
	"popmap/internal/utils"
)

// 用法：pop-ingest [csv路径]；未给出时读取 POP_CSV_PATH（默认 data/population.csv）
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()

	path := utils.EnvString("POP_CSV_PATH", filepath.Join("data", "population.csv"))
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t0 := time.Now()
	deps, err := ingest.FileSource{Path: path}.Departements(ctx)
	if err != nil {
		l.Error("ingest_parse_error", "path", path, "err", err)
		os.Exit(1)
	}
	l.Info("ingest_parsed", "path", path, "departements", len(deps))

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		l.Error("db_ping_error", "err", err)
		os.Exit(1)
	}
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	if err := store.AttachDB(db).ReplaceAll(ctx, deps); err != nil {
		l.Error("ingest_write_error", "err", err)
		os.Exit(1)
	}
	l.Info("ingest_done", "departements", len(deps), "ms", time.Since(t0).Milliseconds())
}
