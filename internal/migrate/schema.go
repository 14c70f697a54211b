package migrate

import (
	"database/sql"
	"strings"

	"popmap/internal/logger"
	"popmap/internal/population"
)

// Columns：_pop_departements 中的计数列名，按 分组 × 年龄段 展开（e_0_19 … f_total）
func Columns() []string {
	out := make([]string, 0, len(population.Groups)*len(population.AllBands))
	for _, g := range population.Groups {
		for _, b := range population.AllBands {
			out = append(out, ColumnName(g, b))
		}
	}
	return out
}

func ColumnName(g population.Group, b population.Band) string {
	return string(g[0]) + "_" + string(b)
}

// 背景：首次运行自动创建所需表，保障导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；计数列均可为 NULL（源数据缺失）
func EnsureSchema(db *sql.DB) error {
	var cols strings.Builder
	for _, c := range Columns() {
		cols.WriteString(",\n            " + c + " BIGINT")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _pop_departements (
            code TEXT PRIMARY KEY,
            pos INT NOT NULL,
            nom TEXT NOT NULL` + cols.String() + `,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_pop_departements_pos ON _pop_departements(pos)`,
		`CREATE TABLE IF NOT EXISTS _pop_stats_total (
            id INT PRIMARY KEY,
            total_queries BIGINT NOT NULL DEFAULT 0,
            total_sessions BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS _pop_stats_daily (
            day DATE PRIMARY KEY,
            queries BIGINT NOT NULL DEFAULT 0,
            sessions BIGINT NOT NULL DEFAULT 0
        )`,
		`INSERT INTO _pop_stats_total(id, total_queries, total_sessions)
         VALUES(1, 0, 0)
         ON CONFLICT (id) DO NOTHING`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
