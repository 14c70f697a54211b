// 包 store: PostgreSQL 数据访问层，保存人口统计记录与接口访问计数
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"popmap/internal/logger"
	"popmap/internal/migrate"
	"popmap/internal/population"
)

// Store: 数据库访问入口，持有连接池；同时作为 population.Source 使用
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

var selectCols = "code, nom, " + strings.Join(migrate.Columns(), ", ")

// insertSQL：按 Columns 顺序生成的批量写入语句
func insertSQL() string {
	cols := migrate.Columns()
	ph := make([]string, 0, len(cols)+3)
	for i := 1; i <= len(cols)+3; i++ {
		ph = append(ph, "$"+strconv.Itoa(i))
	}
	return "INSERT INTO _pop_departements(code, pos, nom, " + strings.Join(cols, ", ") + ") VALUES(" + strings.Join(ph, ",") + ")"
}

// rowArgs：一条记录的写入参数（缺失值写 NULL）
func rowArgs(pos int, d population.Departement) []any {
	args := []any{d.ID, pos, d.Nom}
	for _, g := range population.Groups {
		t := d.Group(g)
		for _, b := range population.AllBands {
			if v := t.Get(b); v != nil {
				args = append(args, *v)
			} else {
				args = append(args, nil)
			}
		}
	}
	return args
}

// 文档注释：整表替换
// 背景：统计源按年发布整份数据，导入时在单个事务内先清空再写入，读方不会看到半份数据。
// 约束：pos 保留输入顺序；重复编码由主键约束报错并整体回滚。
func (s *Store) ReplaceAll(ctx context.Context, deps []population.Departement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM _pop_departements"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL())
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, d := range deps {
		if _, err := stmt.ExecContext(ctx, rowArgs(i, d)...); err != nil {
			return fmt.Errorf("store: insert %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Info("store_replace_ok", "rows", len(deps))
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanDepartement(sc scanner) (population.Departement, error) {
	var d population.Departement
	vals := make([]sql.NullInt64, len(migrate.Columns()))
	dest := []any{&d.ID, &d.Nom}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := sc.Scan(dest...); err != nil {
		return d, err
	}
	ptrs := make([]*int64, len(vals))
	for i, v := range vals {
		if v.Valid {
			ptrs[i] = population.Int(v.Int64)
		}
	}
	n := len(population.AllBands)
	d.Ensemble = population.NewTranche(ptrs[0:n]...)
	d.Hommes = population.NewTranche(ptrs[n : 2*n]...)
	d.Femmes = population.NewTranche(ptrs[2*n : 3*n]...)
	return d, nil
}

// Departements: 按导入顺序读取全部记录
func (s *Store) Departements(ctx context.Context) ([]population.Departement, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectCols+" FROM _pop_departements ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []population.Departement
	for rows.Next() {
		d, err := scanDepartement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	logger.L().Debug("store_departements", "rows", len(out))
	return out, rows.Err()
}

// IncrStats: 递增累计与当日查询次数；session 为 true 时同时计一次会话
func (s *Store) IncrStats(ctx context.Context, session bool) error {
	stmts := []string{
		"UPDATE _pop_stats_total SET total_queries=total_queries+1 WHERE id=1",
		"INSERT INTO _pop_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_pop_stats_daily.queries+1",
	}
	if session {
		stmts = append(stmts,
			"UPDATE _pop_stats_total SET total_sessions=total_sessions+1 WHERE id=1",
			"INSERT INTO _pop_stats_daily(day, sessions) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET sessions=_pop_stats_daily.sessions+1",
		)
	}
	// 各语句独立执行，单条失败不影响其余计数；返回第一个错误
	var first error
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil && first == nil {
			first = fmt.Errorf("store: incr stats: %w", err)
		}
	}
	logger.L().Debug("stats_incr", "session", session, "err", first)
	return first
}

// Totals: 统计返回结构
type Totals struct {
	Total    int64 `json:"total"`
	Today    int64 `json:"today"`
	Sessions int64 `json:"sessions"`
}

// GetTotals: 读取累计与当日查询次数，用于 /stats 接口
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT total_queries, total_sessions FROM _pop_stats_total WHERE id=1")
	if err := row.Scan(&t.Total, &t.Sessions); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: totals: %w", err)
	}
	// 当日尚无计数时没有对应行，按 0 处理
	row2 := s.db.QueryRowContext(ctx, "SELECT queries FROM _pop_stats_daily WHERE day=current_date")
	if err := row2.Scan(&t.Today); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: totals today: %w", err)
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
