package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"popmap/internal/migrate"
	"popmap/internal/population"
)

type rowStub []any

// Scan：按扫描目标类型回填，模拟 *sql.Row
func (r rowStub) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r[i].(string)
		default:
			v := r[i]
			ni := p.(interface{ Scan(any) error })
			if err := ni.Scan(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestColumnsLayout(t *testing.T) {
	cols := migrate.Columns()
	require.Len(t, cols, 18)
	require.Equal(t, "e_0_19", cols[0])
	require.Equal(t, "h_total", cols[11])
	require.Equal(t, "f_75_plus", cols[16])
}

func TestInsertSQLPlaceholders(t *testing.T) {
	q := insertSQL()
	require.True(t, strings.HasPrefix(q, "INSERT INTO _pop_departements(code, pos, nom, e_0_19"))
	require.Contains(t, q, "$21)")
	require.NotContains(t, q, "$22")
}

func TestRowArgsAndScanAgree(t *testing.T) {
	d := population.Departement{
		ID:       "2A",
		Nom:      "Corse-du-Sud",
		Ensemble: population.NewTranche(nil, population.Int(2), nil, nil, nil, population.Int(162421)),
		Femmes:   population.NewTranche(population.Int(7)),
	}
	args := rowArgs(4, d)
	require.Len(t, args, 21)
	require.Equal(t, 4, args[1])
	require.Nil(t, args[3])
	require.Equal(t, int64(2), args[4])

	// 去掉 pos 列即为查询结果的列顺序
	row := append(rowStub{args[0], args[2]}, args[3:]...)
	got, err := scanDepartement(row)
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestStatsErrorsPropagate(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://postgres@127.0.0.1:1/popmap?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	s := AttachDB(db)

	err = s.IncrStats(context.Background(), true)
	require.ErrorContains(t, err, "database is closed")
	got, err := s.GetTotals(context.Background())
	require.Error(t, err)
	require.Nil(t, got)
}
