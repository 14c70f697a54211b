// 包 ingest：INSEE 人口估计 CSV 解析与统计来源（文件、远端接口），以及后台定期重载
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"popmap/internal/population"
)

// overseas：非纯数字但需保留的编码（科西嘉与海外省）
var overseas = map[string]bool{"2A": true, "2B": true, "971": true, "972": true, "973": true, "974": true, "976": true}

// bandColumns：第二行表头中的年龄段列名 → 字段
var bandColumns = map[string]population.Band{
	"0-19":  population.Band0_19,
	"20-39": population.Band20_39,
	"40-59": population.Band40_59,
	"60-74": population.Band60_74,
	"75+":   population.Band75Plus,
	"total": population.BandTotal,
}

var (
	ErrHeader = errors.New("csv: missing header rows")
	ErrLayout = errors.New("csv: code/nom columns not found")
)

// KeepCode：编码全为数字，或属于科西嘉/海外省列表
func KeepCode(code string) bool {
	if code == "" {
		return false
	}
	if overseas[code] {
		return true
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// 文档注释：单元格数值清洗
// 约束：去掉全部空白（含不换行空格与窄不换行空格）；空串与 nan（不区分大小写）为缺失；整数之外的数字字面量仅在取值为整数时接受（"1234.0"）。
func CleanNumber(s string) (*int64, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	t := b.String()
	if t == "" || strings.EqualFold(t, "nan") {
		return nil, nil
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || f != float64(int64(f)) {
		return nil, fmt.Errorf("csv: bad number %q", s)
	}
	n := int64(f)
	return &n, nil
}

type column struct {
	group population.Group
	band  population.Band
}

// 文档注释：解析 INSEE 两行表头 CSV（分号分隔）
// 背景：第一行为分组名（Départements / Ensemble / Hommes / Femmes），空白单元格沿用左侧分组；第二行为列名（Code, Nom, 0-19 … 75+, Total）。
// 约束：非 UTF-8 输入按 Windows-1252 解码；编码不满足 KeepCode 的行（合计、注释行）跳过；数值非法时返回带行号的错误。
func ParseCSV(r io.Reader) ([]population.Departement, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		if raw, err = charmap.Windows1252.NewDecoder().Bytes(raw); err != nil {
			return nil, fmt.Errorf("csv: decode: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	groupsRow, err := cr.Read()
	if err != nil {
		return nil, ErrHeader
	}
	namesRow, err := cr.Read()
	if err != nil {
		return nil, ErrHeader
	}

	codeCol, nomCol := -1, -1
	cols := make(map[int]column)
	current := ""
	for i, name := range namesRow {
		if i < len(groupsRow) {
			if g := strings.TrimSpace(groupsRow[i]); g != "" {
				current = g
			}
		}
		name = strings.TrimSpace(name)
		switch {
		case strings.EqualFold(name, "code") && codeCol < 0:
			codeCol = i
		case strings.EqualFold(name, "nom") && nomCol < 0:
			nomCol = i
		default:
			b, ok := bandColumns[strings.ToLower(name)]
			if !ok {
				continue
			}
			if g, ok := groupOf(current); ok {
				cols[i] = column{group: g, band: b}
			}
		}
	}
	if codeCol < 0 {
		return nil, ErrLayout
	}

	var out []population.Departement
	line := 2
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if codeCol >= len(rec) {
			continue
		}
		code := strings.TrimSpace(rec[codeCol])
		if !KeepCode(code) {
			continue
		}
		dep, err := buildRow(rec, code, nomCol, cols)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		out = append(out, dep)
	}
	return out, nil
}

func groupOf(name string) (population.Group, bool) {
	switch population.SearchKey(name) {
	case "ensemble":
		return population.GroupEnsemble, true
	case "hommes":
		return population.GroupHommes, true
	case "femmes":
		return population.GroupFemmes, true
	}
	return "", false
}

func buildRow(rec []string, code string, nomCol int, cols map[int]column) (population.Departement, error) {
	dep := population.Departement{ID: code}
	if nomCol >= 0 && nomCol < len(rec) {
		dep.Nom = strings.TrimSpace(rec[nomCol])
	}
	vals := map[population.Group][]*int64{
		population.GroupEnsemble: make([]*int64, len(population.AllBands)),
		population.GroupHommes:   make([]*int64, len(population.AllBands)),
		population.GroupFemmes:   make([]*int64, len(population.AllBands)),
	}
	for i, c := range cols {
		if i >= len(rec) {
			continue
		}
		v, err := CleanNumber(rec[i])
		if err != nil {
			return dep, err
		}
		vals[c.group][bandIndex(c.band)] = v
	}
	dep.Ensemble = population.NewTranche(vals[population.GroupEnsemble]...)
	dep.Hommes = population.NewTranche(vals[population.GroupHommes]...)
	dep.Femmes = population.NewTranche(vals[population.GroupFemmes]...)
	return dep, nil
}

func bandIndex(b population.Band) int {
	for i, x := range population.AllBands {
		if x == b {
			return i
		}
	}
	return 0
}
