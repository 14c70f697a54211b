package population

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option：搜索下拉中的一项；ID 为空表示全国
type Option struct {
	ID  string `json:"id"`
	Nom string `json:"nom"`
}

// SearchKey：NFD 分解后去掉组合附加符、去掉全部空白并转小写（"Côte-d'Or" → "cote-d'or"）
func SearchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Search：候选为“全国”加全部省（保持输入顺序）；空查询原样返回，否则按名称或编码包含查询串过滤，“全国”同样参与过滤
func Search(all []Departement, query string) []Option {
	q := SearchKey(query)
	candidates := make([]Option, 0, len(all)+1)
	candidates = append(candidates, Option{ID: "", Nom: FranceNom})
	for i := range all {
		candidates = append(candidates, Option{ID: all[i].ID, Nom: all[i].Nom})
	}
	if q == "" {
		return candidates
	}
	out := candidates[:0:0]
	for _, o := range candidates {
		if strings.Contains(SearchKey(o.Nom), q) || strings.Contains(SearchKey(o.ID), q) {
			out = append(out, o)
		}
	}
	return out
}

// Resolve：按 id 精确查找；"" 表示全国（nil），找不到也返回 nil
func Resolve(all []Departement, id string) *Departement {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
