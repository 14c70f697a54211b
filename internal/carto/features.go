package carto

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：行政区几何要素
// 约束：几何仅保留 Polygon/MultiPolygon（统一为 MultiPolygon）；RawCode 为 properties.code 原值（字符串或数字）。
type Feature struct {
	RawCode  any
	Name     string
	Geometry orb.MultiPolygon
}

var ErrNoFeatures = errors.New("geometry: no polygon features")

// LoadFeatures：读取单个 GeoJSON 文件；path 为目录时读取其中第一个 *.geojson
func LoadFeatures(path string) ([]Feature, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		found := ""
		for _, ent := range entries {
			if strings.HasSuffix(strings.ToLower(ent.Name()), ".geojson") {
				found = filepath.Join(path, ent.Name())
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("geometry: no .geojson in %s", path)
		}
		path = found
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFeatures(f)
}

func DecodeFeatures(r io.Reader) ([]Feature, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseFeatures(bs)
}

// 文档注释：解析 FeatureCollection
// 约束：properties 需包含 code 与 nom/name；缺 code 的要素保留但永远匹配不到统计；非面几何跳过；一个面都没有时报错。
func ParseFeatures(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geometry: parse: %w", err)
	}
	out := make([]Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		mp := asMultiPolygon(gf.Geometry)
		if mp == nil {
			continue
		}
		out = append(out, Feature{
			RawCode:  gf.Properties["code"],
			Name:     featureName(gf.Properties),
			Geometry: mp,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoFeatures
	}
	return out, nil
}

func featureName(p geojson.Properties) string {
	if n := p.MustString("nom", ""); n != "" {
		return n
	}
	return p.MustString("name", "")
}

func asMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch x := g.(type) {
	case orb.Polygon:
		if len(x) == 0 {
			return nil
		}
		return orb.MultiPolygon{x}
	case orb.MultiPolygon:
		if len(x) == 0 {
			return nil
		}
		return x
	}
	return nil
}

// CodeString：原始编码转字符串，主要用于展示
func (f Feature) CodeString() string {
	switch x := f.RawCode.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	}
	return fmt.Sprint(f.RawCode)
}

// Collection：重新编码为 FeatureCollection，供 /geometry 接口输出
func Collection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties["code"] = f.RawCode
		gf.Properties["nom"] = f.Name
		fc.Append(gf)
	}
	return fc
}
