package population

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoMatch：无法归一的编码；调用方必须视为未命中
const NoMatch = "NaN"

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	hexLiteral     = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// 文档注释：行政区编码归一
// 背景：几何源的 properties.code 与统计源的 id 可能一个带前导零、一个不带，也可能是数字类型；同一行政区需得到相同字符串。
// 约束：非数字串（2A/2B）去首尾空白后原样返回；数字按十进制整数输出（"03" → "3"）；空值与非法值返回 "NaN"，从不报错。
func NormalizeCode(v any) string {
	switch x := v.(type) {
	case nil:
		return NoMatch
	case string:
		if !numericString(x) {
			return strings.TrimSpace(x)
		}
		return parseIntPrefix(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatTrunc(float64(x))
	case float64:
		return formatTrunc(x)
	case fmt.Stringer:
		return NormalizeCode(x.String())
	}
	return NormalizeCode(fmt.Sprint(v))
}

// IsNoMatch：归一结果是否代表“无编码”
func IsNoMatch(code string) bool { return code == NoMatch || code == "" }

// numericString：按数字字面量规则判断；空白串视为数字 0，随后在整数解析阶段得到 NaN
func numericString(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	if t == "Infinity" || t == "+Infinity" || t == "-Infinity" {
		return true
	}
	return decimalLiteral.MatchString(t) || hexLiteral.MatchString(t)
}

// parseIntPrefix：取开头的十进制整数部分（可带符号与前导空白），无数字时返回 NaN
func parseIntPrefix(s string) string {
	t := strings.TrimLeft(s, " \t\n\r\v\f\u00a0\ufeff")
	neg := false
	if t != "" && (t[0] == '+' || t[0] == '-') {
		neg = t[0] == '-'
		t = t[1:]
	}
	end := 0
	for end < len(t) && t[end] >= '0' && t[end] <= '9' {
		end++
	}
	if end == 0 {
		return NoMatch
	}
	digits := strings.TrimLeft(t[:end], "0")
	if digits == "" {
		return "0"
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func formatTrunc(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NoMatch
	}
	f = math.Trunc(f)
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}
