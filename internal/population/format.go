package population

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder：单个字段缺失时的展示值
const Placeholder = "?"

var frPrinter = message.NewPrinter(language.French)

// Format：法语千分位格式；nil 返回 "?"
func Format(v *int64) string {
	if v == nil {
		return Placeholder
	}
	return frPrinter.Sprintf("%d", *v)
}
