// Package slug 把任意文本转换为 URL 安全的短标识。
package slug

import (
	"regexp"
	"strings"
)

var (
	// 单词字符（ASCII 字母、数字、下划线）、空白和连字符之外的字符都视为分隔符。
	invalidChars = regexp.MustCompile(`[^\w\s-]+`)
	separators   = regexp.MustCompile(`[\s_-]+`)
)

// Generate 生成 slug：
// 1. 转小写并去除首尾空白
// 2. 非法字符替换为分隔符（非 ASCII 字母同样按非法字符处理，例如 "Línea" -> "l-nea"）
// 3. 连续的空白/下划线/连字符折叠为单个 "-"
// 4. 去掉首尾的 "-"
//
// 该函数是全函数：任何输入都有输出，空输入返回空字符串；对自身输出再次调用结果不变。
func Generate(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = invalidChars.ReplaceAllString(s, "-")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
