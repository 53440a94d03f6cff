package listview

import "encoding/json"

// PageToken 是分页器中的一个位置：页码或省略号。
type PageToken struct {
	Page     int
	Ellipsis bool
}

// MarshalJSON 页码输出为数字，省略号输出为 "..."，前端可直接渲染。
func (t PageToken) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal("...")
	}
	return json.Marshal(t.Page)
}

// PageTokens 计算紧凑分页器的显示序列：
// 首页和末页总是显示；以当前页为中心最多显示 3 页；中间的空缺统一用一个省略号代替。
// totalPages <= 0 时返回空序列。
func PageTokens(currentPage, totalPages int) []PageToken {
	if totalPages <= 0 {
		return []PageToken{}
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	tokens := []PageToken{{Page: 1}}
	if totalPages == 1 {
		return tokens
	}

	start := max(2, currentPage-1)
	end := min(totalPages-1, currentPage+1)

	if start > 2 {
		tokens = append(tokens, PageToken{Ellipsis: true})
	}
	for p := start; p <= end; p++ {
		tokens = append(tokens, PageToken{Page: p})
	}
	if end < totalPages-1 {
		tokens = append(tokens, PageToken{Ellipsis: true})
	}
	return append(tokens, PageToken{Page: totalPages})
}
