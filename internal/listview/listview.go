// Package listview 实现列表页通用的过滤与分页管线。
//
// 管线阶段固定为：关键词搜索 -> 主过滤 -> 高级过滤（分类精确匹配 + 最近时间）-> 排序 -> 分页。
// 所有阶段都是纯函数：不修改传入的切片，同样的列表和同样的 ViewState 总是得到同样的结果。
package listview

import (
	"sort"
	"strings"
	"time"
)

const (
	// AllValue 是主过滤/高级过滤的"全部"哨兵值，与空字符串等价。
	AllValue = "all"
	// NeverDays 作为 RecencyDays 时只保留没有时间戳的记录（"从未"）。
	NeverDays = -1
	// DefaultPageSize 在 PageSize 未设置时使用。
	DefaultPageSize = 10
)

// Spec 描述一种实体在管线中如何被读取。
type Spec[T any] struct {
	// Search 是参与关键词搜索的文本字段。
	Search []func(T) string
	// Primary 是工具栏上的主过滤字段，为 nil 时忽略主过滤。
	Primary func(T) string
	// Filters 是高级过滤中的分类字段，key 与 ViewState.Filters 的 key 对应。
	Filters map[string]func(T) string
	// Timestamp 返回最近时间过滤使用的时间；ok=false 表示没有记录。
	Timestamp func(T) (time.Time, bool)
	// Less 可选，分页前对结果稳定排序。
	Less func(a, b T) bool
}

// ViewState 是单个列表页的视图状态，只在页面生命周期内有效，不做持久化。
type ViewState struct {
	Search      string
	Primary     string
	Filters     map[string]string
	RecencyDays *int
	Page        int
	PageSize    int
}

// Page 是管线的输出。
type Page[T any] struct {
	Items      []T         `json:"content"`
	Total      int         `json:"totalElements"`
	TotalPages int         `json:"totalPages"`
	PageSize   int         `json:"size"`
	Number     int         `json:"number"`
	ShowPager  bool        `json:"showPager"`
	Pager      []PageToken `json:"pager"`
}

// Pipeline 绑定实体描述和时钟。时钟可注入，便于测试最近时间过滤。
type Pipeline[T any] struct {
	spec Spec[T]
	now  func() time.Time
}

// New 创建管线，now 为 nil 时使用 time.Now。
func New[T any](spec Spec[T], now func() time.Time) *Pipeline[T] {
	if now == nil {
		now = time.Now
	}
	return &Pipeline[T]{spec: spec, now: now}
}

// Filter 依次执行搜索、主过滤、高级过滤和排序，返回新切片。
func (p *Pipeline[T]) Filter(items []T, state ViewState) []T {
	term := strings.ToLower(strings.TrimSpace(state.Search))
	primary := normalizeKey(state.Primary)
	now := p.now()

	out := make([]T, 0, len(items))
	for _, item := range items {
		if !p.matchSearch(item, term) {
			continue
		}
		if primary != "" && p.spec.Primary != nil && p.spec.Primary(item) != primary {
			continue
		}
		if !p.matchFilters(item, state.Filters) {
			continue
		}
		if !p.matchRecency(item, state.RecencyDays, now) {
			continue
		}
		out = append(out, item)
	}

	if p.spec.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return p.spec.Less(out[i], out[j]) })
	}
	return out
}

// Run 执行完整管线（过滤 + 分页）。
func (p *Pipeline[T]) Run(items []T, state ViewState) Page[T] {
	return Paginate(p.Filter(items, state), state.Page, state.PageSize)
}

func (p *Pipeline[T]) matchSearch(item T, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range p.spec.Search {
		if strings.Contains(strings.ToLower(field(item)), term) {
			return true
		}
	}
	return false
}

func (p *Pipeline[T]) matchFilters(item T, filters map[string]string) bool {
	for key, raw := range filters {
		want := normalizeKey(raw)
		if want == "" {
			continue
		}
		field, ok := p.spec.Filters[key]
		if !ok {
			// 未声明的过滤键不参与过滤
			continue
		}
		if field(item) != want {
			return false
		}
	}
	return true
}

func (p *Pipeline[T]) matchRecency(item T, days *int, now time.Time) bool {
	if days == nil || p.spec.Timestamp == nil {
		return true
	}
	ts, ok := p.spec.Timestamp(item)
	if *days == NeverDays {
		return !ok
	}
	if !ok || *days < 0 {
		return false
	}
	from := now.AddDate(0, 0, -*days)
	return !ts.Before(from) && !ts.After(now)
}

// Paginate 按 1 基页码切片。页码小于 1 视为第 1 页，超出范围返回空页。
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	// 先和总页数比较再做乘法，超大页码不会溢出
	start, end := total, total
	if page <= totalPages {
		start = (page - 1) * pageSize
		if pageSize < total-start {
			end = start + pageSize
		}
	}

	slice := make([]T, end-start)
	copy(slice, items[start:end])

	return Page[T]{
		Items:      slice,
		Total:      total,
		TotalPages: totalPages,
		PageSize:   pageSize,
		Number:     page,
		ShowPager:  totalPages > 1,
		Pager:      PageTokens(page, totalPages),
	}
}

func normalizeKey(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, AllValue) {
		return ""
	}
	return v
}
