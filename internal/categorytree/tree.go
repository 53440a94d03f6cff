// Package categorytree 维护 分类 -> 子分类 -> 三级分类 的三层结构及其展开状态。
//
// 节点 ID 只在同级兄弟之间唯一，因此节点总是通过 ID 路径定位：
//   - 分类：      (categoryID)
//   - 子分类：    (categoryID, subcategoryID)
//   - 三级分类：  (categoryID, subcategoryID, level3ID)
package categorytree

import (
	"errors"
	"fmt"
	"strings"

	"intranet_admin/pkg/slug"

	"github.com/google/uuid"
)

// Level 表示节点所在层级。
type Level string

const (
	LevelCategory    Level = "category"
	LevelSubcategory Level = "subcategory"
	LevelLevel3      Level = "level3"
)

var (
	// ErrEmptyName 名称去除空白后为空。
	ErrEmptyName = errors.New("category name is empty")
	// ErrMissingParent 子分类缺少父分类，或三级分类缺少任一父级。
	ErrMissingParent = errors.New("parent selection is required")
	// ErrParentNotFound 指定的父级路径不存在。
	ErrParentNotFound = errors.New("parent category not found")
	// ErrInvalidLevel 未知层级。
	ErrInvalidLevel = errors.New("invalid category level")
)

// Node 是树中的一个节点。ParentID 是直接父节点的 ID（分类节点为空）。
type Node struct {
	ID       string
	Name     string
	Slug     string
	Level    Level
	ParentID string
	Children []*Node
}

// Ref 是一个节点的完整路径，删除时用于通知持久层。
type Ref struct {
	Level Level
	Path  []string
}

// ParseLevel 把外部输入转换为 Level。
func ParseLevel(raw string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelCategory:
		return LevelCategory, nil
	case LevelSubcategory:
		return LevelSubcategory, nil
	case LevelLevel3:
		return LevelLevel3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
	}
}

// Tree 保存三层结构和每个层级的展开 ID 集合。Tree 不是并发安全的，
// 调用方在单次请求内构建并使用它。
type Tree struct {
	categories []*Node
	expanded   map[Level]map[string]struct{}
	newID      func() string
}

// Option 配置 Tree。
type Option func(*Tree)

// WithIDGenerator 替换默认的 uuid 生成器。
func WithIDGenerator(gen func() string) Option {
	return func(t *Tree) { t.newID = gen }
}

// New 创建空树。
func New(opts ...Option) *Tree {
	t := &Tree{
		categories: []*Node{},
		expanded: map[Level]map[string]struct{}{
			LevelCategory:    {},
			LevelSubcategory: {},
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Categories 返回根节点（分类）列表，按插入顺序。
func (t *Tree) Categories() []*Node {
	return t.categories
}

// Insert 把已存在的节点（例如从数据库加载的行）挂到树上，不做名称校验也不生成 ID。
// 父级不存在时返回 ErrParentNotFound。
func (t *Tree) Insert(level Level, node *Node, path ...string) error {
	if node.Children == nil {
		node.Children = []*Node{}
	}
	node.Level = level
	switch level {
	case LevelCategory:
		node.ParentID = ""
		t.categories = append(t.categories, node)
		return nil
	case LevelSubcategory:
		if len(path) < 1 {
			return ErrMissingParent
		}
		parent := t.find(LevelCategory, path[0])
		if parent == nil {
			return ErrParentNotFound
		}
		node.ParentID = parent.ID
		parent.Children = append(parent.Children, node)
		return nil
	case LevelLevel3:
		if len(path) < 2 {
			return ErrMissingParent
		}
		parent := t.find(LevelSubcategory, path[0], path[1])
		if parent == nil {
			return ErrParentNotFound
		}
		node.ParentID = parent.ID
		parent.Children = append(parent.Children, node)
		return nil
	default:
		return ErrInvalidLevel
	}
}

// AddNode 校验并新增节点：
//  1. 名称去除首尾空白后不能为空
//  2. 子分类必须指定父分类；三级分类必须同时指定父分类和父子分类
//  3. 父级必须存在
//
// 新节点追加到父级子节点末尾，不会自动展开父级。
func (t *Tree) AddNode(level Level, name, parentCategoryID, parentSubcategoryID string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	parentCategoryID = strings.TrimSpace(parentCategoryID)
	parentSubcategoryID = strings.TrimSpace(parentSubcategoryID)

	var path []string
	switch level {
	case LevelCategory:
	case LevelSubcategory:
		if parentCategoryID == "" {
			return nil, ErrMissingParent
		}
		path = []string{parentCategoryID}
	case LevelLevel3:
		if parentCategoryID == "" || parentSubcategoryID == "" {
			return nil, ErrMissingParent
		}
		path = []string{parentCategoryID, parentSubcategoryID}
	default:
		return nil, ErrInvalidLevel
	}

	node := &Node{
		ID:   t.newID(),
		Name: name,
		Slug: slug.Generate(name),
	}
	if err := t.Insert(level, node, path...); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode 删除节点及其全部后代，并清理被删除 ID 的展开状态。
// 节点不存在时什么也不做。返回被删除的节点引用（自身在前，后代在后）。
func (t *Tree) DeleteNode(level Level, ids ...string) []Ref {
	var removed []Ref

	switch level {
	case LevelCategory:
		if len(ids) < 1 {
			return nil
		}
		idx := indexOf(t.categories, ids[0])
		if idx < 0 {
			return nil
		}
		node := t.categories[idx]
		t.categories = append(t.categories[:idx:idx], t.categories[idx+1:]...)
		removed = collect(node, nil)
	case LevelSubcategory:
		if len(ids) < 2 {
			return nil
		}
		parent := t.find(LevelCategory, ids[0])
		if parent == nil {
			return nil
		}
		idx := indexOf(parent.Children, ids[1])
		if idx < 0 {
			return nil
		}
		node := parent.Children[idx]
		parent.Children = append(parent.Children[:idx:idx], parent.Children[idx+1:]...)
		removed = collect(node, []string{parent.ID})
	case LevelLevel3:
		if len(ids) < 3 {
			return nil
		}
		parent := t.find(LevelSubcategory, ids[0], ids[1])
		if parent == nil {
			return nil
		}
		idx := indexOf(parent.Children, ids[2])
		if idx < 0 {
			return nil
		}
		node := parent.Children[idx]
		parent.Children = append(parent.Children[:idx:idx], parent.Children[idx+1:]...)
		removed = collect(node, []string{ids[0], parent.ID})
	default:
		return nil
	}

	for _, ref := range removed {
		if set, ok := t.expanded[ref.Level]; ok {
			delete(set, ref.Path[len(ref.Path)-1])
		}
	}
	return removed
}

// ToggleExpansion 切换某层级下 ID 的展开状态。纯视图状态，不做校验。
func (t *Tree) ToggleExpansion(level Level, id string) {
	set, ok := t.expanded[level]
	if !ok {
		set = map[string]struct{}{}
		t.expanded[level] = set
	}
	if _, on := set[id]; on {
		delete(set, id)
		return
	}
	set[id] = struct{}{}
}

// Expanded 报告某层级下的 ID 是否展开。
func (t *Tree) Expanded(level Level, id string) bool {
	_, ok := t.expanded[level][id]
	return ok
}

// Expansion 导出展开状态的副本。
func (t *Tree) Expansion() map[Level][]string {
	out := make(map[Level][]string, len(t.expanded))
	for level, set := range t.expanded {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		out[level] = ids
	}
	return out
}

// RestoreExpansion 用外部保存的展开状态覆盖当前状态。
func (t *Tree) RestoreExpansion(state map[Level][]string) {
	for level := range t.expanded {
		t.expanded[level] = map[string]struct{}{}
	}
	for level, ids := range state {
		set := map[string]struct{}{}
		for _, id := range ids {
			set[id] = struct{}{}
		}
		t.expanded[level] = set
	}
}

// Label 返回路径对应节点的名称，找不到时返回空串。
func (t *Tree) Label(level Level, ids ...string) string {
	if n := t.find(level, ids...); n != nil {
		return n.Name
	}
	return ""
}

// Find 按路径查找节点。
func (t *Tree) Find(level Level, ids ...string) *Node {
	return t.find(level, ids...)
}

func (t *Tree) find(level Level, ids ...string) *Node {
	switch level {
	case LevelCategory:
		if len(ids) < 1 {
			return nil
		}
		return child(t.categories, ids[0])
	case LevelSubcategory:
		if len(ids) < 2 {
			return nil
		}
		cat := child(t.categories, ids[0])
		if cat == nil {
			return nil
		}
		return child(cat.Children, ids[1])
	case LevelLevel3:
		if len(ids) < 3 {
			return nil
		}
		sub := t.find(LevelSubcategory, ids[0], ids[1])
		if sub == nil {
			return nil
		}
		return child(sub.Children, ids[2])
	default:
		return nil
	}
}

func child(nodes []*Node, id string) *Node {
	if idx := indexOf(nodes, id); idx >= 0 {
		return nodes[idx]
	}
	return nil
}

func indexOf(nodes []*Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// collect 先序收集节点及其后代的路径。
func collect(node *Node, parentPath []string) []Ref {
	path := append(append([]string{}, parentPath...), node.ID)
	refs := []Ref{{Level: node.Level, Path: path}}
	for _, c := range node.Children {
		refs = append(refs, collect(c, path)...)
	}
	return refs
}
