package service

import (
	"context"
	"errors"
	"fmt"

	"intranet_admin/internal/categorytree"
	"intranet_admin/internal/model"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/repository"
	"intranet_admin/internal/viewstate"
	"intranet_admin/pkg/log"
)

// CategoryInput 是新增节点的参数。
type CategoryInput struct {
	Level         string `json:"level" binding:"required"`
	Name          string `json:"name"`
	CategoryID    string `json:"categoryId"`
	SubcategoryID string `json:"subcategoryId"`
}

// CategoryRef 定位一个节点：分类只需 CategoryID，子分类还需 SubcategoryID，三级分类三者都需要。
type CategoryRef struct {
	Level         string `json:"level" form:"level"`
	CategoryID    string `json:"categoryId" form:"categoryId"`
	SubcategoryID string `json:"subcategoryId" form:"subcategoryId"`
	Level3ID      string `json:"level3Id" form:"level3Id"`
}

func (r CategoryRef) path(level categorytree.Level) []string {
	switch level {
	case categorytree.LevelCategory:
		return []string{r.CategoryID}
	case categorytree.LevelSubcategory:
		return []string{r.CategoryID, r.SubcategoryID}
	default:
		return []string{r.CategoryID, r.SubcategoryID, r.Level3ID}
	}
}

// CategoryService 管理三层分类。展开状态按会话保存在 viewstate.Registry 中。
type CategoryService interface {
	// Tree 返回整棵树，并带上该会话的展开状态。
	Tree(ctx context.Context, sessionID string) ([]*model.CategoryNode, error)
	Add(ctx context.Context, sessionID string, in CategoryInput) (*model.CategoryNode, error)
	// Delete 级联删除节点；节点不存在时什么也不做。
	Delete(ctx context.Context, sessionID string, ref CategoryRef) error
	// Toggle 切换展开状态，返回切换后的状态。
	Toggle(ctx context.Context, sessionID, level, id string) (bool, error)
	// Load 从存储构建一棵不带展开状态的树，供产品标签解析使用。
	Load(ctx context.Context) (*categorytree.Tree, error)
}

type categoryService struct {
	repo     repository.CategoryRepository
	registry *viewstate.Registry
	sink     notify.Sink
}

func NewCategoryService(repo repository.CategoryRepository, registry *viewstate.Registry, sink notify.Sink) CategoryService {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &categoryService{repo: repo, registry: registry, sink: sink}
}

func (s *categoryService) Load(ctx context.Context) (*categorytree.Tree, error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, mapRepoError("Load categories", err)
	}

	tree := categorytree.New()
	for _, c := range rows.Categories {
		_ = tree.Insert(categorytree.LevelCategory, &categorytree.Node{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}

	// 三级分类表只记录直接父级，需要通过子分类反查分类；同一子分类 ID 取首个
	subParent := make(map[string]string, len(rows.Subcategories))
	for _, sc := range rows.Subcategories {
		err := tree.Insert(categorytree.LevelSubcategory, &categorytree.Node{ID: sc.ID, Name: sc.Name, Slug: sc.Slug}, sc.CategoryID)
		if err != nil {
			log.Warnw("skipping orphan subcategory", "id", sc.ID, "categoryId", sc.CategoryID)
			continue
		}
		if _, seen := subParent[sc.ID]; !seen {
			subParent[sc.ID] = sc.CategoryID
		}
	}
	for _, l3 := range rows.Level3 {
		catID, ok := subParent[l3.SubcategoryID]
		if !ok {
			log.Warnw("skipping orphan level3 category", "id", l3.ID, "subcategoryId", l3.SubcategoryID)
			continue
		}
		_ = tree.Insert(categorytree.LevelLevel3, &categorytree.Node{ID: l3.ID, Name: l3.Name, Slug: l3.Slug}, catID, l3.SubcategoryID)
	}
	return tree, nil
}

func (s *categoryService) Tree(ctx context.Context, sessionID string) ([]*model.CategoryNode, error) {
	tree, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	tree.RestoreExpansion(s.registry.Expansion(sessionID))
	return toCategoryNodes(tree, tree.Categories()), nil
}

func (s *categoryService) Add(ctx context.Context, sessionID string, in CategoryInput) (*model.CategoryNode, error) {
	level, err := categorytree.ParseLevel(in.Level)
	if err != nil {
		return nil, s.fail(ctx, "add", fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	tree, err := s.Load(ctx)
	if err != nil {
		return nil, s.fail(ctx, "add", err)
	}

	node, err := tree.AddNode(level, in.Name, in.CategoryID, in.SubcategoryID)
	if err != nil {
		return nil, s.fail(ctx, "add", fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	switch level {
	case categorytree.LevelCategory:
		err = s.repo.CreateCategory(ctx, &model.Category{ID: node.ID, Name: node.Name, Slug: node.Slug})
	case categorytree.LevelSubcategory:
		err = s.repo.CreateSubcategory(ctx, &model.Subcategory{ID: node.ID, CategoryID: node.ParentID, Name: node.Name, Slug: node.Slug})
	case categorytree.LevelLevel3:
		err = s.repo.CreateLevel3(ctx, &model.Level3Category{ID: node.ID, SubcategoryID: node.ParentID, Name: node.Name, Slug: node.Slug})
	}
	if err != nil {
		return nil, s.fail(ctx, "add", mapRepoError("Add category", err))
	}

	s.sink.NotifySuccess(ctx, "Category created")
	tree.RestoreExpansion(s.registry.Expansion(sessionID))
	return toCategoryNode(tree, node), nil
}

func (s *categoryService) Delete(ctx context.Context, sessionID string, ref CategoryRef) error {
	level, err := categorytree.ParseLevel(ref.Level)
	if err != nil {
		return s.fail(ctx, "delete", fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}
	tree, err := s.Load(ctx)
	if err != nil {
		return s.fail(ctx, "delete", err)
	}

	path := ref.path(level)
	removed := tree.DeleteNode(level, path...)
	if len(removed) == 0 {
		return nil
	}

	switch level {
	case categorytree.LevelCategory:
		err = s.repo.DeleteCategory(ctx, path[0])
	case categorytree.LevelSubcategory:
		err = s.repo.DeleteSubcategory(ctx, path[0], path[1])
	case categorytree.LevelLevel3:
		err = s.repo.DeleteLevel3(ctx, path[1], path[2])
	}
	if err != nil {
		return s.fail(ctx, "delete", mapRepoError("Delete category", err))
	}

	// 被删除的节点及其后代从所有会话的展开状态中移除
	for _, r := range removed {
		s.registry.Forget(r.Level, r.Path[len(r.Path)-1])
	}
	s.sink.NotifySuccess(ctx, "Category deleted")
	return nil
}

func (s *categoryService) Toggle(ctx context.Context, sessionID, rawLevel, id string) (bool, error) {
	level, err := categorytree.ParseLevel(rawLevel)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if id == "" {
		return false, invalidInput("id is required")
	}

	var expanded bool
	s.registry.Update(sessionID, func(state map[categorytree.Level][]string) map[categorytree.Level][]string {
		tree := categorytree.New()
		tree.RestoreExpansion(state)
		tree.ToggleExpansion(level, id)
		expanded = tree.Expanded(level, id)
		return tree.Expansion()
	})
	return expanded, nil
}

func (s *categoryService) fail(ctx context.Context, op string, err error) error {
	msg := fmt.Sprintf("Could not %s category", op)
	if errors.Is(err, ErrInvalidInput) {
		msg += ": " + err.Error()
	}
	s.sink.NotifyError(ctx, msg)
	return err
}

func toCategoryNodes(tree *categorytree.Tree, nodes []*categorytree.Node) []*model.CategoryNode {
	out := make([]*model.CategoryNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toCategoryNode(tree, n))
	}
	return out
}

func toCategoryNode(tree *categorytree.Tree, n *categorytree.Node) *model.CategoryNode {
	return &model.CategoryNode{
		ID:       n.ID,
		Name:     n.Name,
		Slug:     n.Slug,
		Level:    string(n.Level),
		ParentID: n.ParentID,
		Expanded: tree.Expanded(n.Level, n.ID),
		Children: toCategoryNodes(tree, n.Children),
	}
}
