package service

import (
	"context"

	"intranet_admin/internal/categorytree"
	"intranet_admin/internal/listview"
	"intranet_admin/internal/model"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/repository"
)

// productService 在通用实体服务之上解析分类标签，并在写入前校验分类路径。
type productService struct {
	*entityService[model.Product, ProductInput]
	categories CategoryService
	views      *listview.Pipeline[model.ProductView]
}

func productViewSpec() listview.Spec[model.ProductView] {
	return listview.Spec[model.ProductView]{
		Search: []func(model.ProductView) string{
			func(p model.ProductView) string { return p.Name },
			func(p model.ProductView) string { return p.Description },
			func(p model.ProductView) string { return p.CategoryName },
			func(p model.ProductView) string { return p.SubcategoryName },
			func(p model.ProductView) string { return p.Level3Name },
		},
		Primary: func(p model.ProductView) string { return p.CategoryID },
		Filters: map[string]func(model.ProductView) string{
			"subcategoryId": func(p model.ProductView) string { return p.SubcategoryID },
			"level3Id":      func(p model.ProductView) string { return p.Level3ID },
			"companyId":     func(p model.ProductView) string { return p.CompanyID },
			"status":        func(p model.ProductView) string { return p.Status },
		},
		Less: func(a, b model.ProductView) bool { return a.Name < b.Name },
	}
}

func NewProductService(repo repository.EntityRepository[model.Product], categories CategoryService, sink notify.Sink) ResourceService[model.ProductView, ProductInput] {
	base := newEntityService[model.Product, ProductInput](repo, listview.Spec[model.Product]{}, sink, "product",
		func(p *model.Product) string { return p.ID })
	return &productService{
		entityService: base,
		categories:    categories,
		views:         listview.New(productViewSpec(), nil),
	}
}

func (s *productService) List(ctx context.Context, state listview.ViewState) (listview.Page[model.ProductView], error) {
	items, err := s.repo.List(ctx, nil)
	if err != nil {
		return listview.Page[model.ProductView]{}, mapRepoError("List product", err)
	}
	tree, err := s.categories.Load(ctx)
	if err != nil {
		return listview.Page[model.ProductView]{}, err
	}

	views := make([]model.ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, productView(tree, p))
	}
	return s.views.Run(views, state), nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.ProductView, error) {
	p, err := s.entityService.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*model.ProductView, error) {
	if err := s.checkPath(ctx, in); err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	p, err := s.entityService.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

func (s *productService) Update(ctx context.Context, id string, in ProductInput) (*model.ProductView, error) {
	if err := s.checkPath(ctx, in); err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	p, err := s.entityService.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p)
}

// checkPath 校验产品引用的分类路径在树中存在。
func (s *productService) checkPath(ctx context.Context, in ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	m, _ := in.ToModel()
	if m.CategoryID == "" {
		return nil
	}
	tree, err := s.categories.Load(ctx)
	if err != nil {
		return err
	}
	switch {
	case m.Level3ID != "":
		if tree.Find(categorytree.LevelLevel3, m.CategoryID, m.SubcategoryID, m.Level3ID) == nil {
			return invalidInput("level 3 category not found")
		}
	case m.SubcategoryID != "":
		if tree.Find(categorytree.LevelSubcategory, m.CategoryID, m.SubcategoryID) == nil {
			return invalidInput("subcategory not found")
		}
	default:
		if tree.Find(categorytree.LevelCategory, m.CategoryID) == nil {
			return invalidInput("category not found")
		}
	}
	return nil
}

func (s *productService) view(ctx context.Context, p *model.Product) (*model.ProductView, error) {
	tree, err := s.categories.Load(ctx)
	if err != nil {
		return nil, err
	}
	v := productView(tree, *p)
	return &v, nil
}

func productView(tree *categorytree.Tree, p model.Product) model.ProductView {
	return model.ProductView{
		Product:         p,
		CategoryName:    tree.Label(categorytree.LevelCategory, p.CategoryID),
		SubcategoryName: tree.Label(categorytree.LevelSubcategory, p.CategoryID, p.SubcategoryID),
		Level3Name:      tree.Label(categorytree.LevelLevel3, p.CategoryID, p.SubcategoryID, p.Level3ID),
	}
}
