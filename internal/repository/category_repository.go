package repository

import (
	"context"
	"fmt"

	"intranet_admin/internal/model"

	"gorm.io/gorm"
)

// CategoryRows 是三张分类表的全量数据。
type CategoryRows struct {
	Categories    []model.Category
	Subcategories []model.Subcategory
	Level3        []model.Level3Category
}

// CategoryRepository 定义三层分类的持久化操作。
// 删除都是级联删除，并且对不存在的记录是幂等的（不返回错误）。
type CategoryRepository interface {
	FindAll(ctx context.Context) (*CategoryRows, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSubcategory(ctx context.Context, s *model.Subcategory) error
	CreateLevel3(ctx context.Context, l *model.Level3Category) error

	// DeleteCategory 在一个事务内删除分类、其子分类以及这些子分类下的三级分类。
	DeleteCategory(ctx context.Context, categoryID string) error
	// DeleteSubcategory 在一个事务内删除子分类及其三级分类。
	DeleteSubcategory(ctx context.Context, categoryID, subcategoryID string) error
	DeleteLevel3(ctx context.Context, subcategoryID, level3ID string) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// FindAll 按创建时间读取三张表，保持插入顺序用于展示。
func (r *categoryRepository) FindAll(ctx context.Context) (*CategoryRows, error) {
	db := r.db.WithContext(ctx)
	rows := &CategoryRows{
		Categories:    []model.Category{},
		Subcategories: []model.Subcategory{},
		Level3:        []model.Level3Category{},
	}
	if err := db.Order("created_at ASC").Find(&rows.Categories).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at ASC").Find(&rows.Subcategories).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at ASC").Find(&rows.Level3).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *categoryRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("category id is required")
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoryRepository) CreateSubcategory(ctx context.Context, s *model.Subcategory) error {
	if s == nil || s.ID == "" || s.CategoryID == "" {
		return fmt.Errorf("subcategory id and category id are required")
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *categoryRepository) CreateLevel3(ctx context.Context, l *model.Level3Category) error {
	if l == nil || l.ID == "" || l.SubcategoryID == "" {
		return fmt.Errorf("level3 id and subcategory id are required")
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *categoryRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return fmt.Errorf("category id is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subIDs []string
		if err := tx.Model(&model.Subcategory{}).
			Where("category_id = ?", categoryID).
			Pluck("id", &subIDs).Error; err != nil {
			return err
		}

		if len(subIDs) > 0 {
			if err := tx.Where("subcategory_id IN ?", subIDs).Delete(&model.Level3Category{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", categoryID).Delete(&model.Subcategory{}).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", categoryID).Delete(&model.Category{}).Error
	})
}

func (r *categoryRepository) DeleteSubcategory(ctx context.Context, categoryID, subcategoryID string) error {
	if categoryID == "" || subcategoryID == "" {
		return fmt.Errorf("category id and subcategory id are required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND category_id = ?", subcategoryID, categoryID).Delete(&model.Subcategory{})
		if res.Error != nil {
			return res.Error
		}
		// 子分类不属于该分类（或已不存在）时不动它的三级分类
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Where("subcategory_id = ?", subcategoryID).Delete(&model.Level3Category{}).Error
	})
}

func (r *categoryRepository) DeleteLevel3(ctx context.Context, subcategoryID, level3ID string) error {
	if subcategoryID == "" || level3ID == "" {
		return fmt.Errorf("subcategory id and level3 id are required")
	}
	return r.db.WithContext(ctx).
		Where("id = ? AND subcategory_id = ?", level3ID, subcategoryID).
		Delete(&model.Level3Category{}).Error
}
