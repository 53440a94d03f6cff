package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrUnknownFilter 表示 List 的过滤键不在白名单内。
	ErrUnknownFilter = errors.New("unknown filter column")
	// ErrEmptyUpdate 表示 Update 没有任何可更新字段。
	ErrEmptyUpdate = errors.New("no fields to update")
)

// EntityRepository 是实体存储的通用接口，对应外部数据服务的
// list / get / create / update / delete 五个操作。
// 每个实体表都以字符串 id 为主键。
type EntityRepository[T any] interface {
	List(ctx context.Context, filters map[string]any) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, entity *T) error
	// Update 只更新 fields 中给出的列；记录不存在时返回 gorm.ErrRecordNotFound。
	Update(ctx context.Context, id string, fields map[string]any) error
	// Delete 删除记录；记录不存在时返回 gorm.ErrRecordNotFound。
	Delete(ctx context.Context, id string) error
}

// gormEntityRepository 是 EntityRepository 的 GORM 实现。
type gormEntityRepository[T any] struct {
	db      *gorm.DB
	order   string
	columns map[string]struct{}
}

// NewEntityRepository 创建通用仓库。order 是 List 的排序子句，
// filterable 是 List 允许按等值过滤的列名白名单。
func NewEntityRepository[T any](db *gorm.DB, order string, filterable ...string) EntityRepository[T] {
	return newGormEntityRepository[T](db, order, filterable...)
}

func newGormEntityRepository[T any](db *gorm.DB, order string, filterable ...string) *gormEntityRepository[T] {
	columns := make(map[string]struct{}, len(filterable))
	for _, c := range filterable {
		columns[c] = struct{}{}
	}
	return &gormEntityRepository[T]{db: db, order: order, columns: columns}
}

func (r *gormEntityRepository[T]) List(ctx context.Context, filters map[string]any) ([]T, error) {
	tx := r.db.WithContext(ctx).Model(new(T))
	for column, value := range filters {
		if _, ok := r.columns[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, column)
		}
		tx = tx.Where(column+" = ?", value)
	}
	if r.order != "" {
		tx = tx.Order(r.order)
	}

	items := make([]T, 0)
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormEntityRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id is required")
	}

	entity := new(T)
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *gormEntityRepository[T]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("entity is nil")
	}
	return r.db.WithContext(ctx).Create(entity).Error
}

// Update 使用 map 更新，零值（空串、false）也会被写入。
// MySQL 在值未变化时 RowsAffected 为 0，因此这种情况下再确认一次记录是否存在。
func (r *gormEntityRepository[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required")
	}
	if len(fields) == 0 {
		return ErrEmptyUpdate
	}

	db := r.db.WithContext(ctx)
	tx := db.Model(new(T)).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormEntityRepository[T]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required")
	}

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
