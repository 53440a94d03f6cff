package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intranet_admin/internal/model"

	"gorm.io/gorm"
)

// UserRepository 在通用实体操作之外，提供认证相关的查询。
type UserRepository interface {
	EntityRepository[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLastSignIn(ctx context.Context, userID string, at time.Time) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	*gormEntityRepository[model.User]
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		gormEntityRepository: newGormEntityRepository[model.User](db, "created_at ASC", "role", "company_id", "department"),
	}
}

// FindByEmail 根据邮箱查找用户，邮箱比较前统一转小写。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastSignIn 记录最近登录时间，供"最近登录"过滤使用。
func (r *userRepository) TouchLastSignIn(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	tx := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_sign_in_at", at)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
