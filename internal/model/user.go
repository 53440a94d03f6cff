package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 对应数据库中 users 表，即认证服务中的用户行。
type User struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"` // Hide password in json output
	FullName     string     `gorm:"type:varchar(255);not null" json:"fullName"`
	Role         string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Department   string     `gorm:"type:varchar(100)" json:"department"`
	CompanyID    *string    `gorm:"type:varchar(36);index" json:"companyId"`
	LastSignInAt *time.Time `json:"lastSignInAt"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 在插入前补齐主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
