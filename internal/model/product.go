package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product 对应 products 表。分类通过 分类/子分类/三级分类 的 ID 路径引用。
type Product struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug          string    `gorm:"type:varchar(255);index" json:"slug"`
	Description   string    `gorm:"type:text" json:"description"`
	CompanyID     string    `gorm:"type:varchar(36);index" json:"companyId"`
	CategoryID    string    `gorm:"type:varchar(36);index" json:"categoryId"`
	SubcategoryID string    `gorm:"type:varchar(36)" json:"subcategoryId"`
	Level3ID      string    `gorm:"type:varchar(36)" json:"level3Id"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProductView 是产品列表的响应行，附带从分类树解析出的显示名称。
type ProductView struct {
	Product
	CategoryName    string `json:"categoryName"`
	SubcategoryName string `json:"subcategoryName"`
	Level3Name      string `json:"level3Name"`
}
