package model

import "time"

// Category 对应 categories 表，是产品分类的第一层。
type Category struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(120);not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Category) TableName() string {
	return "categories"
}

// Subcategory 对应 subcategories 表，通过 CategoryID 指向所属分类。
type Subcategory struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CategoryID string    `gorm:"type:varchar(36);not null;index" json:"categoryId"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug       string    `gorm:"type:varchar(120);not null" json:"slug"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Subcategory) TableName() string {
	return "subcategories"
}

// Level3Category 对应 level3_categories 表，通过 SubcategoryID 指向所属子分类。
type Level3Category struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SubcategoryID string    `gorm:"type:varchar(36);not null;index" json:"subcategoryId"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug          string    `gorm:"type:varchar(120);not null" json:"slug"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Level3Category) TableName() string {
	return "level3_categories"
}

// CategoryNode 是分类树的响应节点。
// 与数据库模型的区别：
//   - 不含审计字段
//   - 增加 Expanded（当前会话的展开状态）和 Children
type CategoryNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Level    string          `json:"level"`
	ParentID string          `json:"parentId,omitempty"`
	Expanded bool            `json:"expanded"`
	Children []*CategoryNode `json:"children"`
}
