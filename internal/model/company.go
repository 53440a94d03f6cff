package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company 对应 companies 表。Sector 是公司列表的主过滤字段。
type Company struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	TaxID     string    `gorm:"type:varchar(32);index" json:"taxId"`
	Sector    string    `gorm:"type:varchar(100);index" json:"sector"`
	Province  string    `gorm:"type:varchar(100)" json:"province"`
	City      string    `gorm:"type:varchar(100)" json:"city"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	Website   string    `gorm:"type:varchar(255)" json:"website"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Delegation 是公司的分支机构（delegations 表）。
type Delegation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CompanyID string    `gorm:"type:varchar(36);not null;index" json:"companyId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Province  string    `gorm:"type:varchar(100)" json:"province"`
	City      string    `gorm:"type:varchar(100)" json:"city"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Delegation) TableName() string {
	return "delegations"
}

func (d *Delegation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
