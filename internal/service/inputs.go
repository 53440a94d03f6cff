package service

import (
	"net/mail"
	"strings"
	"time"

	"intranet_admin/internal/model"
	"intranet_admin/pkg/hash"
	"intranet_admin/pkg/slug"
)

// Input 是某种实体的类型化写入参数。
// ToModel 用于新建，ToFields 给出更新时写入的列（列名 -> 值）。
type Input[T any] interface {
	Validate() error
	ToModel() (*T, error)
	ToFields() (map[string]any, error)
}

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusDraft     = "draft"
	StatusPublished = "published"
)

var alertSeverities = map[string]struct{}{"info": {}, "warning": {}, "critical": {}}

func trim(s string) string { return strings.TrimSpace(s) }

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// statusOr 返回规范化后的状态，空值取默认值，不在 allowed 中返回空串。
func statusOr(raw, def string, allowed ...string) string {
	v := strings.ToLower(trim(raw))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return ""
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return invalidInput("end time must not be before start time")
	}
	return nil
}

// CompanyInput 是公司的写入参数。
type CompanyInput struct {
	Name     string `json:"name" binding:"required"`
	TaxID    string `json:"taxId"`
	Sector   string `json:"sector"`
	Province string `json:"province"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Status   string `json:"status"`
}

func (in CompanyInput) Validate() error {
	if trim(in.Name) == "" {
		return invalidInput("company name is required")
	}
	if e := trim(in.Email); e != "" && !validEmail(strings.ToLower(e)) {
		return invalidInput("company email is not valid")
	}
	if statusOr(in.Status, StatusActive, StatusActive, StatusInactive) == "" {
		return invalidInput("unknown company status %q", in.Status)
	}
	return nil
}

func (in CompanyInput) ToModel() (*model.Company, error) {
	return &model.Company{
		Name:     trim(in.Name),
		TaxID:    strings.ToUpper(trim(in.TaxID)),
		Sector:   trim(in.Sector),
		Province: trim(in.Province),
		City:     trim(in.City),
		Address:  trim(in.Address),
		Email:    strings.ToLower(trim(in.Email)),
		Phone:    trim(in.Phone),
		Website:  trim(in.Website),
		Status:   statusOr(in.Status, StatusActive, StatusActive, StatusInactive),
	}, nil
}

func (in CompanyInput) ToFields() (map[string]any, error) {
	m, _ := in.ToModel()
	return map[string]any{
		"name":     m.Name,
		"tax_id":   m.TaxID,
		"sector":   m.Sector,
		"province": m.Province,
		"city":     m.City,
		"address":  m.Address,
		"email":    m.Email,
		"phone":    m.Phone,
		"website":  m.Website,
		"status":   m.Status,
	}, nil
}

// DelegationInput 是分支机构的写入参数。
type DelegationInput struct {
	CompanyID string `json:"companyId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Province  string `json:"province"`
	City      string `json:"city"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (in DelegationInput) Validate() error {
	if trim(in.CompanyID) == "" {
		return invalidInput("delegation company is required")
	}
	if trim(in.Name) == "" {
		return invalidInput("delegation name is required")
	}
	if e := trim(in.Email); e != "" && !validEmail(strings.ToLower(e)) {
		return invalidInput("delegation email is not valid")
	}
	return nil
}

func (in DelegationInput) ToModel() (*model.Delegation, error) {
	return &model.Delegation{
		CompanyID: trim(in.CompanyID),
		Name:      trim(in.Name),
		Province:  trim(in.Province),
		City:      trim(in.City),
		Address:   trim(in.Address),
		Phone:     trim(in.Phone),
		Email:     strings.ToLower(trim(in.Email)),
	}, nil
}

func (in DelegationInput) ToFields() (map[string]any, error) {
	m, _ := in.ToModel()
	return map[string]any{
		"company_id": m.CompanyID,
		"name":       m.Name,
		"province":   m.Province,
		"city":       m.City,
		"address":    m.Address,
		"phone":      m.Phone,
		"email":      m.Email,
	}, nil
}

// ProductInput 是产品的写入参数。分类路径的存在性由 ProductService 对照分类树校验。
type ProductInput struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	CompanyID     string `json:"companyId"`
	CategoryID    string `json:"categoryId"`
	SubcategoryID string `json:"subcategoryId"`
	Level3ID      string `json:"level3Id"`
	Status        string `json:"status"`
}

func (in ProductInput) Validate() error {
	if trim(in.Name) == "" {
		return invalidInput("product name is required")
	}
	if trim(in.SubcategoryID) != "" && trim(in.CategoryID) == "" {
		return invalidInput("subcategory requires a category")
	}
	if trim(in.Level3ID) != "" && trim(in.SubcategoryID) == "" {
		return invalidInput("level 3 category requires a subcategory")
	}
	if statusOr(in.Status, StatusActive, StatusActive, StatusInactive) == "" {
		return invalidInput("unknown product status %q", in.Status)
	}
	return nil
}

func (in ProductInput) ToModel() (*model.Product, error) {
	name := trim(in.Name)
	return &model.Product{
		Name:          name,
		Slug:          slug.Generate(name),
		Description:   trim(in.Description),
		CompanyID:     trim(in.CompanyID),
		CategoryID:    trim(in.CategoryID),
		SubcategoryID: trim(in.SubcategoryID),
		Level3ID:      trim(in.Level3ID),
		Status:        statusOr(in.Status, StatusActive, StatusActive, StatusInactive),
	}, nil
}

func (in ProductInput) ToFields() (map[string]any, error) {
	m, _ := in.ToModel()
	return map[string]any{
		"name":           m.Name,
		"slug":           m.Slug,
		"description":    m.Description,
		"company_id":     m.CompanyID,
		"category_id":    m.CategoryID,
		"subcategory_id": m.SubcategoryID,
		"level3_id":      m.Level3ID,
		"status":         m.Status,
	}, nil
}

// UserInput 是后台用户管理的写入参数。新建时必须提供密码；更新时密码为空表示不修改。
type UserInput struct {
	Email      string  `json:"email" binding:"required"`
	FullName   string  `json:"fullName" binding:"required"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	CompanyID  *string `json:"companyId"`
	Password   string  `json:"password"`
}

func (in UserInput) role() string {
	return statusOr(in.Role, model.RoleUser, model.RoleUser, model.RoleAdmin)
}

func (in UserInput) companyID() *string {
	if in.CompanyID == nil || trim(*in.CompanyID) == "" {
		return nil
	}
	id := trim(*in.CompanyID)
	return &id
}

func (in UserInput) Validate() error {
	if !validEmail(strings.ToLower(trim(in.Email))) {
		return invalidInput("email is not valid")
	}
	if trim(in.FullName) == "" {
		return invalidInput("full name is required")
	}
	if in.role() == "" {
		return invalidInput("unknown role %q", in.Role)
	}
	return nil
}

func (in UserInput) ToModel() (*model.User, error) {
	if in.Password == "" {
		return nil, invalidInput("password is required")
	}
	hashed, err := hashInputPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return &model.User{
		Email:      strings.ToLower(trim(in.Email)),
		Password:   hashed,
		FullName:   trim(in.FullName),
		Role:       in.role(),
		Department: trim(in.Department),
		CompanyID:  in.companyID(),
	}, nil
}

func (in UserInput) ToFields() (map[string]any, error) {
	fields := map[string]any{
		"email":      strings.ToLower(trim(in.Email)),
		"full_name":  trim(in.FullName),
		"role":       in.role(),
		"department": trim(in.Department),
		"company_id": in.companyID(),
	}
	if in.Password != "" {
		hashed, err := hashInputPassword(in.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hashed
	}
	return fields, nil
}

func hashInputPassword(password string) (string, error) {
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return "", invalidInput("%v", err)
	}
	return hashed, nil
}

// NewsInput 是新闻的写入参数。状态为 published 且未给发布时间时取当前时间。
type NewsInput struct {
	Title       string     `json:"title" binding:"required"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	ImageURL    string     `json:"imageUrl"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
}

func (in NewsInput) status() string {
	return statusOr(in.Status, StatusDraft, StatusDraft, StatusPublished)
}

func (in NewsInput) publishedAt() *time.Time {
	if in.PublishedAt == nil && in.status() == StatusPublished {
		now := time.Now()
		return &now
	}
	return in.PublishedAt
}

func (in NewsInput) Validate() error {
	if trim(in.Title) == "" {
		return invalidInput("news title is required")
	}
	if in.status() == "" {
		return invalidInput("unknown news status %q", in.Status)
	}
	return nil
}

func (in NewsInput) ToModel() (*model.News, error) {
	title := trim(in.Title)
	return &model.News{
		Title:       title,
		Slug:        slug.Generate(title),
		Summary:     trim(in.Summary),
		Content:     in.Content,
		ImageURL:    trim(in.ImageURL),
		Status:      in.status(),
		PublishedAt: in.publishedAt(),
	}, nil
}

func (in NewsInput) ToFields() (map[string]any, error) {
	m, _ := in.ToModel()
	return map[string]any{
		"title":        m.Title,
		"slug":         m.Slug,
		"summary":      m.Summary,
		"content":      m.Content,
		"image_url":    m.ImageURL,
		"status":       m.Status,
		"published_at": m.PublishedAt,
	}, nil
}

// AlertInput 是提醒横幅的写入参数。Active 为空时默认启用。
type AlertInput struct {
	Title    string     `json:"title" binding:"required"`
	Message  string     `json:"message"`
	Severity string     `json:"severity"`
	Active   *bool      `json:"active"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

func (in AlertInput) severity() string {
	v := strings.ToLower(trim(in.Severity))
	if v == "" {
		return "info"
	}
	if _, ok := alertSeverities[v]; !ok {
		return ""
	}
	return v
}

func (in AlertInput) active() bool {
	return in.Active == nil || *in.Active
}

func (in AlertInput) Validate() error {
	if trim(in.Title) == "" {
		return invalidInput("alert title is required")
	}
	if in.severity() == "" {
		return invalidInput("unknown alert severity %q", in.Severity)
	}
	return checkWindow(in.StartsAt, in.EndsAt)
}

func (in AlertInput) ToModel() (*model.Alert, error) {
	return &model.Alert{
		Title:    trim(in.Title),
		Message:  trim(in.Message),
		Severity: in.severity(),
		Active:   in.active(),
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
	}, nil
}

func (in AlertInput) ToFields() (map[string]any, error) {
	return map[string]any{
		"title":     trim(in.Title),
		"message":   trim(in.Message),
		"severity":  in.severity(),
		"active":    in.active(),
		"starts_at": in.StartsAt,
		"ends_at":   in.EndsAt,
	}, nil
}

// EventInput 是活动日程的写入参数。
type EventInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
}

func (in EventInput) Validate() error {
	if trim(in.Title) == "" {
		return invalidInput("event title is required")
	}
	return checkWindow(in.StartsAt, in.EndsAt)
}

func (in EventInput) ToModel() (*model.Event, error) {
	return &model.Event{
		Title:       trim(in.Title),
		Description: trim(in.Description),
		Location:    trim(in.Location),
		Category:    trim(in.Category),
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
	}, nil
}

func (in EventInput) ToFields() (map[string]any, error) {
	return map[string]any{
		"title":       trim(in.Title),
		"description": trim(in.Description),
		"location":    trim(in.Location),
		"category":    trim(in.Category),
		"starts_at":   in.StartsAt,
		"ends_at":     in.EndsAt,
	}, nil
}
