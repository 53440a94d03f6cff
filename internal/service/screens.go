package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"intranet_admin/internal/listview"
	"intranet_admin/internal/model"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/repository"

	"gorm.io/gorm"
)

// 各列表页的过滤字段。高级过滤的 key 与查询参数 filter[key] 一一对应。

func companySpec() listview.Spec[model.Company] {
	return listview.Spec[model.Company]{
		Search: []func(model.Company) string{
			func(c model.Company) string { return c.Name },
			func(c model.Company) string { return c.City },
			func(c model.Company) string { return c.Email },
			func(c model.Company) string { return c.TaxID },
		},
		Primary: func(c model.Company) string { return c.Sector },
		Filters: map[string]func(model.Company) string{
			"province": func(c model.Company) string { return c.Province },
			"status":   func(c model.Company) string { return c.Status },
		},
		Timestamp: listview.TimeField(func(c model.Company) *time.Time { return &c.CreatedAt }),
		Less:      func(a, b model.Company) bool { return a.Name < b.Name },
	}
}

func delegationSpec() listview.Spec[model.Delegation] {
	return listview.Spec[model.Delegation]{
		Search: []func(model.Delegation) string{
			func(d model.Delegation) string { return d.Name },
			func(d model.Delegation) string { return d.City },
		},
		Primary: func(d model.Delegation) string { return d.CompanyID },
		Filters: map[string]func(model.Delegation) string{
			"province": func(d model.Delegation) string { return d.Province },
		},
		Less: func(a, b model.Delegation) bool { return a.Name < b.Name },
	}
}

func userSpec() listview.Spec[model.User] {
	return listview.Spec[model.User]{
		Search: []func(model.User) string{
			func(u model.User) string { return u.FullName },
			func(u model.User) string { return u.Email },
		},
		Primary: func(u model.User) string {
			if u.CompanyID == nil {
				return ""
			}
			return *u.CompanyID
		},
		Filters: map[string]func(model.User) string{
			"role":       func(u model.User) string { return u.Role },
			"department": func(u model.User) string { return u.Department },
		},
		Timestamp: listview.TimeField(func(u model.User) *time.Time { return u.LastSignInAt }),
	}
}

func newsSpec() listview.Spec[model.News] {
	return listview.Spec[model.News]{
		Search: []func(model.News) string{
			func(n model.News) string { return n.Title },
			func(n model.News) string { return n.Summary },
		},
		Primary:   func(n model.News) string { return n.Status },
		Timestamp: listview.TimeField(func(n model.News) *time.Time { return n.PublishedAt }),
		Less:      func(a, b model.News) bool { return a.CreatedAt.After(b.CreatedAt) },
	}
}

func alertSpec() listview.Spec[model.Alert] {
	return listview.Spec[model.Alert]{
		Search: []func(model.Alert) string{
			func(a model.Alert) string { return a.Title },
			func(a model.Alert) string { return a.Message },
		},
		Primary: func(a model.Alert) string { return a.Severity },
		Filters: map[string]func(model.Alert) string{
			"active": func(a model.Alert) string { return strconv.FormatBool(a.Active) },
		},
		Timestamp: listview.TimeField(func(a model.Alert) *time.Time { return a.StartsAt }),
	}
}

func eventSpec() listview.Spec[model.Event] {
	return listview.Spec[model.Event]{
		Search: []func(model.Event) string{
			func(e model.Event) string { return e.Title },
			func(e model.Event) string { return e.Location },
		},
		Primary:   func(e model.Event) string { return e.Category },
		Timestamp: listview.TimeField(func(e model.Event) *time.Time { return e.StartsAt }),
		Less: func(a, b model.Event) bool {
			if a.StartsAt == nil || b.StartsAt == nil {
				return a.StartsAt != nil
			}
			return a.StartsAt.Before(*b.StartsAt)
		},
	}
}

func NewCompanyService(repo repository.EntityRepository[model.Company], sink notify.Sink) ResourceService[model.Company, CompanyInput] {
	return newEntityService[model.Company, CompanyInput](repo, companySpec(), sink, "company",
		func(c *model.Company) string { return c.ID })
}

func NewDelegationService(repo repository.EntityRepository[model.Delegation], sink notify.Sink) ResourceService[model.Delegation, DelegationInput] {
	return newEntityService[model.Delegation, DelegationInput](repo, delegationSpec(), sink, "delegation",
		func(d *model.Delegation) string { return d.ID })
}

// NewUserService 创建后台用户管理服务，新建和修改前都检查邮箱是否已被其他用户占用。
func NewUserService(repo repository.UserRepository, sink notify.Sink) ResourceService[model.User, UserInput] {
	s := newEntityService[model.User, UserInput](repo, userSpec(), sink, "user",
		func(u *model.User) string { return u.ID })
	emailTaken := func(ctx context.Context, op, email, selfID string) error {
		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrUserAlreadyExists
		case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
			return nil
		default:
			return mapRepoError(op, err)
		}
	}
	s.beforeCreate = func(ctx context.Context, u *model.User) error {
		return emailTaken(ctx, "Create user", u.Email, "")
	}
	s.beforeUpdate = func(ctx context.Context, id string, fields map[string]any) error {
		email, _ := fields["email"].(string)
		if email == "" {
			return nil
		}
		return emailTaken(ctx, "Update user", email, id)
	}
	return s
}

func NewNewsService(repo repository.EntityRepository[model.News], sink notify.Sink) ResourceService[model.News, NewsInput] {
	return newEntityService[model.News, NewsInput](repo, newsSpec(), sink, "news item",
		func(n *model.News) string { return n.ID })
}

func NewAlertService(repo repository.EntityRepository[model.Alert], sink notify.Sink) ResourceService[model.Alert, AlertInput] {
	return newEntityService[model.Alert, AlertInput](repo, alertSpec(), sink, "alert",
		func(a *model.Alert) string { return a.ID })
}

func NewEventService(repo repository.EntityRepository[model.Event], sink notify.Sink) ResourceService[model.Event, EventInput] {
	return newEntityService[model.Event, EventInput](repo, eventSpec(), sink, "event",
		func(e *model.Event) string { return e.ID })
}
