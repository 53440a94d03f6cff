package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"intranet_admin/internal/listview"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/repository"
)

// ResourceService 是后台 CRUD 页面的服务接口。V 是返回给页面的行类型，I 是写入参数。
type ResourceService[V any, I any] interface {
	List(ctx context.Context, state listview.ViewState) (listview.Page[V], error)
	Get(ctx context.Context, id string) (*V, error)
	Create(ctx context.Context, in I) (*V, error)
	Update(ctx context.Context, id string, in I) (*V, error)
	Delete(ctx context.Context, id string) error
}

// entityService 是直接以存储行作为页面行的通用实现。
// 每次写入之后都重新读取存储中的行再返回，不在本地拼装结果。
type entityService[T any, I Input[T]] struct {
	repo     repository.EntityRepository[T]
	pipeline *listview.Pipeline[T]
	sink     notify.Sink
	noun     string

	// beforeCreate 和 beforeUpdate 可选，在写入前做跨行校验（例如唯一性）。
	beforeCreate func(ctx context.Context, entity *T) error
	beforeUpdate func(ctx context.Context, id string, fields map[string]any) error
	// idOf 返回新建行的主键。
	idOf func(*T) string
}

func newEntityService[T any, I Input[T]](repo repository.EntityRepository[T], spec listview.Spec[T], sink notify.Sink, noun string, idOf func(*T) string) *entityService[T, I] {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &entityService[T, I]{
		repo:     repo,
		pipeline: listview.New(spec, nil),
		sink:     sink,
		noun:     noun,
		idOf:     idOf,
	}
}

func (s *entityService[T, I]) List(ctx context.Context, state listview.ViewState) (listview.Page[T], error) {
	items, err := s.repo.List(ctx, nil)
	if err != nil {
		return listview.Page[T]{}, mapRepoError("List "+s.noun, err)
	}
	return s.pipeline.Run(items, state), nil
}

func (s *entityService[T, I]) Get(ctx context.Context, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidInput("%s id is required", s.noun)
	}
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("Get "+s.noun, err)
	}
	return entity, nil
}

func (s *entityService[T, I]) Create(ctx context.Context, in I) (*T, error) {
	entity, err := s.build(in)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	if s.beforeCreate != nil {
		if err := s.beforeCreate(ctx, entity); err != nil {
			return nil, s.fail(ctx, "create", err)
		}
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, s.fail(ctx, "create", mapRepoError("Create "+s.noun, err))
	}

	fresh, err := s.repo.FindByID(ctx, s.idOf(entity))
	if err != nil {
		return nil, s.fail(ctx, "create", mapRepoError("Create "+s.noun, err))
	}
	s.sink.NotifySuccess(ctx, fmt.Sprintf("%s created", capitalize(s.noun)))
	return fresh, nil
}

func (s *entityService[T, I]) Update(ctx context.Context, id string, in I) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, s.fail(ctx, "update", invalidInput("%s id is required", s.noun))
	}
	if err := in.Validate(); err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	fields, err := in.ToFields()
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	if s.beforeUpdate != nil {
		if err := s.beforeUpdate(ctx, id, fields); err != nil {
			return nil, s.fail(ctx, "update", err)
		}
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, s.fail(ctx, "update", mapRepoError("Update "+s.noun, err))
	}

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "update", mapRepoError("Update "+s.noun, err))
	}
	s.sink.NotifySuccess(ctx, fmt.Sprintf("%s updated", capitalize(s.noun)))
	return fresh, nil
}

func (s *entityService[T, I]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return s.fail(ctx, "delete", invalidInput("%s id is required", s.noun))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, "delete", mapRepoError("Delete "+s.noun, err))
	}
	s.sink.NotifySuccess(ctx, fmt.Sprintf("%s deleted", capitalize(s.noun)))
	return nil
}

func (s *entityService[T, I]) build(in I) (*T, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in.ToModel()
}

// fail 把失败推送为错误通知，原样返回 err。
func (s *entityService[T, I]) fail(ctx context.Context, op string, err error) error {
	msg := fmt.Sprintf("Could not %s %s", op, s.noun)
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUserAlreadyExists) ||
		errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrNotFound) {
		msg += ": " + err.Error()
	}
	s.sink.NotifyError(ctx, msg)
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
