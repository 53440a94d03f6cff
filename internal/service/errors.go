package service

import (
	"errors"
	"fmt"

	"intranet_admin/internal/repository"
	"intranet_admin/pkg/log"

	"gorm.io/gorm"
)

// 哨兵错误：对外统一语义，隐藏底层实现细节
var (
	// ErrInvalidInput 请求参数不合法（在调用存储之前拦截）
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials 邮箱或密码错误（登录时统一返回，防止用户枚举）
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists 邮箱已被注册
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrAlreadyExists 写入违反唯一约束
	ErrAlreadyExists = errors.New("record already exists")
	// ErrSessionInvalid 令牌无效、过期或会话已登出
	ErrSessionInvalid = errors.New("session is invalid or expired")
	// ErrInternal 内部错误（对外不暴露细节）
	ErrInternal = errors.New("internal server error")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// mapRepoError 把存储层错误转换为服务层哨兵错误；未知错误记日志后统一为 ErrInternal。
func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	case errors.Is(err, repository.ErrUnknownFilter), errors.Is(err, repository.ErrEmptyUpdate):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		log.Errorf("%s: %v", op, err)
		return ErrInternal
	}
}
