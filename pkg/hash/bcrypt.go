// Package hash 负责用户密码的哈希与校验。
package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 是注册和管理员建号时允许的最短密码。
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password is too short")
	// bcrypt 只使用前 72 字节，超长密码直接拒绝，避免"截断后碰撞"。
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// HashPassword 校验长度后使用 bcrypt 对密码进行哈希
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPasswordHash 检查密码是否与哈希匹配
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
