package utils

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen 与前端注册表单一致
const MinPasswordLen = 6

var ErrWeakPassword = errors.New("password must be at least 6 characters")

func HashPassword(pw string) string {
	b, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b)
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// ValidatePassword 长度校验；bcrypt 只取前 72 字节
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLen || len(pw) > 72 {
		return ErrWeakPassword
	}
	return nil
}
