package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID 主键 ID（uuid v4 字符串）
func NewID() string { return uuid.NewString() }

// NewToken 一次性 token（邮箱验证/重置密码）：32 字节随机数的 hex
func NewToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b) // crypto/rand.Read 不会返回错误
	return hex.EncodeToString(b)
}
