package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrAccountExists       = errors.New("account already exists")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrBackendUnavailable  = errors.New("backend unavailable")
	ErrProfileInconsistent = errors.New("credential has no matching profile")

	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrProfileExists = errors.New("profile already exists")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// Unavailable 把存储层错误包成 ErrBackendUnavailable，保留原因
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrBackendUnavailable, err))
}

// Invalid 输入校验失败
func Invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidInput, msg) }
