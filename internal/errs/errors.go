package errs

import (
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

var ErrStatusMap = map[error]int{
	ErrValidation:         http.StatusBadRequest,
	ErrConflict:           http.StatusBadRequest,
	ErrNotFound:           http.StatusNotFound,
	ErrUnauthenticated:    http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrInvalidCredentials: http.StatusBadRequest,
	ErrInvalidResetToken:  http.StatusBadRequest,
}

// Status 返回 err 对应的 HTTP 状态码；未知错误返回 500
func Status(err error) int {
	for known, code := range ErrStatusMap {
		if errors.Is(err, known) {
			return code
		}
	}
	return http.StatusInternalServerError
}
