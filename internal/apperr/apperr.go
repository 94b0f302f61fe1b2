package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sql-driver/mysql"
)

// MySQL 에러 코드
const (
	MySQLDuplicateEntry = 1062
	MySQLForeignKeyFail = 1451
)

// 센티널 에러 (errors.Is 용도)
var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrExternal       = errors.New("external service error")
)

// AppError는 사용자에게 보여줄 메시지와 HTTP 상태를 함께 담습니다.
type AppError struct {
	Err        error
	Message    string
	Code       string
	Field      string // 검증 실패한 필드 (없으면 빈 값)
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New는 센티널 에러로부터 AppError를 생성합니다.
func New(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    fmt.Sprintf(format, args...),
		Code:       Code(err),
		StatusCode: StatusCode(err),
	}
}

// Invalid는 특정 필드의 검증 실패 에러를 생성합니다.
func Invalid(field, format string, args ...interface{}) *AppError {
	e := New(ErrInvalidInput, format, args...)
	e.Field = field
	return e
}

// NotFound는 "찾을 수 없음" 에러를 생성합니다.
func NotFound(format string, args ...interface{}) *AppError {
	return New(ErrNotFound, format, args...)
}

// Forbidden은 권한 없음 에러를 생성합니다.
func Forbidden(format string, args ...interface{}) *AppError {
	return New(ErrForbidden, format, args...)
}

// StatusCode는 에러에 대응하는 HTTP 상태 코드를 반환합니다.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code는 에러에 대응하는 에러 코드 문자열을 반환합니다.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrDuplicateEntry):
		return "DUPLICATE_ENTRY"
	case errors.Is(err, ErrExternal):
		return "EXTERNAL_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Message는 상태 코드별 기본 안내 문구를 반환합니다.
func Message(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "요청 값이 올바르지 않습니다."
	case http.StatusUnauthorized:
		return "로그인이 필요합니다."
	case http.StatusForbidden:
		return "접근 권한이 없습니다."
	case http.StatusNotFound:
		return "요청한 데이터를 찾을 수 없습니다."
	case http.StatusConflict:
		return "다른 변경 사항과 충돌했습니다. 새로고침 후 다시 시도해 주세요."
	case http.StatusBadGateway:
		return "카카오 연동 중 오류가 발생했습니다."
	default:
		return "서버 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	}
}

// IsMySQL은 err가 지정한 번호의 MySQL 에러인지 확인합니다.
func IsMySQL(err error, number uint16) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == number
}
