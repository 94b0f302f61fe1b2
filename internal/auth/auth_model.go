package auth

import (
	"time"
)

// 사용자 권한
const (
	RoleAdmin = "ADMIN"
	RoleUsers = "USERS"
)

// User는 'users' 테이블의 스키마입니다.
type User struct {
	ID             uint64     `json:"id" db:"id"`
	UserName       string     `json:"user_name" db:"user_name"`
	Email          string     `json:"email" db:"email"`
	Organization   *string    `json:"organization" db:"organization"`
	OtpCode        *string    `json:"-" db:"otp_code"` // TOTP 비밀 키 (Base32)
	PrivilegesType string     `json:"privileges_type" db:"privileges_type"`
	LastLoginDt    *time.Time `json:"last_login_dt" db:"last_login_dt"`
	VerifyYn       bool       `json:"verify_yn" db:"verify_yn"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// RegisterRequest는 가입 요청 본문입니다.
type RegisterRequest struct {
	UserName     string `json:"user_name" form:"user_name" validate:"required,max=100"`
	Email        string `json:"email" form:"email" validate:"required,email,max=150"`
	Organization string `json:"organization" form:"organization" validate:"max=50"`
}
