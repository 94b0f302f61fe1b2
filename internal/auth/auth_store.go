package auth

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const userColumns = `
	id, user_name, email, organization, otp_code, privileges_type,
	last_login_dt, verify_yn, created_at, updated_at
`

// Store
type Store struct {
	db *sqlx.DB
}

// NewStore
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateUser
func (s *Store) CreateUser(user *User) error {
	query := `
		INSERT INTO users (
			user_name, email, organization,
			privileges_type, verify_yn, otp_code
		) VALUES (
			:user_name, :email, :organization,
			:privileges_type, :verify_yn, :otp_code
		)`
	if _, err := s.db.NamedExec(query, user); err != nil {
		log.Errorf("CreateUser DB 에러: %v", err)
		return err
	}
	log.Infof("신규 사용자 DB 저장 성공: %s", user.Email)
	return nil
}

// GetUserByEmail은 사용자가 없으면 (nil, nil)을 반환합니다.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	if err := s.db.Get(&user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("GetUserByEmail DB 에러: %v", err)
		return nil, err
	}
	return &user, nil
}

// UpdateUserOTP
func (s *Store) UpdateUserOTP(email string, otpSecret string) error {
	query := `UPDATE users SET otp_code = ?, last_login_dt = ? WHERE email = ?`
	if _, err := s.db.Exec(query, otpSecret, time.Now(), email); err != nil {
		log.Errorf("UpdateUserOTP DB 에러: %v", err)
		return err
	}
	log.Infof("사용자 OTP 코드 저장 성공: %s", email)
	return nil
}

// UpdateLastLogin
func (s *Store) UpdateLastLogin(userID uint64) error {
	if _, err := s.db.Exec(`UPDATE users SET last_login_dt = ? WHERE id = ?`, time.Now(), userID); err != nil {
		log.Errorf("UpdateLastLogin DB 에러: %v", err)
		return err
	}
	return nil
}

// GetPendingUsers는 승인 대기 중인 사용자 목록을 반환합니다.
func (s *Store) GetPendingUsers() ([]User, error) {
	users := make([]User, 0)
	query := `SELECT ` + userColumns + ` FROM users WHERE verify_yn = FALSE ORDER BY created_at ASC`
	if err := s.db.Select(&users, query); err != nil {
		log.Errorf("GetPendingUsers DB 에러: %v", err)
		return nil, err
	}
	return users, nil
}

// GetAllVerifiedUsers는 승인된 사용자 목록을 반환합니다.
func (s *Store) GetAllVerifiedUsers() ([]User, error) {
	users := make([]User, 0)
	query := `SELECT ` + userColumns + ` FROM users WHERE verify_yn = TRUE ORDER BY last_login_dt DESC`
	if err := s.db.Select(&users, query); err != nil {
		log.Errorf("GetAllVerifiedUsers DB 에러: %v", err)
		return nil, err
	}
	return users, nil
}

// ApproveUser는 'verify_yn'을 TRUE로 변경합니다. 대상이 없으면 sql.ErrNoRows입니다.
func (s *Store) ApproveUser(userID uint64) error {
	result, err := s.db.Exec(`UPDATE users SET verify_yn = TRUE WHERE id = ? AND verify_yn = FALSE`, userID)
	if err != nil {
		log.Errorf("ApproveUser DB 에러: %v", err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserPrivilege는 사용자 권한('ADMIN' 또는 'USERS')을 변경합니다.
func (s *Store) UpdateUserPrivilege(userID uint64, newRole string) error {
	result, err := s.db.Exec(`UPDATE users SET privileges_type = ? WHERE id = ?`, newRole, userID)
	if err != nil {
		log.Errorf("UpdateUserPrivilege DB 에러: %v", err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
