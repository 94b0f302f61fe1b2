package auth

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alimflow/internal/apperr"
)

type fakeUsers struct {
	mu     sync.Mutex
	users  map[string]*User
	nextID uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*User{}}
}

func (f *fakeUsers) CreateUser(user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return &mysql.MySQLError{Number: apperr.MySQLDuplicateEntry, Message: "Duplicate entry"}
	}
	f.nextID++
	saved := *user
	saved.ID = f.nextID
	f.users[user.Email] = &saved
	return nil
}

func (f *fakeUsers) GetUserByEmail(email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) UpdateUserOTP(email string, otpSecret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email].OtpCode = &otpSecret
	return nil
}

func (f *fakeUsers) UpdateLastLogin(userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, u := range f.users {
		if u.ID == userID {
			u.LastLoginDt = &now
		}
	}
	return nil
}

func (f *fakeUsers) list(verified bool) []User {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]User, 0)
	for _, u := range f.users {
		if u.VerifyYn == verified {
			out = append(out, *u)
		}
	}
	return out
}

func (f *fakeUsers) GetPendingUsers() ([]User, error)     { return f.list(false), nil }
func (f *fakeUsers) GetAllVerifiedUsers() ([]User, error) { return f.list(true), nil }

func (f *fakeUsers) byID(userID uint64) *User {
	for _, u := range f.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) ApproveUser(userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(userID)
	if u == nil || u.VerifyYn {
		return sql.ErrNoRows
	}
	u.VerifyYn = true
	return nil
}

func (f *fakeUsers) UpdateUserPrivilege(userID uint64, newRole string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(userID)
	if u == nil {
		return sql.ErrNoRows
	}
	u.PrivilegesType = newRole
	return nil
}

func TestRegisterUser(t *testing.T) {
	repo := newFakeUsers()
	svc := NewService(repo)

	require.NoError(t, svc.RegisterUser(RegisterRequest{UserName: "김개발", Email: " Dev@Example.com "}))
	u := repo.users["dev@example.com"]
	require.NotNil(t, u)
	assert.Equal(t, RoleUsers, u.PrivilegesType)
	assert.False(t, u.VerifyYn)
	assert.Nil(t, u.Organization)

	err := svc.RegisterUser(RegisterRequest{UserName: "김개발", Email: "dev@example.com"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)

	err = svc.RegisterUser(RegisterRequest{UserName: "이름", Email: "not-an-email"})
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Field)
}

func TestCheckLoginStatus(t *testing.T) {
	repo := newFakeUsers()
	svc := NewService(repo)
	secret := "JBSWY3DPEHPK3PXP"
	repo.users["pending@example.com"] = &User{ID: 1, Email: "pending@example.com"}
	repo.users["new@example.com"] = &User{ID: 2, Email: "new@example.com", VerifyYn: true}
	repo.users["old@example.com"] = &User{ID: 3, Email: "old@example.com", VerifyYn: true, OtpCode: &secret}

	tests := []struct {
		email  string
		status LoginStatus
		user   bool
	}{
		{"nobody@example.com", StatusUserNotFound, false},
		{"pending@example.com", StatusPendingVerification, false},
		{"new@example.com", StatusRequiresOtpSetup, true},
		{"OLD@example.com", StatusRequiresOtp, true},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			status, user, err := svc.CheckLoginStatus(tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.user, user != nil)
		})
	}
}

func TestGenerateAndValidateOTP(t *testing.T) {
	svc := NewService(newFakeUsers())
	secret, qr, err := svc.GenerateOTP("dev@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.NotEmpty(t, qr)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, svc.ValidateOTP(code, secret))

	// 한 주기 전 코드까지는 허용
	prev, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, svc.ValidateOTP(prev, secret))

	old, err := totp.GenerateCode(secret, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	if old != code && old != prev {
		assert.False(t, svc.ValidateOTP(old, secret))
	}
	assert.False(t, svc.ValidateOTP("123456", "not base32!"))
}

func TestAdminOperations(t *testing.T) {
	repo := newFakeUsers()
	svc := NewService(repo)
	require.NoError(t, svc.RegisterUser(RegisterRequest{UserName: "가", Email: "a@example.com"}))
	require.NoError(t, svc.RegisterUser(RegisterRequest{UserName: "나", Email: "b@example.com"}))

	data, err := svc.GetAdminPageData()
	require.NoError(t, err)
	assert.Len(t, data.PendingUsers, 2)
	assert.Empty(t, data.VerifiedUsers)

	require.NoError(t, svc.ApproveUser(1))
	assert.ErrorIs(t, svc.ApproveUser(1), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.ApproveUser(99), apperr.ErrNotFound)

	assert.ErrorIs(t, svc.ChangeUserPrivilege(1, 2, "ROOT"), apperr.ErrInvalidInput)
	assert.ErrorIs(t, svc.ChangeUserPrivilege(1, 1, RoleUsers), apperr.ErrForbidden)
	require.NoError(t, svc.ChangeUserPrivilege(1, 2, RoleAdmin))
	assert.Equal(t, RoleAdmin, repo.users["b@example.com"].PrivilegesType)
}
