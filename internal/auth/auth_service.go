package auth

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"errors"
	"image/png"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"alimflow/internal/apperr"
)

// LoginStatus는 로그인 상태 식별을 위한 상수입니다.
type LoginStatus int

const (
	StatusUserNotFound        LoginStatus = iota // 0: 사용자를 찾을 수 없음
	StatusPendingVerification                    // 1: 관리자 승인 대기 중
	StatusRequiresOtpSetup                       // 2: 최초 로그인 (OTP 등록 필요)
	StatusRequiresOtp                            // 3: 일반 로그인 (OTP 인증 필요)
)

const otpIssuer = "alimflow"

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// UserRepository는 사용자 저장소입니다. (*Store가 구현)
type UserRepository interface {
	CreateUser(user *User) error
	GetUserByEmail(email string) (*User, error)
	UpdateUserOTP(email string, otpSecret string) error
	UpdateLastLogin(userID uint64) error
	GetPendingUsers() ([]User, error)
	GetAllVerifiedUsers() ([]User, error)
	ApproveUser(userID uint64) error
	UpdateUserPrivilege(userID uint64, newRole string) error
}

// Service는 'auth' 기능의 비즈니스 로직을 담당합니다.
type Service struct {
	store UserRepository
}

// NewService는 Store를 받아 새 Service를 생성합니다.
func NewService(store UserRepository) *Service {
	return &Service{store: store}
}

// RegisterUser는 신규 사용자 가입을 처리합니다. (관리자 승인 전까지 로그인 불가)
func (s *Service) RegisterUser(req RegisterRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Invalid(verrs[0].Field(), "입력값이 올바르지 않습니다: %s", verrs[0].Field())
		}
		return apperr.New(apperr.ErrInvalidInput, "입력값이 올바르지 않습니다.")
	}

	newUser := &User{
		UserName:       req.UserName,
		Email:          req.Email,
		PrivilegesType: RoleUsers,
		VerifyYn:       false,
	}
	if req.Organization != "" {
		newUser.Organization = &req.Organization
	}

	if err := s.store.CreateUser(newUser); err != nil {
		if apperr.IsMySQL(err, apperr.MySQLDuplicateEntry) {
			return apperr.New(apperr.ErrDuplicateEntry, "이미 가입된 이메일입니다: %s", req.Email)
		}
		return err
	}
	return nil
}

// CheckLoginStatus는 이메일을 받아 사용자의 로그인 상태를 분기합니다.
func (s *Service) CheckLoginStatus(email string) (LoginStatus, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return StatusUserNotFound, nil, err
	}

	switch {
	case user == nil:
		log.Infof("로그인 실패: 존재하지 않는 이메일 (%s)", email)
		return StatusUserNotFound, nil, nil
	case !user.VerifyYn:
		log.Infof("로그인 거부: 승인 대기 (%s)", email)
		return StatusPendingVerification, nil, nil
	case user.OtpCode == nil:
		log.Infof("로그인 시도: 최초 로그인 (OTP 등록 필요) (%s)", email)
		return StatusRequiresOtpSetup, user, nil
	default:
		log.Infof("로그인 시도: 일반 로그인 (OTP 인증 필요) (%s)", email)
		return StatusRequiresOtp, user, nil
	}
}

// GetUser는 이메일로 사용자를 조회합니다.
func (s *Service) GetUser(email string) (*User, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.ErrUnauthorized, "사용자를 찾을 수 없습니다.")
	}
	return user, nil
}

// GenerateOTP는 (1)Base32 비밀 키, (2)Base64 QR 이미지를 생성합니다.
func (s *Service) GenerateOTP(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: email,
	})
	if err != nil {
		log.Errorf("TOTP Key 생성 실패: %v", err)
		return "", "", err
	}

	var buf bytes.Buffer
	img, err := key.Image(200, 200)
	if err != nil {
		log.Errorf("TOTP QR 이미지 생성 실패: %v", err)
		return "", "", err
	}
	if err := png.Encode(&buf, img); err != nil {
		return "", "", err
	}
	return key.Secret(), base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateOTP는 앞뒤 한 주기(30초)의 시간 오차를 허용하여 코드를 검증합니다.
func (s *Service) ValidateOTP(passcode string, secretKey string) bool {
	opts := totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(passcode), secretKey, time.Now(), opts)
	if err != nil {
		log.Warnf("OTP 검증 중 에러: %v", err)
		return false
	}
	return valid
}

// FinalizeOTPSetup은 'secretKey'를 DB에 영구 저장합니다.
func (s *Service) FinalizeOTPSetup(email string, secretKey string) error {
	return s.store.UpdateUserOTP(email, secretKey)
}

// RecordLogin은 마지막 로그인 시각을 기록합니다. 실패해도 로그인은 유지됩니다.
func (s *Service) RecordLogin(userID uint64) {
	if err := s.store.UpdateLastLogin(userID); err != nil {
		log.Warnf("마지막 로그인 시각 기록 실패 (ID: %d): %v", userID, err)
	}
}

// AdminPageData는 관리자 화면 데이터입니다.
type AdminPageData struct {
	PendingUsers  []User `json:"pending_users"`
	VerifiedUsers []User `json:"verified_users"`
}

// GetAdminPageData는 승인 대기/승인 사용자를 병렬로 조회합니다.
func (s *Service) GetAdminPageData() (*AdminPageData, error) {
	var data AdminPageData
	var eg errgroup.Group

	eg.Go(func() error {
		users, err := s.store.GetPendingUsers()
		if err != nil {
			return err
		}
		data.PendingUsers = users
		return nil
	})
	eg.Go(func() error {
		users, err := s.store.GetAllVerifiedUsers()
		if err != nil {
			return err
		}
		data.VerifiedUsers = users
		return nil
	})

	if err := eg.Wait(); err != nil {
		log.Errorf("관리자 사용자 목록 조회 실패: %v", err)
		return nil, err
	}
	return &data, nil
}

// ApproveUser는 관리자가 사용자를 승인합니다.
func (s *Service) ApproveUser(userID uint64) error {
	err := s.store.ApproveUser(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("사용자(ID: %d)를 찾을 수 없거나 이미 승인되었습니다.", userID)
	}
	return err
}

// ChangeUserPrivilege는 사용자 권한을 변경합니다. 자기 자신의 권한은 바꿀 수 없습니다.
func (s *Service) ChangeUserPrivilege(adminID, userID uint64, newRole string) error {
	if newRole != RoleAdmin && newRole != RoleUsers {
		return apperr.Invalid("new_role", "유효하지 않은 권한입니다: %s", newRole)
	}
	if adminID == userID {
		return apperr.Forbidden("자기 자신의 권한은 변경할 수 없습니다.")
	}
	err := s.store.UpdateUserPrivilege(userID, newRole)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("사용자(ID: %d)를 찾을 수 없습니다.", userID)
	}
	return err
}
