package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
	"alimflow/internal/workspace"
)

// Workspaces는 사용자의 워크스페이스 목록 조회용입니다. (*workspace.Store가 구현)
type Workspaces interface {
	GetWorkspacesByUser(userID uint64) ([]workspace.Workspace, error)
}

// AuthHandler
type AuthHandler struct {
	service    *Service
	store      *session.Store
	workspaces Workspaces
}

// NewAuthHandler
func NewAuthHandler(service *Service, store *session.Store, workspaces Workspaces) *AuthHandler {
	return &AuthHandler{
		service:    service,
		store:      store,
		workspaces: workspaces,
	}
}

type otpForm struct {
	OtpToken string `json:"otp_token" form:"otp_token"`
}

func (h *AuthHandler) session(c *fiber.Ctx) (*session.Session, error) {
	sess, err := h.store.Get(c)
	if err != nil {
		log.Errorf("세션 가져오기 실패 (%s): %v", c.Path(), err)
		return nil, err
	}
	return sess, nil
}

// login은 최종 로그인 세션을 저장합니다.
func (h *AuthHandler) login(sess *session.Session, user *User) error {
	sess.Set("logged_in_email", user.Email)
	sess.Set("user_id", user.ID)
	sess.Set("privileges_type", user.PrivilegesType)
	if err := sess.Save(); err != nil {
		log.Errorf("최종 로그인 세션 저장 실패: %v", err)
		return err
	}
	h.service.RecordLogin(user.ID)
	return nil
}

// HandleShowLoginPage는 'GET /auth/login' 요청을 처리합니다.
func (h *AuthHandler) HandleShowLoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Title": "alimflow | 로그인",
	})
}

// HandleRegister는 'POST /auth/register' 요청을 처리합니다.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warnf("회원가입 입력 파싱 실패: %v", err)
		return apperr.New(apperr.ErrInvalidInput, "입력 값이 올바르지 않습니다.")
	}
	log.Infof("신규 가입 요청: %s", req.Email)

	if err := h.service.RegisterUser(req); err != nil {
		log.Warnf("가입 처리 실패: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "가입 신청이 완료되었습니다. 관리자 승인을 기다려주세요.",
	})
}

// HandleLogin은 'POST /auth/login' 요청을 처리합니다. 다음 단계(next)를 알려줍니다.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var form struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&form); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "입력 값이 올바르지 않습니다.")
	}

	status, user, err := h.service.CheckLoginStatus(form.Email)
	if err != nil {
		return err
	}
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	switch status {
	case StatusUserNotFound:
		return apperr.New(apperr.ErrUnauthorized, "등록되지 않은 이메일입니다.")
	case StatusPendingVerification:
		return apperr.Forbidden("계정이 아직 관리자 승인 대기 중입니다. 승인 후 다시 시도해 주세요.")
	case StatusRequiresOtpSetup:
		sess.Set("otp_setup_email", user.Email)
		if err := sess.Save(); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"next": "/auth/setup-otp"})
	default:
		sess.Set("otp_verify_email", user.Email)
		if err := sess.Save(); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"next": "/auth/verify-otp"})
	}
}

// HandleShowSetupOTP는 'GET /auth/setup-otp' 요청을 처리합니다. 새 비밀 키와 QR 이미지를 발급합니다.
func (h *AuthHandler) HandleShowSetupOTP(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	email, ok := sess.Get("otp_setup_email").(string)
	if !ok {
		log.Warn("'otp_setup_email' 세션 값이 없습니다.")
		return apperr.New(apperr.ErrUnauthorized, "로그인부터 다시 진행해 주세요.")
	}

	secret, qrImage, err := h.service.GenerateOTP(email)
	if err != nil {
		return err
	}
	sess.Set("otp_setup_secret", secret)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"email":    email,
		"qr_image": qrImage,
		"secret":   secret,
	})
}

// HandleProcessSetupOTP는 'POST /auth/setup-otp' 요청을 처리합니다.
func (h *AuthHandler) HandleProcessSetupOTP(c *fiber.Ctx) error {
	var form otpForm
	if err := c.BodyParser(&form); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "입력 값이 올바르지 않습니다.")
	}
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	email, okEmail := sess.Get("otp_setup_email").(string)
	secret, okSecret := sess.Get("otp_setup_secret").(string)
	if !okEmail || !okSecret {
		log.Warn("OTP 등록 세션 값이 없습니다. (email 또는 secret 누락)")
		return apperr.New(apperr.ErrUnauthorized, "로그인부터 다시 진행해 주세요.")
	}

	if !h.service.ValidateOTP(form.OtpToken, secret) {
		log.Warnf("OTP 코드 검증 실패: %s", email)
		return apperr.Invalid("otp_token", "인증 코드가 올바르지 않습니다. 다시 시도해 주세요.")
	}
	if err := h.service.FinalizeOTPSetup(email, secret); err != nil {
		return err
	}
	user, err := h.service.GetUser(email)
	if err != nil {
		return err
	}

	sess.Delete("otp_setup_email")
	sess.Delete("otp_setup_secret")
	if err := h.login(sess, user); err != nil {
		return err
	}
	log.Infof("최초 OTP 등록 및 로그인 성공: %s", email)
	return c.JSON(fiber.Map{"user": user})
}

// HandleProcessVerifyOTP는 'POST /auth/verify-otp' 요청을 처리합니다.
func (h *AuthHandler) HandleProcessVerifyOTP(c *fiber.Ctx) error {
	var form otpForm
	if err := c.BodyParser(&form); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "입력 값이 올바르지 않습니다.")
	}
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	email, ok := sess.Get("otp_verify_email").(string)
	if !ok {
		log.Warn("OTP 인증 세션 값이 없습니다. (email 누락)")
		return apperr.New(apperr.ErrUnauthorized, "로그인부터 다시 진행해 주세요.")
	}

	user, err := h.service.GetUser(email)
	if err != nil {
		return err
	}
	if user.OtpCode == nil || !h.service.ValidateOTP(form.OtpToken, *user.OtpCode) {
		log.Warnf("일반 OTP 코드 검증 실패: %s", email)
		return apperr.Invalid("otp_token", "인증 코드가 올바르지 않습니다.")
	}

	sess.Delete("otp_verify_email")
	if err := h.login(sess, user); err != nil {
		return err
	}
	log.Infof("일반 OTP 인증 및 로그인 성공: %s", email)
	return c.JSON(fiber.Map{"user": user})
}

// HandleLogout은 'POST /auth/logout' 요청을 처리합니다.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		log.Errorf("로그아웃: 세션 파기 실패: %v", err)
		return err
	}
	log.Info("사용자 로그아웃 성공")
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMe는 'GET /me' 요청을 처리합니다. (로그인 사용자와 소속 워크스페이스)
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.Locals("user_email").(string))
	if err != nil {
		return err
	}
	workspaces, err := h.workspaces.GetWorkspacesByUser(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user, "workspaces": workspaces})
}

// --- [관리자 기능] ---

// HandleListUsers는 'GET /admin/users' 요청을 처리합니다.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	data, err := h.service.GetAdminPageData()
	if err != nil {
		return err
	}
	return c.JSON(data)
}

// HandleApproveUser는 'POST /admin/users/:id/approve' 요청을 처리합니다.
func (h *AuthHandler) HandleApproveUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return apperr.Invalid("id", "유효하지 않은 사용자 ID입니다.")
	}
	if err := h.service.ApproveUser(uint64(userID)); err != nil {
		log.Errorf("사용자 승인 실패 (ID: %d): %v", userID, err)
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleChangePrivilege는 'POST /admin/privilege' 요청을 처리합니다.
func (h *AuthHandler) HandleChangePrivilege(c *fiber.Ctx) error {
	var form struct {
		UserID  uint64 `json:"user_id" form:"user_id"`
		NewRole string `json:"new_role" form:"new_role"`
	}
	if err := c.BodyParser(&form); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "권한 변경 입력이 잘못되었습니다.")
	}
	adminID := c.Locals("user_id").(uint64)
	if err := h.service.ChangeUserPrivilege(adminID, form.UserID, form.NewRole); err != nil {
		log.Errorf("사용자 권한 변경 실패 (ID: %d): %v", form.UserID, err)
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
