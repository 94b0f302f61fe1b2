package alert

import (
	"github.com/gofiber/fiber/v2"

	"alimflow/internal/apperr"
)

// AlertHandler는 Slack 알림 설정 핸들러입니다.
type AlertHandler struct {
	service *Service
}

// NewAlertHandler는 새 핸들러를 생성합니다.
func NewAlertHandler(service *Service) *AlertHandler {
	return &AlertHandler{service: service}
}

// HandleGetConfig는 'GET /workspace/:wid/alert' 요청을 처리합니다.
func (h *AlertHandler) HandleGetConfig(c *fiber.Ctx) error {
	cfg, err := h.service.GetConfig(c.Locals("workspace_id").(uint64))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"config": cfg, "has_token": cfg.HasToken()})
}

// HandleSaveConfig는 'PUT /workspace/:wid/alert' 요청을 처리합니다.
func (h *AlertHandler) HandleSaveConfig(c *fiber.Ctx) error {
	var req ConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "알림 설정 입력이 잘못되었습니다.")
	}
	cfg, err := h.service.SaveConfig(c.Locals("workspace_id").(uint64),
		c.Locals("user_id").(uint64), c.Locals("user_role").(string), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"config": cfg, "has_token": cfg.HasToken()})
}

// HandleDeleteConfig는 'DELETE /workspace/:wid/alert' 요청을 처리합니다.
func (h *AlertHandler) HandleDeleteConfig(c *fiber.Ctx) error {
	err := h.service.DeleteConfig(c.Locals("workspace_id").(uint64),
		c.Locals("user_id").(uint64), c.Locals("user_role").(string))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSendTest는 'POST /workspace/:wid/alert/test' 요청을 처리합니다. (본인 DM)
func (h *AlertHandler) HandleSendTest(c *fiber.Ctx) error {
	email, _ := c.Locals("user_email").(string)
	if email == "" {
		return apperr.New(apperr.ErrUnauthorized, "로그인이 필요합니다.")
	}
	if err := h.service.SendTest(c.Locals("workspace_id").(uint64), email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "테스트 알림을 DM으로 보냈습니다."})
}
