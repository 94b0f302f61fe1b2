package contentgroup

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// ContentGroupHandler는 콘텐츠 그룹 관련 핸들러입니다.
type ContentGroupHandler struct {
	service *Service
}

// NewContentGroupHandler는 새 핸들러를 생성합니다.
func NewContentGroupHandler(service *Service) *ContentGroupHandler {
	return &ContentGroupHandler{service: service}
}

func groupID(c *fiber.Ctx) (uint64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "유효하지 않은 ID입니다.")
	}
	return uint64(id), nil
}

func parseRequest(c *fiber.Ctx) (GroupRequest, error) {
	var req GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperr.New(apperr.ErrInvalidInput, "콘텐츠 그룹 입력이 잘못되었습니다.")
	}
	return req, nil
}

// HandleListGroups는 'GET /workspace/:wid/content-group' 요청을 처리합니다.
func (h *ContentGroupHandler) HandleListGroups(c *fiber.Ctx) error {
	groups, err := h.service.GetGroups(c.Locals("workspace_id").(uint64))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"content_groups": groups})
}

// HandleGetGroup는 'GET /workspace/:wid/content-group/:id' 요청을 처리합니다.
func (h *ContentGroupHandler) HandleGetGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	group, err := h.service.GetGroup(c.Locals("workspace_id").(uint64), id)
	if err != nil {
		return err
	}
	return c.JSON(group)
}

// HandleCreateGroup는 'POST /workspace/:wid/content-group' 요청을 처리합니다.
func (h *ContentGroupHandler) HandleCreateGroup(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	group, err := h.service.CreateGroup(c.Locals("workspace_id").(uint64), c.Locals("user_id").(uint64), req)
	if err != nil {
		log.Errorf("콘텐츠 그룹 생성 실패: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// HandleUpdateGroup는 'PUT /workspace/:wid/content-group/:id' 요청을 처리합니다.
func (h *ContentGroupHandler) HandleUpdateGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	group, err := h.service.UpdateGroup(c.Locals("workspace_id").(uint64), id,
		c.Locals("user_id").(uint64), c.Locals("user_role").(string), req)
	if err != nil {
		return err
	}
	return c.JSON(group)
}

// HandleDeleteGroup는 'DELETE /workspace/:wid/content-group/:id' 요청을 처리합니다.
func (h *ContentGroupHandler) HandleDeleteGroup(c *fiber.Ctx) error {
	id, err := groupID(c)
	if err != nil {
		return err
	}
	err = h.service.DeleteGroup(c.Locals("workspace_id").(uint64), id,
		c.Locals("user_id").(uint64), c.Locals("user_role").(string))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
