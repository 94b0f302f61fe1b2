package event

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// EventHandler는 이벤트 관련 핸들러입니다.
type EventHandler struct {
	service *Service
}

// NewEventHandler는 새 핸들러를 생성합니다.
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

func eventID(c *fiber.Ctx) (uint64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "유효하지 않은 ID입니다.")
	}
	return uint64(id), nil
}

func parseRequest(c *fiber.Ctx) (EventRequest, error) {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperr.New(apperr.ErrInvalidInput, "이벤트 입력이 잘못되었습니다.")
	}
	return req, nil
}

// HandleListEvents는 'GET /workspace/:wid/event' 요청을 처리합니다.
func (h *EventHandler) HandleListEvents(c *fiber.Ctx) error {
	events, err := h.service.GetEvents(c.Locals("workspace_id").(uint64))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"events": events})
}

// HandleGetEvent는 'GET /workspace/:wid/event/:id' 요청을 처리합니다.
func (h *EventHandler) HandleGetEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetEvent(c.Locals("workspace_id").(uint64), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleCreateEvent는 'POST /workspace/:wid/event' 요청을 처리합니다.
func (h *EventHandler) HandleCreateEvent(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	view, err := h.service.CreateEvent(c.Locals("workspace_id").(uint64), c.Locals("user_id").(uint64), req)
	if err != nil {
		log.Errorf("이벤트 생성 실패: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// HandleUpdateEvent는 'PUT /workspace/:wid/event/:id' 요청을 처리합니다.
func (h *EventHandler) HandleUpdateEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint64)
	userRole := c.Locals("user_role").(string)

	view, err := h.service.UpdateEvent(c.Locals("workspace_id").(uint64), id, userID, userRole, req)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleDeleteEvent는 'DELETE /workspace/:wid/event/:id' 요청을 처리합니다.
func (h *EventHandler) HandleDeleteEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint64)
	userRole := c.Locals("user_role").(string)

	if err := h.service.DeleteEvent(c.Locals("workspace_id").(uint64), id, userID, userRole); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
