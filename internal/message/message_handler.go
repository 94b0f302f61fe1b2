package message

import (
	"io"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// MessageHandler는 메시지 관련 핸들러입니다.
type MessageHandler struct {
	service *Service
}

// NewMessageHandler는 새 핸들러를 생성합니다.
func NewMessageHandler(service *Service) *MessageHandler {
	return &MessageHandler{service: service}
}

func workspaceID(c *fiber.Ctx) uint64 {
	return c.Locals("workspace_id").(uint64)
}

func messageID(c *fiber.Ctx) (uint64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "유효하지 않은 ID입니다.")
	}
	return uint64(id), nil
}

func parseRequest(c *fiber.Ctx) (MessageRequest, error) {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperr.New(apperr.ErrInvalidInput, "메시지 입력이 잘못되었습니다.")
	}
	return req, nil
}

// HandleListMessages는 'GET /workspace/:wid/message' 요청을 처리합니다.
func (h *MessageHandler) HandleListMessages(c *fiber.Ctx) error {
	messages, err := h.service.GetMessages(workspaceID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// HandleCreateMessage는 'POST /workspace/:wid/message' 요청을 처리합니다.
// ?inspection=true면 저장 후 검수를 요청합니다.
func (h *MessageHandler) HandleCreateMessage(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint64)

	result, err := h.service.CreateMessage(c.UserContext(), workspaceID(c), userID, req, c.QueryBool("inspection"))
	if err != nil {
		log.Errorf("메시지 생성 실패: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleGetMessage는 'GET /workspace/:wid/message/:id' 요청을 처리합니다.
func (h *MessageHandler) HandleGetMessage(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetMessage(workspaceID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleUpdateMessage는 'PATCH /workspace/:wid/message/:id' 요청을 처리합니다.
func (h *MessageHandler) HandleUpdateMessage(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	req, err := parseRequest(c)
	if err != nil {
		return err
	}

	result, err := h.service.UpdateMessage(c.UserContext(), workspaceID(c), id, req, c.QueryBool("inspection"))
	if err != nil {
		log.Errorf("메시지 수정 실패(ID: %d): %v", id, err)
		return err
	}
	return c.JSON(result)
}

// HandleDeleteMessage는 'DELETE /workspace/:wid/message/:id' 요청을 처리합니다.
func (h *MessageHandler) HandleDeleteMessage(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	userID := c.Locals("user_id").(uint64)
	userRole := c.Locals("user_role").(string)

	if err := h.service.DeleteMessage(workspaceID(c), id, userID, userRole); err != nil {
		log.Errorf("메시지 삭제 실패(ID: %d): %v", id, err)
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRequestInspection은 'POST /workspace/:wid/message/:id/inspection' 요청을 처리합니다.
func (h *MessageHandler) HandleRequestInspection(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	wid := workspaceID(c)
	if err := h.service.RequestInspection(c.UserContext(), wid, id); err != nil {
		log.Errorf("검수 요청 실패(ID: %d): %v", id, err)
		return err
	}
	view, err := h.service.GetMessage(wid, id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleCancelInspection은 'DELETE /workspace/:wid/message/:id/inspection' 요청을 처리합니다.
func (h *MessageHandler) HandleCancelInspection(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	wid := workspaceID(c)
	if err := h.service.CancelInspection(c.UserContext(), wid, id); err != nil {
		log.Errorf("검수 취소 실패(ID: %d): %v", id, err)
		return err
	}
	view, err := h.service.GetMessage(wid, id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// HandleShowPreview는 'GET /workspace/:wid/message/:id/preview' 요청을 처리합니다. (HTML)
func (h *MessageHandler) HandleShowPreview(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	view, preview, err := h.service.PreviewMessage(workspaceID(c), id)
	if err != nil {
		return err
	}
	return c.Render("preview", fiber.Map{
		"Title":   view.Title,
		"Status":  view.View,
		"Preview": preview,
	})
}

// HandlePreviewForm은 'POST /workspace/:wid/message/preview' 요청을 처리합니다. (저장 전 폼)
func (h *MessageHandler) HandlePreviewForm(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}
	preview, err := h.service.PreviewForm(workspaceID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(preview)
}

// HandleGetVariables는 'GET /workspace/:wid/message/variables' 요청을 처리합니다.
func (h *MessageHandler) HandleGetVariables(c *fiber.Ctx) error {
	vars, err := h.service.GetVariables(workspaceID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"variables": vars})
}

// HandleListQuickStart는 'GET /workspace/:wid/message/quick-start' 요청을 처리합니다.
func (h *MessageHandler) HandleListQuickStart(c *fiber.Ctx) error {
	templates, err := h.service.GetQuickStartTemplates()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// HandleGetCategories는 'GET /workspace/:wid/kakao/category/message' 요청을 처리합니다.
func (h *MessageHandler) HandleGetCategories(c *fiber.Ctx) error {
	tree, err := h.service.GetCategoryTree(c.UserContext(), workspaceID(c))
	if err != nil {
		log.Errorf("카테고리 조회 실패: %v", err)
		return err
	}
	return c.JSON(fiber.Map{"categories": tree})
}

// HandleUploadImage는 'POST /workspace/:wid/kakao/image' 요청을 처리합니다. (multipart, 필드명 image)
func (h *MessageHandler) HandleUploadImage(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.New(apperr.ErrInvalidInput, "업로드 폼이 잘못되었습니다.")
	}
	headers := form.File["image"]
	if len(headers) == 0 {
		return apperr.Invalid("image", "업로드할 이미지를 선택하세요.")
	}

	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		files = append(files, UploadFile{Filename: fh.Filename, Data: data})
	}

	results, err := h.service.UploadImages(c.UserContext(), workspaceID(c), files)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"images": results})
}
