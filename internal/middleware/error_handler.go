package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// ErrorHandler는 fiber.Config.ErrorHandler입니다.
// API 요청에는 {code, message[, field]} JSON을, 페이지 요청에는 error 뷰를 돌려줍니다.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := apperr.StatusCode(err)
	code := apperr.Code(err)
	message := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		code = codeForStatus(fe.Code)
		message = apperr.Message(fe.Code)
	}

	if status >= fiber.StatusInternalServerError && status != fiber.StatusBadGateway {
		log.Errorf("요청 처리 실패 (%s %s): %v", c.Method(), c.Path(), err)
		message = apperr.Message(status)
	}

	if wantsHTML(c) {
		if status == fiber.StatusUnauthorized {
			return c.Redirect("/auth/login")
		}
		renderErr := c.Status(status).Render("error", fiber.Map{
			"Title":   "alimflow | 오류",
			"Status":  status,
			"Message": message,
		})
		if renderErr != nil {
			return c.Status(status).SendString(message)
		}
		return nil
	}

	body := fiber.Map{"code": code, "message": message}
	var appErr *apperr.AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		body["field"] = appErr.Field
	}
	return c.Status(status).JSON(body)
}

func wantsHTML(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return apperr.Code(apperr.ErrInvalidInput)
	case fiber.StatusUnauthorized:
		return apperr.Code(apperr.ErrUnauthorized)
	case fiber.StatusForbidden:
		return apperr.Code(apperr.ErrForbidden)
	case fiber.StatusNotFound:
		return apperr.Code(apperr.ErrNotFound)
	case fiber.StatusConflict:
		return apperr.Code(apperr.ErrConflict)
	default:
		return apperr.Code(nil)
	}
}
