package middleware

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// AdminOnlyMiddleware는 'AuthMiddleware' (로그인 확인) *다음에* 실행되어야 하며,
// c.Locals의 'user_role'이 'ADMIN'인지 확인합니다.
func AdminOnlyMiddleware() fiber.Handler {

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if role != "ADMIN" {
			log.Warnf("[Admin] 권한 없는 접근 (Role: %q, Path: %s)", role, c.Path())
			return apperr.Forbidden("관리자만 접근할 수 있습니다.")
		}

		log.Infof("[Admin] 관리자 접근 허용 (Path: %s)", c.Path())
		return c.Next()
	}
}
