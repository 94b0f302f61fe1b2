package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// AuthMiddleware는 세션의 로그인 정보를 확인하고 c.Locals에 사용자 정보를 저장합니다.
// 로그인하지 않았으면 401입니다. (페이지 요청은 ErrorHandler가 로그인 화면으로 보냅니다)
func AuthMiddleware(store *session.Store) fiber.Handler {

	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			log.Errorf("미들웨어: 세션 가져오기 실패: %v", err)
			return apperr.New(apperr.ErrUnauthorized, "세션을 확인할 수 없습니다.")
		}

		emailInterface := sess.Get("logged_in_email")
		userIDInterface := sess.Get("user_id")
		roleInterface := sess.Get("privileges_type")

		if emailInterface == nil || userIDInterface == nil || roleInterface == nil {
			log.Warnf("미들웨어: 로그인되지 않은 접근 (%s)", c.Path())
			return apperr.New(apperr.ErrUnauthorized, "로그인이 필요합니다.")
		}

		c.Locals("user_email", emailInterface.(string))
		c.Locals("user_id", userIDInterface.(uint64))
		c.Locals("user_role", roleInterface.(string))

		log.Debugf("미들웨어: 인증된 접근 (%s)", c.Path())
		return c.Next()
	}
}
