package middleware

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// MembershipChecker는 워크스페이스 구성원 여부를 확인합니다. (*workspace.Store가 구현)
type MembershipChecker interface {
	IsMember(workspaceID, userID uint64) (bool, error)
}

// WorkspaceMiddleware는 ':wid' 파라미터의 워크스페이스에 로그인 사용자가 속해 있는지 확인하고
// c.Locals("workspace_id")에 저장합니다. ADMIN은 모든 워크스페이스에 접근할 수 있습니다.
func WorkspaceMiddleware(members MembershipChecker) fiber.Handler {

	return func(c *fiber.Ctx) error {
		wid, err := c.ParamsInt("wid")
		if err != nil || wid <= 0 {
			return apperr.Invalid("wid", "유효하지 않은 워크스페이스 ID입니다.")
		}
		workspaceID := uint64(wid)

		userID, _ := c.Locals("user_id").(uint64)
		role, _ := c.Locals("user_role").(string)

		if role != "ADMIN" {
			ok, err := members.IsMember(workspaceID, userID)
			if err != nil {
				return err
			}
			if !ok {
				log.Warnf("[Workspace] 구성원이 아닌 접근 (Workspace: %d, User: %d)", workspaceID, userID)
				return apperr.Forbidden("워크스페이스(ID: %d)에 접근할 권한이 없습니다.", workspaceID)
			}
		}

		c.Locals("workspace_id", workspaceID)
		return c.Next()
	}
}
