package variable

import (
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Store는 워크스페이스 치환 변수를 조회합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetVariables는 워크스페이스에서 사용할 수 있는 변수 목록을 반환합니다.
// 공통 변수(workspace_id = 0)와 워크스페이스 전용 변수를 함께 돌려줍니다.
func (s *Store) GetVariables(workspaceID uint64) ([]Variable, error) {
	vars := make([]Variable, 0)
	query := `
		SELECT variable_key, variable_label
		FROM message_variables
		WHERE workspace_id IN (0, ?)
		ORDER BY sort_order ASC, variable_key ASC
	`
	if err := s.db.Select(&vars, query, workspaceID); err != nil {
		log.Errorf("GetVariables(Workspace: %d) DB 에러: %v", workspaceID, err)
		return nil, err
	}
	return vars, nil
}
