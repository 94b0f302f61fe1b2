package alert

import (
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Store는 'alert' 기능의 DB 로직을 관리합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetConfig는 워크스페이스의 알림 설정을 조회합니다. 없으면 sql.ErrNoRows를 그대로 반환합니다.
func (s *Store) GetConfig(workspaceID uint64) (*AlertConfig, error) {
	var cfg AlertConfig
	query := `
		SELECT
			a.id, a.workspace_id, a.bot_name, a.bot_token, a.channel_id,
			a.notify_approved, a.notify_rejected, a.attachment_template,
			a.created_id, a.created_at, a.updated_at,
			u.user_name
		FROM alert_config AS a
		JOIN users AS u ON a.created_id = u.id
		WHERE a.workspace_id = ?
	`
	if err := s.db.Get(&cfg, query, workspaceID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig는 알림 설정을 저장합니다. (workspace_id 기준 upsert)
func (s *Store) SaveConfig(cfg *AlertConfig) error {
	query := `
		INSERT INTO alert_config
			(workspace_id, bot_name, bot_token, channel_id, notify_approved, notify_rejected, attachment_template, created_id)
		VALUES
			(:workspace_id, :bot_name, :bot_token, :channel_id, :notify_approved, :notify_rejected, :attachment_template, :created_id)
		ON DUPLICATE KEY UPDATE
			bot_name = VALUES(bot_name),
			bot_token = VALUES(bot_token),
			channel_id = VALUES(channel_id),
			notify_approved = VALUES(notify_approved),
			notify_rejected = VALUES(notify_rejected),
			attachment_template = VALUES(attachment_template)
	`
	if _, err := s.db.NamedExec(query, cfg); err != nil {
		log.Errorf("SaveConfig(Workspace: %d) DB 에러: %v", cfg.WorkspaceID, err)
		return err
	}
	return nil
}

// DeleteConfig는 알림 설정을 삭제합니다.
func (s *Store) DeleteConfig(workspaceID uint64) error {
	if _, err := s.db.Exec("DELETE FROM alert_config WHERE workspace_id = ?", workspaceID); err != nil {
		log.Errorf("DeleteConfig(Workspace: %d) DB 에러: %v", workspaceID, err)
		return err
	}
	return nil
}
