package message

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Store는 'message' 기능의 DB 로직을 관리합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const messageColumns = `
	m.id, m.workspace_id, m.title, m.template_type, m.quick_start_id,
	m.category_code, m.content, m.extra, m.image_id, m.image_url, m.buttons,
	m.status, m.template_code, m.reject_reason,
	m.audience, m.custom_phone, m.complete_on_delivery, m.content_group_id,
	m.revision, m.created_id, m.created_at, m.updated_at
`

// CountMessages는 워크스페이스의 메시지 수와 검수 중인 메시지 수를 반환합니다.
func (s *Store) CountMessages(workspaceID uint64) (total int, pending int, err error) {
	var row struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(template_type = 'FULLY_CUSTOM' AND status = 'PENDING'), 0) AS pending
		FROM messages
		WHERE workspace_id = ?
	`
	if err := s.db.Get(&row, query, workspaceID); err != nil {
		log.Errorf("CountMessages(Workspace: %d) DB 에러: %v", workspaceID, err)
		return 0, 0, err
	}
	return row.Total, row.Pending, nil
}

// GetMessages는 워크스페이스의 메시지 목록을 반환합니다.
func (s *Store) GetMessages(workspaceID uint64) ([]Message, error) {
	messages := make([]Message, 0)
	query := `SELECT ` + messageColumns + `, u.user_name
		FROM messages AS m
		JOIN users AS u ON m.created_id = u.id
		WHERE m.workspace_id = ?
		ORDER BY m.id DESC
	`
	if err := s.db.Select(&messages, query, workspaceID); err != nil {
		log.Errorf("GetMessages(Workspace: %d) DB 에러: %v", workspaceID, err)
		return nil, err
	}
	return messages, nil
}

// GetMessageByID는 워크스페이스 안의 메시지 1개를 조회합니다. 없으면 sql.ErrNoRows입니다.
func (s *Store) GetMessageByID(workspaceID, id uint64) (*Message, error) {
	var m Message
	query := `SELECT ` + messageColumns + `, u.user_name
		FROM messages AS m
		JOIN users AS u ON m.created_id = u.id
		WHERE m.workspace_id = ? AND m.id = ?
	`
	if err := s.db.Get(&m, query, workspaceID, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Errorf("GetMessageByID(ID: %d) DB 에러: %v", id, err)
		}
		return nil, err
	}
	return &m, nil
}

// CreateMessage는 새 메시지를 INSERT하고 ID를 반환합니다.
func (s *Store) CreateMessage(m *Message) (uint64, error) {
	query := `
		INSERT INTO messages (
			workspace_id, title, template_type, quick_start_id,
			category_code, content, extra, image_id, image_url, buttons,
			status, audience, custom_phone, complete_on_delivery, content_group_id,
			revision, created_id
		) VALUES (
			:workspace_id, :title, :template_type, :quick_start_id,
			:category_code, :content, :extra, :image_id, :image_url, :buttons,
			:status, :audience, :custom_phone, :complete_on_delivery, :content_group_id,
			1, :created_id
		)
	`
	result, err := s.db.NamedExec(query, m)
	if err != nil {
		log.Errorf("CreateMessage DB 에러: %v", err)
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateMessage는 m.Revision이 DB 값과 같을 때만 수정하고 revision을 올립니다.
// 수정된 행이 없으면 false를 반환합니다. (다른 요청이 먼저 수정함)
func (s *Store) UpdateMessage(m *Message) (bool, error) {
	query := `
		UPDATE messages
		SET
			title = :title,
			template_type = :template_type,
			quick_start_id = :quick_start_id,
			category_code = :category_code,
			content = :content,
			extra = :extra,
			image_id = :image_id,
			image_url = :image_url,
			buttons = :buttons,
			status = :status,
			audience = :audience,
			custom_phone = :custom_phone,
			complete_on_delivery = :complete_on_delivery,
			content_group_id = :content_group_id,
			revision = revision + 1
		WHERE
			id = :id AND workspace_id = :workspace_id AND revision = :revision
	`
	result, err := s.db.NamedExec(query, m)
	if err != nil {
		log.Errorf("UpdateMessage(ID: %d) DB 에러: %v", m.ID, err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateStatus는 검수 상태(및 템플릿 코드, 반려 사유)를 변경합니다.
func (s *Store) UpdateStatus(id uint64, status ApprovalStatus, templateCode, rejectReason *string) error {
	query := `
		UPDATE messages
		SET
			status = ?,
			template_code = COALESCE(?, template_code),
			reject_reason = ?,
			revision = revision + 1
		WHERE id = ?
	`
	if _, err := s.db.Exec(query, status, templateCode, rejectReason, id); err != nil {
		log.Errorf("UpdateStatus(ID: %d, Status: %s) DB 에러: %v", id, status, err)
		return err
	}
	return nil
}

// DeleteMessage는 메시지를 삭제합니다.
// (events.message_id FK가 걸려 있으면 1451 에러가 반환됩니다)
func (s *Store) DeleteMessage(workspaceID, id uint64) error {
	query := "DELETE FROM messages WHERE workspace_id = ? AND id = ?"
	if _, err := s.db.Exec(query, workspaceID, id); err != nil {
		log.Errorf("DeleteMessage(ID: %d) DB 에러: %v", id, err)
		return err
	}
	return nil
}

// GetPendingMessages는 검수 중인 메시지를 워크스페이스 발신 키와 함께 조회합니다. (스케줄러용)
func (s *Store) GetPendingMessages(limit int) ([]PendingMessage, error) {
	pending := make([]PendingMessage, 0)
	query := `
		SELECT m.id, m.workspace_id, m.title, m.template_code, w.kakao_sender_key
		FROM messages AS m
		JOIN workspaces AS w ON m.workspace_id = w.id
		WHERE m.template_type = 'FULLY_CUSTOM'
		  AND m.status = 'PENDING'
		  AND m.template_code IS NOT NULL
		  AND w.kakao_sender_key IS NOT NULL
		ORDER BY m.updated_at ASC
		LIMIT ?
	`
	if err := s.db.Select(&pending, query, limit); err != nil {
		log.Errorf("[Scheduler] GetPendingMessages DB 에러: %v", err)
		return nil, err
	}
	return pending, nil
}

// GetQuickStartTemplates는 사전 승인 템플릿 목록을 반환합니다.
func (s *Store) GetQuickStartTemplates() ([]QuickStartTemplate, error) {
	templates := make([]QuickStartTemplate, 0)
	query := `
		SELECT id, title, category_code, content, extra, image_url, buttons, template_code, created_at
		FROM quick_start_templates
		ORDER BY id ASC
	`
	if err := s.db.Select(&templates, query); err != nil {
		log.Errorf("GetQuickStartTemplates DB 에러: %v", err)
		return nil, err
	}
	return templates, nil
}

// GetQuickStartTemplate은 사전 승인 템플릿 1개를 조회합니다. 없으면 sql.ErrNoRows입니다.
func (s *Store) GetQuickStartTemplate(id uint64) (*QuickStartTemplate, error) {
	var q QuickStartTemplate
	query := `
		SELECT id, title, category_code, content, extra, image_url, buttons, template_code, created_at
		FROM quick_start_templates
		WHERE id = ?
	`
	if err := s.db.Get(&q, query, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Errorf("GetQuickStartTemplate(ID: %d) DB 에러: %v", id, err)
		}
		return nil, err
	}
	return &q, nil
}
