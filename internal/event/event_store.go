package event

import (
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const eventColumns = `
	e.id, e.workspace_id, e.message_id, e.order_status, e.delay_days, e.send_hour, e.enabled,
	e.created_id, e.created_at, e.updated_at,
	m.title AS message_title, m.template_type, m.status,
	u.user_name
`

// Store는 'event' 기능의 DB 로직을 관리합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CountEvents는 워크스페이스의 이벤트 수와 활성 이벤트 수를 반환합니다.
func (s *Store) CountEvents(workspaceID uint64) (total, enabled int, err error) {
	var row struct {
		Total   int `db:"total"`
		Enabled int `db:"enabled"`
	}
	query := `
		SELECT COUNT(*) AS total, COALESCE(SUM(enabled), 0) AS enabled
		FROM events
		WHERE workspace_id = ?
	`
	if err = s.db.Get(&row, query, workspaceID); err != nil {
		log.Errorf("CountEvents(Workspace: %d) DB 에러: %v", workspaceID, err)
		return 0, 0, err
	}
	return row.Total, row.Enabled, nil
}

// GetEvents는 워크스페이스의 이벤트 목록을 반환합니다.
func (s *Store) GetEvents(workspaceID uint64) ([]Event, error) {
	events := make([]Event, 0)
	query := `SELECT ` + eventColumns + `
		FROM events AS e
		JOIN messages AS m ON e.message_id = m.id
		JOIN users AS u ON e.created_id = u.id
		WHERE e.workspace_id = ?
		ORDER BY FIELD(e.order_status, 'PAYMENT_COMPLETE', 'PREPARING', 'SHIPPING', 'DELIVERED', 'CANCELLED', 'REFUNDED'), e.id ASC
	`
	if err := s.db.Select(&events, query, workspaceID); err != nil {
		log.Errorf("GetEvents(Workspace: %d) DB 에러: %v", workspaceID, err)
		return nil, err
	}
	return events, nil
}

// GetEventByID는 이벤트 한 건을 조회합니다. 없으면 sql.ErrNoRows를 그대로 반환합니다.
func (s *Store) GetEventByID(workspaceID, id uint64) (*Event, error) {
	var e Event
	query := `SELECT ` + eventColumns + `
		FROM events AS e
		JOIN messages AS m ON e.message_id = m.id
		JOIN users AS u ON e.created_id = u.id
		WHERE e.workspace_id = ? AND e.id = ?
	`
	if err := s.db.Get(&e, query, workspaceID, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent는 이벤트를 저장하고 새 ID를 반환합니다.
func (s *Store) CreateEvent(e *Event) (uint64, error) {
	query := `
		INSERT INTO events (workspace_id, message_id, order_status, delay_days, send_hour, enabled, created_id)
		VALUES (:workspace_id, :message_id, :order_status, :delay_days, :send_hour, :enabled, :created_id)
	`
	res, err := s.db.NamedExec(query, e)
	if err != nil {
		log.Errorf("CreateEvent DB 에러: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateEvent는 이벤트를 수정합니다.
func (s *Store) UpdateEvent(e *Event) error {
	query := `
		UPDATE events SET
			message_id = :message_id,
			order_status = :order_status,
			delay_days = :delay_days,
			send_hour = :send_hour,
			enabled = :enabled
		WHERE id = :id AND workspace_id = :workspace_id
	`
	if _, err := s.db.NamedExec(query, e); err != nil {
		log.Errorf("UpdateEvent(ID: %d) DB 에러: %v", e.ID, err)
		return err
	}
	return nil
}

// DeleteEvent는 이벤트를 삭제합니다.
func (s *Store) DeleteEvent(workspaceID, id uint64) error {
	query := "DELETE FROM events WHERE workspace_id = ? AND id = ?"
	if _, err := s.db.Exec(query, workspaceID, id); err != nil {
		log.Errorf("DeleteEvent(ID: %d) DB 에러: %v", id, err)
		return err
	}
	return nil
}
