package workspace

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
)

// Workspace는 'workspaces' 테이블의 스키마입니다. (테넌트 경계)
type Workspace struct {
	ID             uint64    `json:"id" db:"id"`
	WorkspaceName  string    `json:"workspace_name" db:"workspace_name"`
	KakaoSenderKey *string   `json:"-" db:"kakao_sender_key"`
	KakaoChannelID *string   `json:"kakao_channel_id" db:"kakao_channel_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SenderKey는 카카오 발신 프로필 키를 반환합니다. 연동 전이면 에러입니다.
func (w *Workspace) SenderKey() (string, error) {
	if w.KakaoSenderKey == nil || *w.KakaoSenderKey == "" {
		return "", apperr.New(apperr.ErrInvalidInput, "카카오 채널이 연동되지 않은 워크스페이스입니다.")
	}
	return *w.KakaoSenderKey, nil
}

// Store는 'workspace' 기능의 DB 로직을 관리합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetWorkspace는 ID로 워크스페이스를 조회합니다.
func (s *Store) GetWorkspace(id uint64) (*Workspace, error) {
	var w Workspace
	query := `
		SELECT id, workspace_name, kakao_sender_key, kakao_channel_id, created_at, updated_at
		FROM workspaces
		WHERE id = ?
	`
	if err := s.db.Get(&w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("워크스페이스(ID: %d)를 찾을 수 없습니다.", id)
		}
		log.Errorf("GetWorkspace(ID: %d) DB 에러: %v", id, err)
		return nil, err
	}
	return &w, nil
}

// IsMember는 사용자가 워크스페이스 구성원인지 확인합니다.
func (s *Store) IsMember(workspaceID, userID uint64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM workspace_members WHERE workspace_id = ? AND user_id = ?"
	if err := s.db.Get(&count, query, workspaceID, userID); err != nil {
		log.Errorf("IsMember(Workspace: %d, User: %d) DB 에러: %v", workspaceID, userID, err)
		return false, err
	}
	return count > 0, nil
}

// GetWorkspacesByUser는 사용자가 속한 워크스페이스 목록을 반환합니다.
func (s *Store) GetWorkspacesByUser(userID uint64) ([]Workspace, error) {
	workspaces := make([]Workspace, 0)
	query := `
		SELECT w.id, w.workspace_name, w.kakao_sender_key, w.kakao_channel_id, w.created_at, w.updated_at
		FROM workspaces AS w
		JOIN workspace_members AS m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.workspace_name ASC
	`
	if err := s.db.Select(&workspaces, query, userID); err != nil {
		log.Errorf("GetWorkspacesByUser(User: %d) DB 에러: %v", userID, err)
		return nil, err
	}
	return workspaces, nil
}
