package contentgroup

import (
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// Store는 'contentgroup' 기능의 DB 로직을 관리합니다.
type Store struct {
	db *sqlx.DB
}

// NewStore는 새 Store를 생성합니다.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CountGroups는 워크스페이스의 콘텐츠 그룹 수를 반환합니다.
func (s *Store) CountGroups(workspaceID uint64) (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM content_groups WHERE workspace_id = ?", workspaceID); err != nil {
		log.Errorf("CountGroups(Workspace: %d) DB 에러: %v", workspaceID, err)
		return 0, err
	}
	return count, nil
}

// GroupExists는 워크스페이스에 해당 그룹이 있는지 확인합니다.
func (s *Store) GroupExists(workspaceID, id uint64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM content_groups WHERE workspace_id = ? AND id = ?"
	if err := s.db.Get(&count, query, workspaceID, id); err != nil {
		log.Errorf("GroupExists(Workspace: %d, ID: %d) DB 에러: %v", workspaceID, id, err)
		return false, err
	}
	return count > 0, nil
}

// GetGroups는 그룹 목록을 항목 수와 함께 반환합니다.
func (s *Store) GetGroups(workspaceID uint64) ([]ContentGroup, error) {
	groups := make([]ContentGroup, 0)
	query := `
		SELECT
			g.id, g.workspace_id, g.group_name, g.group_type, g.created_id, g.created_at, g.updated_at,
			u.user_name,
			(SELECT COUNT(*) FROM content_group_items AS i WHERE i.group_id = g.id) AS item_count
		FROM content_groups AS g
		JOIN users AS u ON g.created_id = u.id
		WHERE g.workspace_id = ?
		ORDER BY g.group_name ASC
	`
	if err := s.db.Select(&groups, query, workspaceID); err != nil {
		log.Errorf("GetGroups(Workspace: %d) DB 에러: %v", workspaceID, err)
		return nil, err
	}
	return groups, nil
}

// GetGroupByID는 그룹 한 건을 조회합니다. 없으면 sql.ErrNoRows를 그대로 반환합니다.
func (s *Store) GetGroupByID(workspaceID, id uint64) (*ContentGroup, error) {
	var g ContentGroup
	query := `
		SELECT
			g.id, g.workspace_id, g.group_name, g.group_type, g.created_id, g.created_at, g.updated_at,
			u.user_name
		FROM content_groups AS g
		JOIN users AS u ON g.created_id = u.id
		WHERE g.workspace_id = ? AND g.id = ?
	`
	if err := s.db.Get(&g, query, workspaceID, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetItems는 그룹 항목을 순서대로 반환합니다.
func (s *Store) GetItems(groupID uint64) ([]Item, error) {
	items := make([]Item, 0)
	query := `
		SELECT id, group_id, position, item_kind, item_value
		FROM content_group_items
		WHERE group_id = ?
		ORDER BY position ASC
	`
	if err := s.db.Select(&items, query, groupID); err != nil {
		log.Errorf("GetItems(Group: %d) DB 에러: %v", groupID, err)
		return nil, err
	}
	return items, nil
}

// CreateGroup은 그룹과 항목을 하나의 트랜잭션으로 저장합니다.
func (s *Store) CreateGroup(g *ContentGroup, items []Item) (uint64, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO content_groups (workspace_id, group_name, group_type, created_id)
		VALUES (:workspace_id, :group_name, :group_type, :created_id)
	`
	res, err := tx.NamedExec(query, g)
	if err != nil {
		log.Errorf("CreateGroup DB 에러: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertItems(tx, uint64(id), items); err != nil {
		return 0, err
	}
	return uint64(id), tx.Commit()
}

// UpdateGroup은 그룹 정보를 수정하고 항목 전체를 교체합니다.
func (s *Store) UpdateGroup(g *ContentGroup, items []Item) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE content_groups SET group_name = :group_name, group_type = :group_type
		WHERE id = :id AND workspace_id = :workspace_id
	`
	if _, err := tx.NamedExec(query, g); err != nil {
		log.Errorf("UpdateGroup(ID: %d) DB 에러: %v", g.ID, err)
		return err
	}
	if _, err := tx.Exec("DELETE FROM content_group_items WHERE group_id = ?", g.ID); err != nil {
		log.Errorf("UpdateGroup(ID: %d) 항목 삭제 DB 에러: %v", g.ID, err)
		return err
	}
	if err := insertItems(tx, g.ID, items); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(tx *sqlx.Tx, groupID uint64, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].GroupID = groupID
		items[i].Position = i + 1
	}
	query := `
		INSERT INTO content_group_items (group_id, position, item_kind, item_value)
		VALUES (:group_id, :position, :item_kind, :item_value)
	`
	if _, err := tx.NamedExec(query, items); err != nil {
		log.Errorf("insertItems(Group: %d) DB 에러: %v", groupID, err)
		return err
	}
	return nil
}

// DeleteGroup은 그룹을 삭제합니다. 메시지가 참조 중이면 FK 에러(1451)가 반환됩니다.
func (s *Store) DeleteGroup(workspaceID, id uint64) error {
	// 항목은 ON DELETE CASCADE
	if _, err := s.db.Exec("DELETE FROM content_groups WHERE workspace_id = ? AND id = ?", workspaceID, id); err != nil {
		log.Errorf("DeleteGroup(ID: %d) DB 에러: %v", id, err)
		return err
	}
	return nil
}
