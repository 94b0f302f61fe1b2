package contentgroup

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"alimflow/internal/apperr"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// Repository는 콘텐츠 그룹 저장소입니다. (*Store가 구현)
type Repository interface {
	GetGroups(workspaceID uint64) ([]ContentGroup, error)
	GetGroupByID(workspaceID, id uint64) (*ContentGroup, error)
	GetItems(groupID uint64) ([]Item, error)
	CreateGroup(g *ContentGroup, items []Item) (uint64, error)
	UpdateGroup(g *ContentGroup, items []Item) error
	DeleteGroup(workspaceID, id uint64) error
}

// Service는 'contentgroup' 기능의 비즈니스 로직을 담당합니다.
type Service struct {
	store Repository
}

// NewService는 새 Service를 생성합니다.
func NewService(store Repository) *Service {
	return &Service{store: store}
}

// GetGroups는 그룹 목록을 반환합니다. (항목 제외)
func (s *Service) GetGroups(workspaceID uint64) ([]ContentGroup, error) {
	return s.store.GetGroups(workspaceID)
}

// GetGroup은 그룹과 항목을 병렬로 조회합니다.
func (s *Service) GetGroup(workspaceID, id uint64) (*ContentGroup, error) {
	var group *ContentGroup
	var items []Item
	var eg errgroup.Group

	eg.Go(func() error {
		g, err := s.store.GetGroupByID(workspaceID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("콘텐츠 그룹(ID: %d)을 찾을 수 없습니다.", id)
			}
			return err
		}
		group = g
		return nil
	})
	eg.Go(func() error {
		list, err := s.store.GetItems(id)
		if err != nil {
			return err
		}
		items = list
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	group.Items = items
	group.ItemCount = len(items)
	return group, nil
}

// CreateGroup은 콘텐츠 그룹을 생성합니다.
func (s *Service) CreateGroup(workspaceID, userID uint64, req GroupRequest) (*ContentGroup, error) {
	items, err := buildItems(&req)
	if err != nil {
		return nil, err
	}
	g := &ContentGroup{
		WorkspaceID: workspaceID,
		GroupName:   strings.TrimSpace(req.GroupName),
		GroupType:   req.GroupType,
		CreatedID:   userID,
	}
	id, err := s.store.CreateGroup(g, items)
	if err != nil {
		return nil, translateSaveError(err, g.GroupName)
	}
	log.Infof("콘텐츠 그룹 생성 (Workspace: %d, ID: %d, 항목 %d개)", workspaceID, id, len(items))
	return s.GetGroup(workspaceID, id)
}

// UpdateGroup은 그룹을 수정하고 항목을 통째로 교체합니다. (관리자 또는 작성자만)
func (s *Service) UpdateGroup(workspaceID, id, userID uint64, userRole string, req GroupRequest) (*ContentGroup, error) {
	current, err := s.GetGroup(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if userRole != "ADMIN" && current.CreatedID != userID {
		return nil, apperr.Forbidden("권한 없음: 자신이 생성한 콘텐츠 그룹만 수정할 수 있습니다.")
	}
	items, err := buildItems(&req)
	if err != nil {
		return nil, err
	}

	current.GroupName = strings.TrimSpace(req.GroupName)
	current.GroupType = req.GroupType
	if err := s.store.UpdateGroup(current, items); err != nil {
		return nil, translateSaveError(err, current.GroupName)
	}
	return s.GetGroup(workspaceID, id)
}

// DeleteGroup은 그룹을 삭제합니다. 메시지가 연결된 그룹은 삭제할 수 없습니다.
func (s *Service) DeleteGroup(workspaceID, id, userID uint64, userRole string) error {
	current, err := s.GetGroup(workspaceID, id)
	if err != nil {
		return err
	}
	if userRole != "ADMIN" && current.CreatedID != userID {
		return apperr.Forbidden("권한 없음: 자신이 생성한 콘텐츠 그룹만 삭제할 수 있습니다.")
	}
	if err := s.store.DeleteGroup(workspaceID, id); err != nil {
		if apperr.IsMySQL(err, apperr.MySQLForeignKeyFail) {
			return apperr.New(apperr.ErrConflict, "삭제 실패: 이 콘텐츠 그룹을 사용 중인 '메시지'가 있습니다.")
		}
		return err
	}
	log.Infof("콘텐츠 그룹 삭제 (Workspace: %d, ID: %d)", workspaceID, id)
	return nil
}

// buildItems는 요청을 검증하고 저장할 항목 목록을 만듭니다.
func buildItems(req *GroupRequest) ([]Item, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, apperr.Invalid(fe.Field(), "입력값이 올바르지 않습니다: %s (%s)", fe.Namespace(), fe.Tag())
		}
		return nil, apperr.New(apperr.ErrInvalidInput, "입력값이 올바르지 않습니다: %v", err)
	}

	items := make([]Item, 0, len(req.Items))
	for i, in := range req.Items {
		value := strings.TrimSpace(in.Value)
		if in.Kind == KindURL {
			if err := validate.Var(value, "url"); err != nil {
				return nil, apperr.Invalid(fmt.Sprintf("items[%d].value", i), "URL 항목은 전체 주소(https://...)여야 합니다: %s", value)
			}
		}
		items = append(items, Item{ItemKind: in.Kind, ItemValue: value})
	}
	return items, nil
}

func translateSaveError(err error, name string) error {
	if apperr.IsMySQL(err, apperr.MySQLDuplicateEntry) {
		return apperr.New(apperr.ErrDuplicateEntry, "이미 존재하는 콘텐츠 그룹명입니다: %s", name)
	}
	return err
}
