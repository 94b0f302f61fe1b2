package event

import (
	"database/sql"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
	"alimflow/internal/message"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// Repository는 이벤트 저장소입니다. (*Store가 구현)
type Repository interface {
	GetEvents(workspaceID uint64) ([]Event, error)
	GetEventByID(workspaceID, id uint64) (*Event, error)
	CreateEvent(e *Event) (uint64, error)
	UpdateEvent(e *Event) error
	DeleteEvent(workspaceID, id uint64) error
}

// Messages는 이벤트에 연결할 메시지 조회용입니다. (*message.Store가 구현)
type Messages interface {
	GetMessageByID(workspaceID, id uint64) (*message.Message, error)
}

// Service는 'event' 기능의 비즈니스 로직을 담당합니다.
type Service struct {
	store    Repository
	messages Messages
}

// NewService는 새 Service를 생성합니다.
func NewService(store Repository, messages Messages) *Service {
	return &Service{store: store, messages: messages}
}

// GetEvents는 이벤트 목록을 발송 가능 여부와 함께 반환합니다.
func (s *Service) GetEvents(workspaceID uint64) ([]EventView, error) {
	events, err := s.store.GetEvents(workspaceID)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for i := range events {
		views = append(views, newView(&events[i]))
	}
	return views, nil
}

// GetEvent는 이벤트 한 건을 반환합니다.
func (s *Service) GetEvent(workspaceID, id uint64) (*EventView, error) {
	e, err := s.getEvent(workspaceID, id)
	if err != nil {
		return nil, err
	}
	view := newView(e)
	return &view, nil
}

func (s *Service) getEvent(workspaceID, id uint64) (*Event, error) {
	e, err := s.store.GetEventByID(workspaceID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("이벤트(ID: %d)를 찾을 수 없습니다.", id)
		}
		return nil, err
	}
	return e, nil
}

// CreateEvent는 이벤트를 생성합니다.
// 연결 메시지가 아직 승인 전이어도 저장되며, 응답의 can_send로 알립니다.
func (s *Service) CreateEvent(workspaceID, userID uint64, req EventRequest) (*EventView, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.checkMessage(workspaceID, req.MessageID); err != nil {
		return nil, err
	}

	e := &Event{
		WorkspaceID: workspaceID,
		MessageID:   req.MessageID,
		OrderStatus: req.OrderStatus,
		DelayDays:   req.DelayDays,
		SendHour:    req.SendHour,
		Enabled:     req.Enabled,
		CreatedID:   userID,
	}
	id, err := s.store.CreateEvent(e)
	if err != nil {
		return nil, translateSaveError(err)
	}
	log.Infof("이벤트 생성 (Workspace: %d, ID: %d, %s -> 메시지 %d)", workspaceID, id, e.OrderStatus, e.MessageID)
	return s.GetEvent(workspaceID, id)
}

// UpdateEvent는 이벤트를 수정합니다. (관리자 또는 작성자만)
func (s *Service) UpdateEvent(workspaceID, id, userID uint64, userRole string, req EventRequest) (*EventView, error) {
	current, err := s.getEvent(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if userRole != "ADMIN" && current.CreatedID != userID {
		return nil, apperr.Forbidden("권한 없음: 자신이 생성한 이벤트만 수정할 수 있습니다.")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.checkMessage(workspaceID, req.MessageID); err != nil {
		return nil, err
	}

	current.MessageID = req.MessageID
	current.OrderStatus = req.OrderStatus
	current.DelayDays = req.DelayDays
	current.SendHour = req.SendHour
	current.Enabled = req.Enabled
	if err := s.store.UpdateEvent(current); err != nil {
		return nil, translateSaveError(err)
	}
	return s.GetEvent(workspaceID, id)
}

// DeleteEvent는 이벤트를 삭제합니다. (관리자 또는 작성자만)
func (s *Service) DeleteEvent(workspaceID, id, userID uint64, userRole string) error {
	current, err := s.getEvent(workspaceID, id)
	if err != nil {
		return err
	}
	if userRole != "ADMIN" && current.CreatedID != userID {
		return apperr.Forbidden("권한 없음: 자신이 생성한 이벤트만 삭제할 수 있습니다.")
	}
	if err := s.store.DeleteEvent(workspaceID, id); err != nil {
		return err
	}
	log.Infof("이벤트 삭제 (Workspace: %d, ID: %d)", workspaceID, id)
	return nil
}

// checkMessage는 메시지가 같은 워크스페이스에 있는지 확인합니다.
func (s *Service) checkMessage(workspaceID, messageID uint64) error {
	if _, err := s.messages.GetMessageByID(workspaceID, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Invalid("message_id", "이 워크스페이스의 메시지가 아닙니다. (ID: %d)", messageID)
		}
		return err
	}
	return nil
}

func validateRequest(req *EventRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid(fe.Field(), "입력값이 올바르지 않습니다: %s (%s)", fe.Field(), fe.Tag())
		}
		return apperr.New(apperr.ErrInvalidInput, "입력값이 올바르지 않습니다: %v", err)
	}
	return nil
}

func translateSaveError(err error) error {
	if apperr.IsMySQL(err, apperr.MySQLDuplicateEntry) {
		return apperr.New(apperr.ErrDuplicateEntry, "같은 주문 상태에 이미 연결된 메시지입니다.")
	}
	return err
}
