package event

import (
	"time"

	"alimflow/internal/message"
)

// OrderStatus는 이벤트를 발생시키는 주문 상태입니다.
type OrderStatus string

const (
	OrderPaymentComplete OrderStatus = "PAYMENT_COMPLETE"
	OrderPreparing       OrderStatus = "PREPARING"
	OrderShipping        OrderStatus = "SHIPPING"
	OrderDelivered       OrderStatus = "DELIVERED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRefunded        OrderStatus = "REFUNDED"
)

// 발송 지연/시각 범위
const (
	MaxDelayDays = 30
	MaxSendHour  = 23
)

// Event는 'events' 테이블의 스키마입니다. (주문 상태 -> 메시지 연결)
type Event struct {
	ID            uint64                 `json:"id" db:"id"`
	WorkspaceID   uint64                 `json:"workspace_id" db:"workspace_id"`
	MessageID     uint64                 `json:"message_id" db:"message_id"`
	MessageTitle  string                 `json:"message_title" db:"message_title"`
	MessageType   message.TemplateType   `json:"message_type" db:"template_type"`
	MessageStatus message.ApprovalStatus `json:"message_status" db:"status"`
	OrderStatus   OrderStatus            `json:"order_status" db:"order_status"`
	DelayDays     int                    `json:"delay_days" db:"delay_days"`
	SendHour      *int                   `json:"send_hour" db:"send_hour"`
	Enabled       bool                   `json:"enabled" db:"enabled"`
	CreatedID     uint64                 `json:"created_id" db:"created_id"`
	CreatedByName string                 `json:"created_by_name" db:"user_name"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" db:"updated_at"`
}

// EventView는 이벤트와 연결 메시지의 발송 가능 여부입니다.
type EventView struct {
	Event
	CanSend bool   `json:"can_send"`
	Notice  string `json:"notice,omitempty"`
}

func newView(e *Event) EventView {
	v := message.ProjectMessage(&message.Message{TemplateType: e.MessageType, Status: e.MessageStatus})
	view := EventView{Event: *e, CanSend: v.CanSend}
	if !v.CanSend {
		view.Notice = "아직 발송할 수 없습니다. " + v.Notice
	}
	return view
}

// EventRequest는 이벤트 생성/수정 요청 본문입니다.
type EventRequest struct {
	MessageID   uint64      `json:"message_id" validate:"required"`
	OrderStatus OrderStatus `json:"order_status" validate:"required,oneof=PAYMENT_COMPLETE PREPARING SHIPPING DELIVERED CANCELLED REFUNDED"`
	DelayDays   int         `json:"delay_days" validate:"min=0,max=30"`
	SendHour    *int        `json:"send_hour" validate:"omitempty,min=0,max=23"`
	Enabled     bool        `json:"enabled"`
}
