package message

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TemplateType은 메시지 작성 방식입니다.
type TemplateType string

const (
	// QuickStart는 사전 승인된 템플릿을 골라 쓰는 방식입니다. (검수 불필요)
	QuickStart TemplateType = "QUICK_START"
	// FullyCustom은 모든 항목을 직접 작성하고 카카오 검수를 받는 방식입니다.
	FullyCustom TemplateType = "FULLY_CUSTOM"
)

// ApprovalStatus는 카카오 플랫폼의 템플릿 검수 상태입니다.
type ApprovalStatus string

const (
	StatusUploaded ApprovalStatus = "UPLOADED"
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

// ButtonType은 알림톡 버튼 종류입니다.
type ButtonType string

const (
	ButtonChannelAdd     ButtonType = "channel-add"
	ButtonWebLink        ButtonType = "web-link"
	ButtonDeliverySearch ButtonType = "delivery-search"
	ButtonDownload       ButtonType = "download"
)

// Audience는 발송 대상입니다.
type Audience string

const (
	AudienceBuyer    Audience = "BUYER"
	AudienceReceiver Audience = "RECEIVER"
	AudienceCustom   Audience = "CUSTOM"
)

const (
	MaxButtons       = 5
	MaxContentLength = 800
)

// Button은 알림톡 버튼입니다.
type Button struct {
	Name string     `json:"name,omitempty"`
	Type ButtonType `json:"type"`
	URL  string     `json:"url,omitempty"`
}

// Buttons는 'buttons' JSON 컬럼입니다.
type Buttons []Button

// Value는 Buttons를 JSON 문자열로 저장합니다.
func (b Buttons) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan은 JSON 컬럼을 Buttons로 읽습니다.
func (b *Buttons) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*b = Buttons{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("buttons 컬럼 타입을 읽을 수 없습니다: %T", src)
	}
	var out Buttons
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = Buttons{}
	}
	*b = out
	return nil
}

// Message는 'messages' 테이블의 스키마입니다. (템플릿 + 발송 설정)
type Message struct {
	ID                 uint64         `json:"id" db:"id"`
	WorkspaceID        uint64         `json:"workspace_id" db:"workspace_id"`
	Title              string         `json:"title" db:"title"`
	TemplateType       TemplateType   `json:"template_type" db:"template_type"`
	QuickStartID       *uint64        `json:"quick_start_id" db:"quick_start_id"`
	CategoryCode       string         `json:"category_code" db:"category_code"`
	Content            string         `json:"content" db:"content"`
	Extra              *string        `json:"extra" db:"extra"`
	ImageID            *string        `json:"image_id" db:"image_id"`
	ImageURL           *string        `json:"image_url" db:"image_url"`
	Buttons            Buttons        `json:"buttons" db:"buttons"`
	Status             ApprovalStatus `json:"status" db:"status"`
	TemplateCode       *string        `json:"template_code" db:"template_code"`
	RejectReason       *string        `json:"reject_reason" db:"reject_reason"`
	Audience           Audience       `json:"audience" db:"audience"`
	CustomPhone        *string        `json:"custom_phone" db:"custom_phone"`
	CompleteOnDelivery bool           `json:"complete_on_delivery" db:"complete_on_delivery"`
	ContentGroupID     *uint64        `json:"content_group_id" db:"content_group_id"`
	Revision           uint64         `json:"revision" db:"revision"`
	CreatedID          uint64         `json:"created_id" db:"created_id"`
	CreatedByName      string         `json:"created_by_name" db:"user_name"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Fields는 메시지의 콘텐츠 항목만 모은 값입니다.
func (m *Message) Fields() Fields {
	return Fields{
		CategoryCode: m.CategoryCode,
		ImageID:      deref(m.ImageID),
		ImageURL:     deref(m.ImageURL),
		Content:      m.Content,
		Extra:        deref(m.Extra),
		Buttons:      append([]Button(nil), m.Buttons...),
	}
}

// QuickStartTemplate은 'quick_start_templates' 테이블의 스키마입니다. (사전 승인 템플릿)
type QuickStartTemplate struct {
	ID           uint64    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	CategoryCode string    `json:"category_code" db:"category_code"`
	Content      string    `json:"content" db:"content"`
	Extra        *string   `json:"extra" db:"extra"`
	ImageURL     *string   `json:"image_url" db:"image_url"`
	Buttons      Buttons   `json:"buttons" db:"buttons"`
	TemplateCode string    `json:"template_code" db:"template_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Fields는 빠른 시작 템플릿의 (상속될) 콘텐츠 항목입니다.
func (q *QuickStartTemplate) Fields() Fields {
	return Fields{
		CategoryCode: q.CategoryCode,
		ImageURL:     deref(q.ImageURL),
		Content:      q.Content,
		Extra:        deref(q.Extra),
		Buttons:      append([]Button(nil), q.Buttons...),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PendingMessage는 검수 결과를 기다리는 메시지입니다. (스케줄러용)
type PendingMessage struct {
	ID           uint64 `db:"id"`
	WorkspaceID  uint64 `db:"workspace_id"`
	Title        string `db:"title"`
	TemplateCode string `db:"template_code"`
	SenderKey    string `db:"kakao_sender_key"`
}

// StatusChange는 동기화로 바뀐 검수 상태입니다.
type StatusChange struct {
	MessageID    uint64
	WorkspaceID  uint64
	Title        string
	From         ApprovalStatus
	To           ApprovalStatus
	RejectReason string
}
