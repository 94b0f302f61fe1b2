package alert

import (
	"time"
)

// AlertConfig는 'alert_config' 테이블의 스키마입니다. (워크스페이스당 1건)
type AlertConfig struct {
	ID             uint64    `json:"id" db:"id"`
	WorkspaceID    uint64    `json:"workspace_id" db:"workspace_id"`
	BotName        *string   `json:"bot_name" db:"bot_name"`
	BotToken       *string   `json:"-" db:"bot_token"`
	ChannelID      string    `json:"channel_id" db:"channel_id"`
	NotifyApproved bool      `json:"notify_approved" db:"notify_approved"`
	NotifyRejected bool      `json:"notify_rejected" db:"notify_rejected"`
	Template       *string   `json:"template" db:"attachment_template"`
	CreatedID      uint64    `json:"created_id" db:"created_id"`
	CreatedByName  string    `json:"created_by_name" db:"user_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// HasToken은 봇 토큰 등록 여부입니다. (토큰 값은 응답에 내보내지 않음)
func (c *AlertConfig) HasToken() bool {
	return c.BotToken != nil && *c.BotToken != ""
}

// ConfigRequest는 알림 설정 저장 요청 본문입니다.
// BotToken이 비어 있으면 기존 토큰을 유지합니다.
type ConfigRequest struct {
	BotName        string `json:"bot_name" validate:"max=50"`
	BotToken       string `json:"bot_token" validate:"omitempty,startswith=xoxb-"`
	ChannelID      string `json:"channel_id" validate:"required,alphanum,max=20"`
	NotifyApproved bool   `json:"notify_approved"`
	NotifyRejected bool   `json:"notify_rejected"`
	Template       string `json:"template"`
}
