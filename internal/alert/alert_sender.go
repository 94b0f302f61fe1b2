package alert

import (
	"fmt"

	slacknotificator "github.com/sizzlei/slack-notificator"
	"github.com/slack-go/slack"
)

// Sender는 Slack 발송 창구입니다.
type Sender interface {
	SendToChannel(token, channelID, text string, attachment slack.Attachment) error
	SendToUser(token, email, text string, attachment slack.Attachment) error
}

// SlackSender는 slack-notificator로 발송합니다.
type SlackSender struct{}

// NewSlackSender는 새 SlackSender를 생성합니다.
func NewSlackSender() *SlackSender {
	return &SlackSender{}
}

// SendToChannel은 채널에 첨부 메시지를 보냅니다.
func (SlackSender) SendToChannel(token, channelID, text string, attachment slack.Attachment) error {
	api := slacknotificator.GetClient(token)
	return api.SetChannel(channelID).SendAttachment(text, attachment)
}

// SendToUser는 이메일로 사용자를 찾아 DM을 보냅니다.
func (SlackSender) SendToUser(token, email, text string, attachment slack.Attachment) error {
	api := slacknotificator.GetClient(token)
	memberID, err := api.GetMemberId(email)
	if err != nil {
		return fmt.Errorf("Slack 사용자(%s) ID 조회 실패: %v", email, err)
	}
	if err := api.CreateDMChannel(*memberID); err != nil {
		return fmt.Errorf("DM 채널(%s) 생성 실패: %v", email, err)
	}
	return api.SendAttachment(text, attachment)
}
