package alert

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	slacknotificator "github.com/sizzlei/slack-notificator"
	"github.com/slack-go/slack"

	"alimflow/internal/apperr"
	"alimflow/internal/message"
)

const (
	colorApproved = "#2eb886"
	colorRejected = "#e01e5a"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// Repository는 알림 설정 저장소입니다. (*Store가 구현)
type Repository interface {
	GetConfig(workspaceID uint64) (*AlertConfig, error)
	SaveConfig(cfg *AlertConfig) error
	DeleteConfig(workspaceID uint64) error
}

// Service는 'alert' 기능의 비즈니스 로직을 담당합니다.
type Service struct {
	store  Repository
	sender Sender
	now    func() time.Time
}

// NewService는 새 Service를 생성합니다.
func NewService(store Repository, sender Sender) *Service {
	return &Service{store: store, sender: sender, now: time.Now}
}

// GetConfig는 워크스페이스의 알림 설정을 반환합니다.
func (s *Service) GetConfig(workspaceID uint64) (*AlertConfig, error) {
	cfg, err := s.store.GetConfig(workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("알림 설정이 없습니다.")
		}
		return nil, err
	}
	return cfg, nil
}

// SaveConfig는 알림 설정을 저장합니다. (관리자 또는 등록자만 수정)
func (s *Service) SaveConfig(workspaceID, userID uint64, userRole string, req ConfigRequest) (*AlertConfig, error) {
	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, apperr.Invalid(fe.Field(), "입력값이 올바르지 않습니다: %s (%s)", fe.Field(), fe.Tag())
		}
		return nil, apperr.New(apperr.ErrInvalidInput, "입력값이 올바르지 않습니다: %v", err)
	}
	if req.Template != "" {
		if _, err := renderTemplate(req.Template, sampleChange()); err != nil {
			return nil, apperr.Invalid("template", "첨부 템플릿 JSON이 올바르지 않습니다: %v", err)
		}
	}

	cfg := &AlertConfig{WorkspaceID: workspaceID, CreatedID: userID}
	current, err := s.store.GetConfig(workspaceID)
	switch {
	case err == nil:
		if userRole != "ADMIN" && current.CreatedID != userID {
			return nil, apperr.Forbidden("권한 없음: 자신이 등록한 알림 설정만 수정할 수 있습니다.")
		}
		cfg = current
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	cfg.BotName = optional(req.BotName)
	if req.BotToken != "" {
		cfg.BotToken = &req.BotToken
	}
	if !cfg.HasToken() {
		return nil, apperr.Invalid("bot_token", "봇 토큰을 입력하세요.")
	}
	cfg.ChannelID = req.ChannelID
	cfg.NotifyApproved = req.NotifyApproved
	cfg.NotifyRejected = req.NotifyRejected
	cfg.Template = optional(req.Template)

	if err := s.store.SaveConfig(cfg); err != nil {
		return nil, err
	}
	log.Infof("알림 설정 저장 (Workspace: %d, 채널: %s)", workspaceID, cfg.ChannelID)
	return s.GetConfig(workspaceID)
}

// DeleteConfig는 알림 설정을 삭제합니다. (관리자 또는 등록자만)
func (s *Service) DeleteConfig(workspaceID, userID uint64, userRole string) error {
	current, err := s.GetConfig(workspaceID)
	if err != nil {
		return err
	}
	if userRole != "ADMIN" && current.CreatedID != userID {
		return apperr.Forbidden("권한 없음: 자신이 등록한 알림 설정만 삭제할 수 있습니다.")
	}
	return s.store.DeleteConfig(workspaceID)
}

// Notify는 검수 결과를 워크스페이스 채널에 알립니다.
// 설정이 없거나 해당 결과의 알림이 꺼져 있으면 아무것도 하지 않습니다.
func (s *Service) Notify(change message.StatusChange) error {
	cfg, err := s.store.GetConfig(change.WorkspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if !wants(cfg, change.To) || !cfg.HasToken() {
		return nil
	}

	text, attachment, err := s.build(cfg, change)
	if err != nil {
		return err
	}
	if err := s.sender.SendToChannel(*cfg.BotToken, cfg.ChannelID, text, attachment); err != nil {
		log.Errorf("[Alert] 메시지(ID: %d) -> 채널(%s) 발송 실패: %v", change.MessageID, cfg.ChannelID, err)
		return apperr.New(apperr.ErrExternal, "Slack 발송 실패: %v", err)
	}
	log.Infof("[Alert] 메시지(ID: %d) -> 채널(%s) 발송 성공", change.MessageID, cfg.ChannelID)
	return nil
}

// SendTest는 요청한 사용자에게 샘플 알림을 DM으로 보냅니다.
func (s *Service) SendTest(workspaceID uint64, userEmail string) error {
	cfg, err := s.GetConfig(workspaceID)
	if err != nil {
		return err
	}
	if !cfg.HasToken() {
		return apperr.Invalid("bot_token", "봇 토큰이 등록되지 않았습니다.")
	}

	change := sampleChange()
	change.WorkspaceID = workspaceID
	text, attachment, err := s.build(cfg, change)
	if err != nil {
		return err
	}
	if err := s.sender.SendToUser(*cfg.BotToken, userEmail, text, attachment); err != nil {
		log.Errorf("[Alert] 테스트 DM(%s) 발송 실패: %v", userEmail, err)
		return apperr.New(apperr.ErrExternal, "Slack 테스트 발송 실패: %v", err)
	}
	return nil
}

func wants(cfg *AlertConfig, to message.ApprovalStatus) bool {
	switch to {
	case message.StatusApproved:
		return cfg.NotifyApproved
	case message.StatusRejected:
		return cfg.NotifyRejected
	default:
		return false
	}
}

// build는 알림 문구와 첨부를 만듭니다. 템플릿이 있으면 템플릿을 씁니다.
func (s *Service) build(cfg *AlertConfig, change message.StatusChange) (string, slack.Attachment, error) {
	text := notificationText(change)
	if cfg.Template != nil && *cfg.Template != "" {
		attachment, err := renderTemplate(*cfg.Template, change)
		if err != nil {
			return "", attachment, fmt.Errorf("워크스페이스(ID: %d) 첨부 템플릿 변환 실패: %v", cfg.WorkspaceID, err)
		}
		return text, attachment, nil
	}
	return text, s.defaultAttachment(change), nil
}

func notificationText(change message.StatusChange) string {
	if change.To == message.StatusApproved {
		return fmt.Sprintf("[알림톡 검수] '%s' 템플릿이 승인되었습니다.", change.Title)
	}
	return fmt.Sprintf("[알림톡 검수] '%s' 템플릿이 반려되었습니다.", change.Title)
}

func (s *Service) defaultAttachment(change message.StatusChange) slack.Attachment {
	color := colorApproved
	if change.To == message.StatusRejected {
		color = colorRejected
	}
	fields := []slack.AttachmentField{
		{
			Title: "상태",
			Value: fmt.Sprintf("%s → %s", message.ProjectStatus(change.From).Label, message.ProjectStatus(change.To).Label),
			Short: true,
		},
		{Title: "메시지 ID", Value: strconv.FormatUint(change.MessageID, 10), Short: true},
	}
	if change.RejectReason != "" {
		fields = append(fields, slack.AttachmentField{Title: "반려 사유", Value: change.RejectReason})
	}
	return slack.Attachment{
		Color:  color,
		Title:  change.Title,
		Fields: fields,
		Footer: "alimflow",
		Ts:     json.Number(strconv.FormatInt(s.now().Unix(), 10)),
	}
}

// renderTemplate은 <title>, <status>, <reason>, <message_id> 자리표시자를 채워 첨부로 변환합니다.
func renderTemplate(tpl string, change message.StatusChange) (slack.Attachment, error) {
	values := map[string]string{
		"title":      change.Title,
		"status":     message.ProjectStatus(change.To).Label,
		"reason":     change.RejectReason,
		"message_id": strconv.FormatUint(change.MessageID, 10),
	}
	out := tpl
	for key, value := range values {
		value = strings.ReplaceAll(value, "\r\n", "\n")
		escaped, err := json.Marshal(value)
		if err != nil {
			return slack.Attachment{}, err
		}
		// 앞뒤 따옴표 제거
		out = strings.ReplaceAll(out, "<"+key+">", string(escaped[1:len(escaped)-1]))
	}
	if !json.Valid([]byte(out)) {
		return slack.Attachment{}, errors.New("JSON 형식이 아닙니다")
	}
	return slacknotificator.CreateAttachement(out)
}

func sampleChange() message.StatusChange {
	return message.StatusChange{
		MessageID:    0,
		Title:        "테스트 템플릿",
		From:         message.StatusPending,
		To:           message.StatusRejected,
		RejectReason: "테스트 발송입니다.",
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
