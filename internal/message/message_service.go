package message

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
	"alimflow/internal/category"
	"alimflow/internal/kakao"
	"alimflow/internal/variable"
	"alimflow/internal/workspace"
)

// DownloadLinkKey는 다운로드 버튼 링크 자리에 들어가는 변수입니다. (발송 시 콘텐츠 그룹 링크로 치환)
const DownloadLinkKey = "다운로드링크"

// 이미지 업로드 제한
const MaxImageSize = 500 * 1024

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Repository는 메시지 저장소입니다. (*Store가 구현)
type Repository interface {
	GetMessages(workspaceID uint64) ([]Message, error)
	GetMessageByID(workspaceID, id uint64) (*Message, error)
	CreateMessage(m *Message) (uint64, error)
	UpdateMessage(m *Message) (bool, error)
	UpdateStatus(id uint64, status ApprovalStatus, templateCode, rejectReason *string) error
	DeleteMessage(workspaceID, id uint64) error
	GetPendingMessages(limit int) ([]PendingMessage, error)
	GetQuickStartTemplates() ([]QuickStartTemplate, error)
	GetQuickStartTemplate(id uint64) (*QuickStartTemplate, error)
}

// Platform은 카카오 템플릿 API입니다. (*kakao.Client가 구현)
type Platform interface {
	ListCategories(ctx context.Context, senderKey string) ([]category.Category, error)
	UploadImage(ctx context.Context, senderKey, filename string, data []byte, progress kakao.ProgressFunc) (*kakao.Image, error)
	RequestInspection(ctx context.Context, senderKey string, tpl kakao.TemplateRequest) (*kakao.TemplateStatus, error)
	CancelInspection(ctx context.Context, senderKey, templateCode string) error
	GetTemplateStatus(ctx context.Context, senderKey, templateCode string) (*kakao.TemplateStatus, error)
}

// Workspaces는 워크스페이스 조회용입니다.
type Workspaces interface {
	GetWorkspace(id uint64) (*workspace.Workspace, error)
}

// Variables는 워크스페이스 변수 목록 조회용입니다.
type Variables interface {
	GetVariables(workspaceID uint64) ([]variable.Variable, error)
}

// ContentGroups는 콘텐츠 그룹 존재 확인용입니다.
type ContentGroups interface {
	GroupExists(workspaceID, id uint64) (bool, error)
}

// Service는 'message' 기능의 비즈니스 로직을 담당합니다.
type Service struct {
	store      Repository
	platform   Platform
	workspaces Workspaces
	variables  Variables
	groups     ContentGroups
}

// NewService는 새 Service를 생성합니다.
func NewService(store Repository, platform Platform, workspaces Workspaces, variables Variables, groups ContentGroups) *Service {
	return &Service{
		store:      store,
		platform:   platform,
		workspaces: workspaces,
		variables:  variables,
		groups:     groups,
	}
}

// MessageView는 메시지와 투영된 검수 상태입니다.
type MessageView struct {
	Message
	View StatusView `json:"status_view"`
}

func newView(m *Message) *MessageView {
	return &MessageView{Message: *m, View: ProjectMessage(m)}
}

// SaveResult는 저장 결과입니다.
// 저장 후 검수 요청이 실패하면 저장은 유지되고 InspectionError에 사유가 담깁니다.
type SaveResult struct {
	Message         *MessageView `json:"message"`
	InspectionError string       `json:"inspection_error,omitempty"`
}

// UploadFile은 업로드할 이미지 파일입니다.
type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadResult는 파일별 업로드 결과입니다.
type UploadResult struct {
	Filename string `json:"filename"`
	ImageID  string `json:"image_id,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GetMessages는 메시지 목록을 상태 투영과 함께 반환합니다.
func (s *Service) GetMessages(workspaceID uint64) ([]MessageView, error) {
	messages, err := s.store.GetMessages(workspaceID)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, *newView(&messages[i]))
	}
	return views, nil
}

// GetMessage는 메시지 1개를 상태 투영과 함께 반환합니다.
func (s *Service) GetMessage(workspaceID, id uint64) (*MessageView, error) {
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return newView(m), nil
}

func (s *Service) getMessage(workspaceID, id uint64) (*Message, error) {
	m, err := s.store.GetMessageByID(workspaceID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("메시지(ID: %d)를 찾을 수 없습니다.", id)
		}
		return nil, err
	}
	return m, nil
}

// GetQuickStartTemplates는 빠른 시작 템플릿 목록을 반환합니다.
func (s *Service) GetQuickStartTemplates() ([]QuickStartTemplate, error) {
	return s.store.GetQuickStartTemplates()
}

func (s *Service) quickStart(id uint64) (*QuickStartTemplate, error) {
	qs, err := s.store.GetQuickStartTemplate(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Invalid("quick_start_id", "빠른 시작 템플릿(ID: %d)을 찾을 수 없습니다.", id)
		}
		return nil, err
	}
	return qs, nil
}

// applyRequest는 요청 값을 폼 상태 머신에 순서대로 적용합니다.
// 읽기 전용 상태면 콘텐츠 항목이 바뀌지 않은 경우만 통과합니다.
func (s *Service) applyRequest(state *FormState, req *MessageRequest, strict bool) error {
	if state.ReadOnly() {
		if req.TemplateType != state.Type() || !sameFields(state.Form().Fields(), req.customFields()) {
			return errReadOnly()
		}
		return nil
	}

	if err := state.SwitchType(req.TemplateType); err != nil {
		return err
	}

	switch req.TemplateType {
	case QuickStart:
		if req.QuickStartID == 0 {
			if strict {
				return apperr.Invalid("quick_start_id", "빠른 시작 템플릿을 선택하세요.")
			}
			return nil
		}
		qs, err := s.quickStart(req.QuickStartID)
		if err != nil {
			return err
		}
		if err := state.SelectQuickStart(qs); err != nil {
			return err
		}
		return state.SetProductInfo(req.ProductInfo)

	case FullyCustom:
		if err := state.SetCategory(req.CategoryCode); err != nil {
			return err
		}
		if err := state.SetImage(req.ImageID, req.ImageURL); err != nil {
			return err
		}
		if err := state.SetContent(req.Content); err != nil {
			return err
		}
		if err := state.SetExtra(req.Extra); err != nil {
			return err
		}
		for _, b := range req.Buttons {
			if err := state.AddButton(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) validateContentGroup(workspaceID uint64, req *MessageRequest, f Fields) error {
	if hasButtonType(f.Buttons, ButtonDownload) && req.ContentGroupID == nil {
		return apperr.Invalid("content_group_id", "다운로드 버튼을 사용하려면 콘텐츠 그룹을 연결하세요.")
	}
	if req.ContentGroupID == nil {
		return nil
	}
	ok, err := s.groups.GroupExists(workspaceID, *req.ContentGroupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("content_group_id", "콘텐츠 그룹(ID: %d)을 찾을 수 없습니다.", *req.ContentGroupID)
	}
	return nil
}

func initialStatus(t TemplateType) ApprovalStatus {
	if t == QuickStart {
		return StatusApproved
	}
	return StatusUploaded
}

func applyForm(m *Message, state *FormState) {
	f := state.Form().Fields()
	m.TemplateType = state.Type()
	m.CategoryCode = f.CategoryCode
	m.Content = f.Content
	m.Extra = optional(f.Extra)
	m.ImageID = optional(f.ImageID)
	m.ImageURL = optional(f.ImageURL)
	m.Buttons = Buttons(f.Buttons)
	if m.Buttons == nil {
		m.Buttons = Buttons{}
	}
	m.QuickStartID = nil
	if qs, ok := state.Form().(*QuickStartForm); ok {
		id := qs.QuickStartID
		m.QuickStartID = &id
	}
}

func applyDelivery(m *Message, req *MessageRequest) {
	m.Title = strings.TrimSpace(req.Title)
	m.Audience = req.Audience
	m.CustomPhone = nil
	if req.Audience == AudienceCustom {
		m.CustomPhone = optional(req.CustomPhone)
	}
	m.CompleteOnDelivery = req.CompleteOnDelivery
	m.ContentGroupID = req.ContentGroupID
}

func translateSaveError(err error, title string) error {
	if apperr.IsMySQL(err, apperr.MySQLDuplicateEntry) {
		return apperr.New(apperr.ErrDuplicateEntry, "이미 존재하는 메시지 제목입니다: %s", title)
	}
	return err
}

// CreateMessage는 메시지를 저장하고, 요청된 경우 저장 후 검수를 요청합니다.
func (s *Service) CreateMessage(ctx context.Context, workspaceID, userID uint64, req MessageRequest, inspection bool) (*SaveResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	state, err := NewFormState(req.TemplateType)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(state, &req, true); err != nil {
		return nil, err
	}
	if inspection {
		if err := state.SetRequestInspection(true); err != nil {
			return nil, err
		}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateContentGroup(workspaceID, &req, state.Form().Fields()); err != nil {
		return nil, err
	}

	m := &Message{WorkspaceID: workspaceID, CreatedID: userID, Status: initialStatus(state.Type())}
	applyForm(m, state)
	applyDelivery(m, &req)

	id, err := s.store.CreateMessage(m)
	if err != nil {
		log.Errorf("CreateMessage 서비스 에러: %v", err)
		return nil, translateSaveError(err, m.Title)
	}
	log.Infof("메시지 생성 (Workspace: %d, ID: %d, Type: %s)", workspaceID, id, m.TemplateType)

	return s.finishSave(ctx, workspaceID, id, state.RequestsInspection())
}

// UpdateMessage는 메시지를 수정합니다.
// req.Revision이 현재 revision과 다르면 CONFLICT입니다.
func (s *Service) UpdateMessage(ctx context.Context, workspaceID, id uint64, req MessageRequest, inspection bool) (*SaveResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if req.Revision != m.Revision {
		return nil, apperr.New(apperr.ErrConflict, "다른 사용자가 먼저 수정했습니다. 새로고침 후 다시 시도해 주세요.")
	}

	var qs *QuickStartTemplate
	if m.TemplateType == QuickStart && m.QuickStartID != nil {
		if qs, err = s.quickStart(*m.QuickStartID); err != nil {
			return nil, err
		}
	}
	state := EditFormState(m, qs)
	if err := s.applyRequest(state, &req, true); err != nil {
		return nil, err
	}
	if inspection {
		if err := state.SetRequestInspection(true); err != nil {
			return nil, err
		}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateContentGroup(workspaceID, &req, state.Form().Fields()); err != nil {
		return nil, err
	}

	prevType := m.TemplateType
	applyForm(m, state)
	applyDelivery(m, &req)
	if m.TemplateType != prevType {
		m.Status = initialStatus(m.TemplateType)
	}

	ok, err := s.store.UpdateMessage(m)
	if err != nil {
		log.Errorf("UpdateMessage 서비스 에러: %v", err)
		return nil, translateSaveError(err, m.Title)
	}
	if !ok {
		return nil, apperr.New(apperr.ErrConflict, "다른 사용자가 먼저 수정했습니다. 새로고침 후 다시 시도해 주세요.")
	}

	return s.finishSave(ctx, workspaceID, id, state.RequestsInspection())
}

func (s *Service) finishSave(ctx context.Context, workspaceID, id uint64, inspection bool) (*SaveResult, error) {
	result := &SaveResult{}
	if inspection {
		if err := s.RequestInspection(ctx, workspaceID, id); err != nil {
			log.Warnf("저장 후 검수 요청 실패 (ID: %d): %v", id, err)
			result.InspectionError = err.Error()
		}
	}
	view, err := s.GetMessage(workspaceID, id)
	if err != nil {
		return nil, err
	}
	result.Message = view
	return result, nil
}

// DeleteMessage는 권한을 확인한 뒤 메시지를 삭제합니다. 검수 중이면 삭제할 수 없습니다.
func (s *Service) DeleteMessage(workspaceID, id, userID uint64, userRole string) error {
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return err
	}
	if userRole != "ADMIN" && m.CreatedID != userID {
		return apperr.Forbidden("권한 없음: 자신이 작성한 메시지만 삭제할 수 있습니다.")
	}
	if m.TemplateType == FullyCustom && m.Status == StatusPending {
		return apperr.New(apperr.ErrConflict, "검수 중인 템플릿은 삭제할 수 없습니다. 검수를 취소한 뒤 삭제하세요.")
	}

	if err := s.store.DeleteMessage(workspaceID, id); err != nil {
		if apperr.IsMySQL(err, apperr.MySQLForeignKeyFail) {
			return apperr.New(apperr.ErrConflict, "삭제 실패: 이 메시지를 사용 중인 '이벤트'가 있습니다.")
		}
		return err
	}
	log.Infof("메시지 삭제 (Workspace: %d, ID: %d)", workspaceID, id)
	return nil
}

func (s *Service) senderKey(workspaceID uint64) (string, error) {
	ws, err := s.workspaces.GetWorkspace(workspaceID)
	if err != nil {
		return "", err
	}
	return ws.SenderKey()
}

// newTemplateCode는 플랫폼에 등록할 템플릿 코드를 만듭니다.
func newTemplateCode() string {
	return "AF" + strings.ReplaceAll(uuid.NewString(), "-", "")[:18]
}

// platformButtons는 버튼을 플랫폼 링크 타입으로 변환합니다.
func platformButtons(buttons []Button) []kakao.Button {
	out := make([]kakao.Button, 0, len(buttons))
	for _, b := range buttons {
		switch b.Type {
		case ButtonChannelAdd:
			name := b.Name
			if name == "" {
				name = DefaultChannelAddName
			}
			out = append(out, kakao.Button{Name: name, LinkType: kakao.LinkChannelAdd})
		case ButtonWebLink:
			out = append(out, kakao.Button{Name: b.Name, LinkType: kakao.LinkWeb, LinkMo: b.URL, LinkPc: b.URL})
		case ButtonDeliverySearch:
			out = append(out, kakao.Button{Name: b.Name, LinkType: kakao.LinkDeliverySearch})
		case ButtonDownload:
			link := b.URL
			if link == "" {
				link = variable.Token(DownloadLinkKey)
			}
			out = append(out, kakao.Button{Name: b.Name, LinkType: kakao.LinkWeb, LinkMo: link, LinkPc: link})
		}
	}
	return out
}

// statusFromInspection은 플랫폼 검수 코드를 검수 상태로 바꿉니다.
func statusFromInspection(code string) (ApprovalStatus, bool) {
	switch code {
	case kakao.InspectionRegistered:
		return StatusUploaded, true
	case kakao.InspectionRequested:
		return StatusPending, true
	case kakao.InspectionApproved:
		return StatusApproved, true
	case kakao.InspectionRejected:
		return StatusRejected, true
	}
	return "", false
}

// RequestInspection은 직접 작성 템플릿을 플랫폼에 등록하고 검수를 요청합니다.
func (s *Service) RequestInspection(ctx context.Context, workspaceID, id uint64) error {
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return err
	}
	if m.TemplateType != FullyCustom {
		return apperr.Invalid("template_type", "빠른 시작 템플릿은 검수가 필요하지 않습니다.")
	}
	if !ProjectStatus(m.Status).Allows(ActionSubmitInspection) {
		return apperr.New(apperr.ErrConflict, "현재 상태(%s)에서는 검수를 요청할 수 없습니다.", m.Status)
	}
	if err := validateContent(m.Content); err != nil {
		return err
	}
	if err := ValidateButtons(m.Buttons); err != nil {
		return err
	}

	sk, err := s.senderKey(workspaceID)
	if err != nil {
		return err
	}
	code := deref(m.TemplateCode)
	if code == "" {
		code = newTemplateCode()
	}

	st, err := s.platform.RequestInspection(ctx, sk, kakao.TemplateRequest{
		TemplateCode:     code,
		TemplateName:     m.Title,
		TemplateContent:  m.Content,
		TemplateExtra:    deref(m.Extra),
		CategoryCode:     m.CategoryCode,
		TemplateImageURL: deref(m.ImageURL),
		Buttons:          platformButtons(m.Buttons),
	})
	if err != nil {
		return err
	}

	// 요청 직후 REG가 오더라도 검수 중으로 봅니다.
	status, ok := statusFromInspection(st.InspectionStatus)
	if !ok || status == StatusUploaded {
		status = StatusPending
	}
	if err := s.store.UpdateStatus(m.ID, status, &code, nil); err != nil {
		return err
	}
	log.Infof("검수 요청 (Workspace: %d, ID: %d, Code: %s)", workspaceID, id, code)
	return nil
}

// CancelInspection은 검수 요청을 취소합니다. 취소된 템플릿은 REJECTED가 되어 다시 수정할 수 있습니다.
func (s *Service) CancelInspection(ctx context.Context, workspaceID, id uint64) error {
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return err
	}
	if m.TemplateType != FullyCustom || !ProjectStatus(m.Status).Allows(ActionCancelInspection) {
		return apperr.New(apperr.ErrConflict, "검수 중인 템플릿만 취소할 수 있습니다.")
	}
	if m.TemplateCode == nil {
		return apperr.New(apperr.ErrConflict, "플랫폼 템플릿 코드가 없습니다.")
	}

	sk, err := s.senderKey(workspaceID)
	if err != nil {
		return err
	}
	if err := s.platform.CancelInspection(ctx, sk, *m.TemplateCode); err != nil {
		return err
	}
	if err := s.store.UpdateStatus(m.ID, StatusRejected, nil, nil); err != nil {
		return err
	}
	log.Infof("검수 취소 (Workspace: %d, ID: %d)", workspaceID, id)
	return nil
}

// GetCategoryTree는 워크스페이스 발신 프로필의 카테고리 트리를 반환합니다.
func (s *Service) GetCategoryTree(ctx context.Context, workspaceID uint64) ([]*category.Node, error) {
	sk, err := s.senderKey(workspaceID)
	if err != nil {
		return nil, err
	}
	categories, err := s.platform.ListCategories(ctx, sk)
	if err != nil {
		return nil, err
	}
	return category.BuildTree(categories), nil
}

// UploadImages는 이미지를 파일별로 업로드합니다. 파일 하나의 실패는 결과에만 기록됩니다.
func (s *Service) UploadImages(ctx context.Context, workspaceID uint64, files []UploadFile) ([]UploadResult, error) {
	sk, err := s.senderKey(workspaceID)
	if err != nil {
		return nil, err
	}

	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		r := UploadResult{Filename: f.Filename}
		ext := strings.ToLower(filepath.Ext(f.Filename))
		switch {
		case !imageExtensions[ext]:
			r.Error = "jpg, png 파일만 업로드할 수 있습니다."
		case len(f.Data) == 0:
			r.Error = "빈 파일입니다."
		case len(f.Data) > MaxImageSize:
			r.Error = "이미지는 500KB 이하만 업로드할 수 있습니다."
		default:
			img, err := s.platform.UploadImage(ctx, sk, uuid.NewString()+ext, f.Data, nil)
			if err != nil {
				log.Warnf("이미지 업로드 실패 (%s): %v", f.Filename, err)
				r.Error = err.Error()
			} else {
				r.ImageID, r.ImageURL = img.Name, img.URL
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// GetVariables는 본문에 넣을 수 있는 변수 목록을 반환합니다.
func (s *Service) GetVariables(workspaceID uint64) ([]variable.Variable, error) {
	return s.variables.GetVariables(workspaceID)
}

func (s *Service) labels(workspaceID uint64) (map[string]string, error) {
	vars, err := s.variables.GetVariables(workspaceID)
	if err != nil {
		return nil, err
	}
	return variable.Labels(vars), nil
}

// PreviewForm은 저장하지 않은 폼의 미리보기를 만듭니다.
func (s *Service) PreviewForm(workspaceID uint64, req MessageRequest) (*Preview, error) {
	if req.TemplateType == "" {
		req.TemplateType = FullyCustom
	}
	state, err := NewFormState(req.TemplateType)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(state, &req, false); err != nil {
		return nil, err
	}
	labels, err := s.labels(workspaceID)
	if err != nil {
		return nil, err
	}
	p := RenderPreview(state.Form().Fields(), labels)
	return &p, nil
}

// PreviewMessage는 저장된 메시지의 미리보기를 만듭니다.
func (s *Service) PreviewMessage(workspaceID, id uint64) (*MessageView, *Preview, error) {
	m, err := s.getMessage(workspaceID, id)
	if err != nil {
		return nil, nil, err
	}
	labels, err := s.labels(workspaceID)
	if err != nil {
		return nil, nil, err
	}
	p := RenderPreview(m.Fields(), labels)
	return newView(m), &p, nil
}

// GetPendingMessages는 검수 결과를 기다리는 메시지를 반환합니다.
func (s *Service) GetPendingMessages(limit int) ([]PendingMessage, error) {
	return s.store.GetPendingMessages(limit)
}

// SyncStatus는 플랫폼의 검수 결과를 조회해 바뀌었으면 반영합니다.
// 아직 검수 중이면 nil을 반환합니다.
func (s *Service) SyncStatus(ctx context.Context, p PendingMessage) (*StatusChange, error) {
	st, err := s.platform.GetTemplateStatus(ctx, p.SenderKey, p.TemplateCode)
	if err != nil {
		return nil, err
	}
	to, ok := statusFromInspection(st.InspectionStatus)
	if !ok || to == StatusPending {
		return nil, nil
	}

	change := &StatusChange{
		MessageID:   p.ID,
		WorkspaceID: p.WorkspaceID,
		Title:       p.Title,
		From:        StatusPending,
		To:          to,
	}
	var reason *string
	if to == StatusRejected {
		change.RejectReason = st.RejectReason()
		reason = optional(change.RejectReason)
	}
	if err := s.store.UpdateStatus(p.ID, to, nil, reason); err != nil {
		return nil, err
	}
	return change, nil
}
