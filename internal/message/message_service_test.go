package message

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alimflow/internal/apperr"
	"alimflow/internal/category"
	"alimflow/internal/kakao"
	"alimflow/internal/variable"
	"alimflow/internal/workspace"
)

// fakeRepo는 메모리 Repository입니다.
type fakeRepo struct {
	mu          sync.Mutex
	nextID      uint64
	messages    map[uint64]*Message
	quickStarts map[uint64]*QuickStartTemplate
	deleteErr   error
}

func newFakeRepo() *fakeRepo {
	qs := sampleQuickStart()
	return &fakeRepo{
		messages:    make(map[uint64]*Message),
		quickStarts: map[uint64]*QuickStartTemplate{qs.ID: qs},
	}
}

func (r *fakeRepo) GetMessages(workspaceID uint64) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, 0)
	for _, m := range r.messages {
		if m.WorkspaceID == workspaceID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetMessageByID(workspaceID, id uint64) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.WorkspaceID != workspaceID {
		return nil, sql.ErrNoRows
	}
	cp := *m
	cp.Buttons = append(Buttons{}, m.Buttons...)
	return &cp, nil
}

func (r *fakeRepo) CreateMessage(m *Message) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.messages {
		if existing.WorkspaceID == m.WorkspaceID && existing.Title == m.Title {
			return 0, &mysql.MySQLError{Number: apperr.MySQLDuplicateEntry, Message: "Duplicate entry"}
		}
	}
	r.nextID++
	cp := *m
	cp.ID = r.nextID
	cp.Revision = 1
	r.messages[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeRepo) UpdateMessage(m *Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.messages[m.ID]
	if !ok || existing.WorkspaceID != m.WorkspaceID || existing.Revision != m.Revision {
		return false, nil
	}
	cp := *m
	cp.Status = m.Status
	cp.TemplateCode = existing.TemplateCode
	cp.Revision = existing.Revision + 1
	r.messages[m.ID] = &cp
	return true, nil
}

func (r *fakeRepo) UpdateStatus(id uint64, status ApprovalStatus, templateCode, rejectReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.Status = status
	if templateCode != nil {
		m.TemplateCode = templateCode
	}
	m.RejectReason = rejectReason
	m.Revision++
	return nil
}

func (r *fakeRepo) DeleteMessage(workspaceID, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeRepo) GetPendingMessages(limit int) ([]PendingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingMessage, 0)
	for _, m := range r.messages {
		if m.Status == StatusPending && m.TemplateCode != nil && len(out) < limit {
			out = append(out, PendingMessage{ID: m.ID, WorkspaceID: m.WorkspaceID, Title: m.Title, TemplateCode: *m.TemplateCode, SenderKey: "sender-1"})
		}
	}
	return out, nil
}

func (r *fakeRepo) GetQuickStartTemplates() ([]QuickStartTemplate, error) {
	out := make([]QuickStartTemplate, 0)
	for _, q := range r.quickStarts {
		out = append(out, *q)
	}
	return out, nil
}

func (r *fakeRepo) GetQuickStartTemplate(id uint64) (*QuickStartTemplate, error) {
	q, ok := r.quickStarts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return q, nil
}

// fakePlatform은 카카오 API 대역입니다.
type fakePlatform struct {
	requested  []kakao.TemplateRequest
	cancelled  []string
	requestErr error
	status     map[string]*kakao.TemplateStatus
	uploads    []string
}

func (p *fakePlatform) ListCategories(ctx context.Context, senderKey string) ([]category.Category, error) {
	return []category.Category{
		{Code: "001001", Name: "배송,주문,배송조회"},
		{Code: "001002", Name: "배송,주문,배송완료"},
	}, nil
}

func (p *fakePlatform) UploadImage(ctx context.Context, senderKey, filename string, data []byte, progress kakao.ProgressFunc) (*kakao.Image, error) {
	p.uploads = append(p.uploads, filename)
	return &kakao.Image{Name: "img-" + filename, URL: "https://cdn.example.com/" + filename}, nil
}

func (p *fakePlatform) RequestInspection(ctx context.Context, senderKey string, tpl kakao.TemplateRequest) (*kakao.TemplateStatus, error) {
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	p.requested = append(p.requested, tpl)
	return &kakao.TemplateStatus{TemplateCode: tpl.TemplateCode, InspectionStatus: kakao.InspectionRequested}, nil
}

func (p *fakePlatform) CancelInspection(ctx context.Context, senderKey, templateCode string) error {
	p.cancelled = append(p.cancelled, templateCode)
	return nil
}

func (p *fakePlatform) GetTemplateStatus(ctx context.Context, senderKey, templateCode string) (*kakao.TemplateStatus, error) {
	if st, ok := p.status[templateCode]; ok {
		return st, nil
	}
	return &kakao.TemplateStatus{TemplateCode: templateCode, InspectionStatus: kakao.InspectionRequested}, nil
}

type fakeWorkspaces struct{}

func (fakeWorkspaces) GetWorkspace(id uint64) (*workspace.Workspace, error) {
	key := "sender-1"
	return &workspace.Workspace{ID: id, WorkspaceName: "테스트", KakaoSenderKey: &key}, nil
}

type fakeVariables struct{}

func (fakeVariables) GetVariables(workspaceID uint64) ([]variable.Variable, error) {
	return []variable.Variable{{Key: "고객명", Label: "홍길동"}}, nil
}

type fakeGroups map[uint64]bool

func (g fakeGroups) GroupExists(workspaceID, id uint64) (bool, error) {
	return g[id], nil
}

func newTestService() (*Service, *fakeRepo, *fakePlatform) {
	repo := newFakeRepo()
	platform := &fakePlatform{status: map[string]*kakao.TemplateStatus{}}
	return NewService(repo, platform, fakeWorkspaces{}, fakeVariables{}, fakeGroups{3: true}), repo, platform
}

func customRequest() MessageRequest {
	return MessageRequest{
		Title:        "배송 시작",
		TemplateType: FullyCustom,
		CategoryCode: "001001",
		Content:      "#{고객명}님, 상품이 출발했습니다.",
		Buttons: []Button{
			{Name: "배송 조회", Type: ButtonDeliverySearch},
			{Type: ButtonChannelAdd},
		},
		Audience: AudienceBuyer,
	}
}

func TestCreateCustomMessage(t *testing.T) {
	svc, repo, platform := newTestService()

	result, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	require.NoError(t, err)

	m := result.Message
	assert.Equal(t, StatusUploaded, m.Status)
	assert.Equal(t, uint64(10), m.CreatedID)
	require.Len(t, m.Buttons, 2)
	assert.Equal(t, ButtonChannelAdd, m.Buttons[0].Type)
	assert.True(t, m.View.Allows(ActionSubmitInspection))
	assert.Empty(t, result.InspectionError)
	assert.Empty(t, platform.requested)
	assert.Len(t, repo.messages, 1)
}

func TestCreateWithInspection(t *testing.T) {
	svc, _, platform := newTestService()

	result, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), true)
	require.NoError(t, err)

	assert.Empty(t, result.InspectionError)
	assert.Equal(t, StatusPending, result.Message.Status)
	require.NotNil(t, result.Message.TemplateCode)
	assert.Len(t, *result.Message.TemplateCode, 20)

	require.Len(t, platform.requested, 1)
	req := platform.requested[0]
	assert.Equal(t, "배송 시작", req.TemplateName)
	require.Len(t, req.Buttons, 2)
	assert.Equal(t, kakao.LinkChannelAdd, req.Buttons[0].LinkType)
	assert.Equal(t, kakao.LinkDeliverySearch, req.Buttons[1].LinkType)
}

func TestCreateInspectionFailureKeepsSave(t *testing.T) {
	svc, repo, platform := newTestService()
	platform.requestErr = apperr.New(apperr.ErrExternal, "카카오 API 오류(500): down")

	result, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), true)
	require.NoError(t, err)

	assert.Contains(t, result.InspectionError, "down")
	assert.Equal(t, StatusUploaded, result.Message.Status)
	assert.Len(t, repo.messages, 1)
}

func TestCreateQuickStartMessage(t *testing.T) {
	svc, _, _ := newTestService()

	result, err := svc.CreateMessage(context.Background(), 1, 10, MessageRequest{
		Title:        "빠른 시작",
		TemplateType: QuickStart,
		QuickStartID: 7,
		ProductInfo:  "무선 이어폰",
		Audience:     AudienceReceiver,
	}, false)
	require.NoError(t, err)

	m := result.Message
	assert.Equal(t, StatusApproved, m.Status)
	require.NotNil(t, m.QuickStartID)
	assert.Equal(t, uint64(7), *m.QuickStartID)
	assert.Equal(t, "#{고객명}님, 주문하신 상품이 출발했습니다.\n무선 이어폰", m.Content)
	assert.True(t, m.View.CanSend)
}

func TestCreateValidation(t *testing.T) {
	svc, repo, _ := newTestService()

	tests := []struct {
		name  string
		edit  func(r *MessageRequest)
		field string
	}{
		{"title required", func(r *MessageRequest) { r.Title = "" }, "title"},
		{"unknown audience", func(r *MessageRequest) { r.Audience = "ALL" }, "audience"},
		{"custom audience needs phone", func(r *MessageRequest) { r.Audience = AudienceCustom }, "custom_phone"},
		{"bad phone", func(r *MessageRequest) { r.Audience = AudienceCustom; r.CustomPhone = "12345" }, "custom_phone"},
		{"download needs content group", func(r *MessageRequest) {
			r.Buttons = []Button{{Name: "받기", Type: ButtonDownload}}
		}, "content_group_id"},
		{"unknown content group", func(r *MessageRequest) {
			id := uint64(99)
			r.ContentGroupID = &id
		}, "content_group_id"},
		{"invalid button", func(r *MessageRequest) {
			r.Buttons = []Button{{Name: "홈", Type: ButtonWebLink, URL: "not a url"}}
		}, "buttons.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := customRequest()
			tt.edit(&req)
			_, err := svc.CreateMessage(context.Background(), 1, 10, req, false)

			var appErr *apperr.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
	assert.Empty(t, repo.messages)
}

func TestCreateDuplicateTitle(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	require.NoError(t, err)

	_, err = svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)
}

func TestUpdateStaleRevisionConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	require.NoError(t, err)
	id := created.Message.ID

	req := customRequest()
	req.Revision = created.Message.Revision
	req.Content = "수정된 본문"
	updated, err := svc.UpdateMessage(context.Background(), 1, id, req, false)
	require.NoError(t, err)
	assert.Equal(t, "수정된 본문", updated.Message.Content)
	assert.Equal(t, created.Message.Revision+1, updated.Message.Revision)

	// 같은 revision으로 한 번 더 저장하면 충돌입니다.
	req.Content = "늦게 도착한 수정"
	_, err = svc.UpdateMessage(context.Background(), 1, id, req, false)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdatePendingIsReadOnly(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), true)
	require.NoError(t, err)
	m := created.Message
	require.Equal(t, StatusPending, m.Status)

	req := customRequest()
	req.Revision = m.Revision
	req.Buttons = m.Buttons
	req.Content = "바뀐 본문"
	_, err = svc.UpdateMessage(context.Background(), 1, m.ID, req, false)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// 콘텐츠가 같으면 발송 설정은 바꿀 수 있습니다.
	req.Content = m.Content
	req.Audience = AudienceReceiver
	updated, err := svc.UpdateMessage(context.Background(), 1, m.ID, req, false)
	require.NoError(t, err)
	assert.Equal(t, AudienceReceiver, updated.Message.Audience)
	assert.Equal(t, StatusPending, updated.Message.Status)
}

func TestUpdateSwitchTypeResetsStatus(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	require.NoError(t, err)

	req := MessageRequest{
		Title:        "빠른 시작으로 변경",
		TemplateType: QuickStart,
		QuickStartID: 7,
		Audience:     AudienceBuyer,
		Revision:     created.Message.Revision,
	}
	updated, err := svc.UpdateMessage(context.Background(), 1, created.Message.ID, req, false)
	require.NoError(t, err)
	assert.Equal(t, QuickStart, updated.Message.TemplateType)
	assert.Equal(t, StatusApproved, updated.Message.Status)
	assert.Equal(t, Buttons{{Name: "배송 조회", Type: ButtonDeliverySearch}}, updated.Message.Buttons)
}

func TestDeleteRules(t *testing.T) {
	svc, repo, _ := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), true)
	require.NoError(t, err)
	id := created.Message.ID

	assert.ErrorIs(t, svc.DeleteMessage(1, id, 11, "USERS"), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteMessage(1, id, 10, "USERS"), apperr.ErrConflict)

	require.NoError(t, svc.CancelInspection(context.Background(), 1, id))
	repo.deleteErr = &mysql.MySQLError{Number: apperr.MySQLForeignKeyFail}
	assert.ErrorIs(t, svc.DeleteMessage(1, id, 10, "USERS"), apperr.ErrConflict)

	repo.deleteErr = nil
	require.NoError(t, svc.DeleteMessage(1, id, 99, "ADMIN"))
	_, err = svc.GetMessage(1, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInspectionTransitions(t *testing.T) {
	svc, _, platform := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), false)
	require.NoError(t, err)
	id := created.Message.ID

	assert.ErrorIs(t, svc.CancelInspection(context.Background(), 1, id), apperr.ErrConflict)

	require.NoError(t, svc.RequestInspection(context.Background(), 1, id))
	assert.ErrorIs(t, svc.RequestInspection(context.Background(), 1, id), apperr.ErrConflict)

	pending, err := svc.GetMessage(1, id)
	require.NoError(t, err)
	code := *pending.TemplateCode

	require.NoError(t, svc.CancelInspection(context.Background(), 1, id))
	assert.Equal(t, []string{code}, platform.cancelled)

	cancelled, err := svc.GetMessage(1, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, cancelled.Status)
	assert.True(t, cancelled.View.Editable)

	// 다시 요청해도 같은 템플릿 코드를 씁니다.
	require.NoError(t, svc.RequestInspection(context.Background(), 1, id))
	assert.Equal(t, code, platform.requested[len(platform.requested)-1].TemplateCode)
}

func TestQuickStartNeedsNoInspection(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, MessageRequest{
		Title: "빠른 시작", TemplateType: QuickStart, QuickStartID: 7, Audience: AudienceBuyer,
	}, false)
	require.NoError(t, err)

	err = svc.RequestInspection(context.Background(), 1, created.Message.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSyncStatus(t *testing.T) {
	svc, _, platform := newTestService()
	created, err := svc.CreateMessage(context.Background(), 1, 10, customRequest(), true)
	require.NoError(t, err)
	code := *created.Message.TemplateCode

	pending, err := svc.GetPendingMessages(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	change, err := svc.SyncStatus(context.Background(), pending[0])
	require.NoError(t, err)
	assert.Nil(t, change)

	platform.status[code] = &kakao.TemplateStatus{
		TemplateCode:     code,
		InspectionStatus: kakao.InspectionRejected,
		Comments: []struct {
			Content string `json:"content"`
		}{{Content: "변수 형식 오류"}},
	}
	change, err = svc.SyncStatus(context.Background(), pending[0])
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, StatusRejected, change.To)
	assert.Equal(t, "변수 형식 오류", change.RejectReason)

	m, err := svc.GetMessage(1, created.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, m.Status)
	require.NotNil(t, m.RejectReason)
	assert.Equal(t, "변수 형식 오류", *m.RejectReason)
}

func TestGetCategoryTree(t *testing.T) {
	svc, _, _ := newTestService()
	tree, err := svc.GetCategoryTree(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, tree, 1)
	assert.Equal(t, "배송", tree[0].Label)
	require.Len(t, tree[0].Children, 1)
	assert.Len(t, tree[0].Children[0].Children, 2)
}

func TestUploadImagesReportsPerFile(t *testing.T) {
	svc, _, platform := newTestService()
	results, err := svc.UploadImages(context.Background(), 1, []UploadFile{
		{Filename: "banner.PNG", Data: []byte("png")},
		{Filename: "doc.pdf", Data: []byte("pdf")},
		{Filename: "big.jpg", Data: make([]byte, MaxImageSize+1)},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[0].ImageURL)
	assert.NotEmpty(t, results[1].Error)
	assert.NotEmpty(t, results[2].Error)
	require.Len(t, platform.uploads, 1)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, platform.uploads[0])
}

func TestPreviewForm(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.PreviewForm(1, MessageRequest{
		TemplateType: FullyCustom,
		Content:      "안녕하세요 #{고객명}님 #{unknown}",
	})
	require.NoError(t, err)
	require.Len(t, p.Body, 3)
	assert.Equal(t, "홍길동", p.Body[1].Label)
	assert.Equal(t, "님 #{unknown}", p.Body[2].Text)
}

func TestPlatformButtonsDownloadLink(t *testing.T) {
	got := platformButtons([]Button{{Name: "받기", Type: ButtonDownload}})
	require.Len(t, got, 1)
	assert.Equal(t, kakao.LinkWeb, got[0].LinkType)
	assert.Equal(t, "#{다운로드링크}", got[0].LinkMo)
}
