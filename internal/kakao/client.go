package kakao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"alimflow/internal/apperr"
	"alimflow/internal/category"
)

// 플랫폼 검수 상태 코드
const (
	InspectionRegistered = "REG"
	InspectionRequested  = "REQ"
	InspectionApproved   = "APR"
	InspectionRejected   = "REJ"
)

// 플랫폼 버튼 링크 타입
const (
	LinkChannelAdd     = "AC"
	LinkWeb            = "WL"
	LinkDeliverySearch = "DS"
)

// Button은 플랫폼 템플릿 버튼입니다.
type Button struct {
	Name     string `json:"name"`
	LinkType string `json:"linkType"`
	LinkMo   string `json:"linkMo,omitempty"`
	LinkPc   string `json:"linkPc,omitempty"`
}

// TemplateRequest는 템플릿 등록 + 검수 요청 본문입니다.
type TemplateRequest struct {
	TemplateCode     string   `json:"templateCode"`
	TemplateName     string   `json:"templateName"`
	TemplateContent  string   `json:"templateContent"`
	TemplateExtra    string   `json:"templateExtra,omitempty"`
	CategoryCode     string   `json:"categoryCode"`
	TemplateImageURL string   `json:"templateImageUrl,omitempty"`
	Buttons          []Button `json:"buttons"`
}

// TemplateStatus는 플랫폼에 등록된 템플릿의 검수 상태입니다.
type TemplateStatus struct {
	TemplateCode     string `json:"templateCode"`
	InspectionStatus string `json:"inspectionStatus"`
	Comments         []struct {
		Content string `json:"content"`
	} `json:"comments"`
}

// RejectReason은 가장 최근 반려 사유를 반환합니다.
func (s *TemplateStatus) RejectReason() string {
	if len(s.Comments) == 0 {
		return ""
	}
	return s.Comments[len(s.Comments)-1].Content
}

// Image는 업로드된 템플릿 이미지입니다.
type Image struct {
	Name string `json:"imageName"`
	URL  string `json:"imageUrl"`
}

// ProgressFunc는 업로드 진행률 콜백입니다. (sent, total 바이트)
type ProgressFunc func(sent, total int64)

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client는 카카오 비즈메시지 API 클라이언트입니다.
type Client struct {
	baseURL string
	tokens  TokenProvider
	http    *http.Client
}

// NewClient는 새 Client를 생성합니다.
func NewClient(baseURL string, tokens TokenProvider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
	}
}

// bodyFunc는 재전송을 위해 요청 본문을 매번 새로 만듭니다.
type bodyFunc func() (io.Reader, string)

func jsonBody(v interface{}) (bodyFunc, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return func() (io.Reader, string) {
		return bytes.NewReader(data), "application/json"
	}, nil
}

// do는 요청을 보내고 응답의 data를 out에 디코딩합니다.
// 401을 받으면 토큰을 한 번 갱신하고 한 번만 다시 보냅니다.
func (c *Client) do(ctx context.Context, method, path string, body bodyFunc, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return apperr.New(apperr.ErrUnauthorized, "카카오 API 토큰을 가져오지 못했습니다: %v", err)
	}

	status, raw, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		log.Warnf("[Kakao] 401 응답, 토큰 갱신 후 재시도합니다. (%s %s)", method, path)
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return apperr.New(apperr.ErrUnauthorized, "카카오 API 토큰 갱신 실패: %v", err)
		}
		status, raw, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return apperr.New(apperr.ErrUnauthorized, "카카오 API 인증에 실패했습니다.")
		}
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && status < 400 {
			return apperr.New(apperr.ErrExternal, "카카오 API 응답 파싱 실패: %v", err)
		}
	}
	if status >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		log.Errorf("[Kakao] API 에러 (%s %s): %d %s", method, path, status, msg)
		return apperr.New(apperr.ErrExternal, "카카오 API 오류(%d): %s", status, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.New(apperr.ErrExternal, "카카오 API 데이터 파싱 실패: %v", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body bodyFunc, token string) (int, []byte, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		reader, contentType = body()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, apperr.New(apperr.ErrExternal, "카카오 API 호출 실패: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperr.New(apperr.ErrExternal, "카카오 API 응답 읽기 실패: %v", err)
	}
	return resp.StatusCode, raw, nil
}

// ListCategories는 발신 프로필의 메시지 카테고리 전체 목록을 조회합니다.
func (c *Client) ListCategories(ctx context.Context, senderKey string) ([]category.Category, error) {
	var out []category.Category
	path := fmt.Sprintf("/v2/%s/template/category/all", url.PathEscape(senderKey))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []category.Category{}
	}
	return out, nil
}

// UploadImage는 템플릿 이미지를 업로드합니다.
func (c *Client) UploadImage(ctx context.Context, senderKey, filename string, data []byte, progress ProgressFunc) (*Image, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := buf.Bytes()
	contentType := writer.FormDataContentType()

	body := func() (io.Reader, string) {
		var r io.Reader = bytes.NewReader(payload)
		if progress != nil {
			r = &progressReader{r: r, total: int64(len(payload)), progress: progress}
		}
		return r, contentType
	}

	var img Image
	path := fmt.Sprintf("/v2/%s/image/alimtalk/template", url.PathEscape(senderKey))
	if err := c.do(ctx, http.MethodPost, path, body, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// RequestInspection은 템플릿을 등록(또는 갱신)하고 검수를 요청합니다.
func (c *Client) RequestInspection(ctx context.Context, senderKey string, tpl TemplateRequest) (*TemplateStatus, error) {
	body, err := jsonBody(tpl)
	if err != nil {
		return nil, err
	}
	var st TemplateStatus
	path := fmt.Sprintf("/v2/%s/template/request", url.PathEscape(senderKey))
	if err := c.do(ctx, http.MethodPost, path, body, &st); err != nil {
		return nil, err
	}
	if st.TemplateCode == "" {
		st.TemplateCode = tpl.TemplateCode
	}
	return &st, nil
}

// CancelInspection은 진행 중인 검수 요청을 취소합니다.
func (c *Client) CancelInspection(ctx context.Context, senderKey, templateCode string) error {
	body, err := jsonBody(map[string]string{"templateCode": templateCode})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v2/%s/template/cancel_request", url.PathEscape(senderKey))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// GetTemplateStatus는 템플릿의 현재 검수 상태를 조회합니다.
func (c *Client) GetTemplateStatus(ctx context.Context, senderKey, templateCode string) (*TemplateStatus, error) {
	var st TemplateStatus
	path := fmt.Sprintf("/v2/%s/template?templateCode=%s", url.PathEscape(senderKey), url.QueryEscape(templateCode))
	if err := c.do(ctx, http.MethodGet, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

type progressReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.progress(p.sent, p.total)
	}
	return n, err
}
