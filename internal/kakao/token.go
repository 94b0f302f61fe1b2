package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TokenProvider는 카카오 API 호출용 bearer 토큰을 제공합니다.
// Refresh는 401 응답을 받았을 때 한 번 호출됩니다.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken은 고정 토큰입니다. (테스트/로컬용)
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error)   { return string(t), nil }
func (t StaticToken) Refresh(context.Context) (string, error) { return string(t), nil }

// ClientCredentials는 client_credentials 방식으로 토큰을 발급/갱신합니다.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClientCredentials는 새 토큰 공급자를 생성합니다.
func NewClientCredentials(baseURL, clientID, clientSecret string, httpClient *http.Client) *ClientCredentials {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClientCredentials{
		tokenURL:     strings.TrimRight(baseURL, "/") + "/v2/oauth/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         httpClient,
	}
}

// Token은 캐시된 토큰을 반환하고, 없거나 만료되었으면 새로 발급합니다.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.expires) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh는 토큰을 새로 발급받습니다. 동시에 여러 번 호출되어도 합치지 않습니다.
func (c *ClientCredentials) Refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("토큰 발급 요청 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("토큰 발급 실패: %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("토큰 응답 파싱 실패: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("토큰 응답에 access_token이 없습니다")
	}

	// 만료 30초 전부터는 새 토큰을 받습니다.
	ttl := time.Duration(body.ExpiresIn)*time.Second - 30*time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	c.mu.Lock()
	c.token = body.AccessToken
	c.expires = time.Now().Add(ttl)
	c.mu.Unlock()

	log.Info("[Kakao] API 토큰을 새로 발급받았습니다.")
	return body.AccessToken, nil
}
