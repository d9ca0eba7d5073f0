package wechat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// defaultTokenTTL はexpires_inが返されなかった場合の有効秒数。
	defaultTokenTTL = 7000
	// tokenRefreshMargin は期限より早めに再取得するための余裕。
	tokenRefreshMargin = 60 * time.Second
)

// tokenCache はプロセス内で共有するアクセストークンのキャッシュ。
// 取得処理中はロックを保持するため、同時に複数の取得リクエストは発生しない。
type tokenCache struct {
	mu       sync.Mutex
	token    string
	expireAt time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

// accessToken は有効なキャッシュがあればそれを返し、なければゲートウェイから取得する。
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.secret == "" {
		return "", ErrNotConfigured
	}

	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()

	now := c.now()
	if c.tokens.token != "" && now.Before(c.tokens.expireAt) {
		return c.tokens.token, nil
	}

	token, expiresIn, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.tokens.token = token
	c.tokens.expireAt = now.Add(time.Duration(expiresIn)*time.Second - tokenRefreshMargin)
	c.logger.Info("アクセストークンを取得しました",
		slog.Time("expire_at", c.tokens.expireAt),
	)
	return token, nil
}

// InvalidateToken はキャッシュ済みのアクセストークンを破棄する。
func (c *Client) InvalidateToken() {
	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()
	c.tokens.token = ""
	c.tokens.expireAt = time.Time{}
}

func (c *Client) fetchToken(ctx context.Context) (string, int, error) {
	reqURL, err := url.Parse(c.baseURL + "/cgi-bin/token")
	if err != nil {
		return "", 0, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("grant_type", "client_credential")
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", 0, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	var result tokenResponse
	if err := c.do(req, "token", &result); err != nil {
		return "", 0, err
	}

	if result.ErrCode != 0 {
		c.logger.Error("アクセストークンの取得に失敗しました",
			slog.Int("errcode", result.ErrCode),
			slog.String("errmsg", result.ErrMsg),
		)
		return "", 0, &GatewayError{Op: "token", ErrCode: result.ErrCode, ErrMsg: result.ErrMsg}
	}
	if result.AccessToken == "" {
		return "", 0, &GatewayError{Op: "token", ErrCode: -1, ErrMsg: "empty access_token"}
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenTTL
	}
	return result.AccessToken, expiresIn, nil
}
