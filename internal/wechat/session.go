package wechat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Session はログインコードの交換結果。
type Session struct {
	OpenID  string `json:"openid"`
	UnionID string `json:"unionid,omitempty"`
}

type sessionResponse struct {
	Session
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Code2Session はミニプログラムのログインコードをopenidに交換する。
// session_keyは保持しない。
func (c *Client) Code2Session(ctx context.Context, code string) (*Session, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if code == "" {
		return nil, fmt.Errorf("js_code is required")
	}

	reqURL, err := url.Parse(c.baseURL + "/sns/jscode2session")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	var result sessionResponse
	if err := c.do(req, "code2session", &result); err != nil {
		return nil, err
	}
	if result.ErrCode != 0 {
		c.logger.Warn("ログインコードの交換に失敗しました",
			slog.Int("errcode", result.ErrCode),
			slog.String("errmsg", result.ErrMsg),
		)
		return nil, &GatewayError{Op: "code2session", ErrCode: result.ErrCode, ErrMsg: result.ErrMsg}
	}
	if result.OpenID == "" {
		return nil, &GatewayError{Op: "code2session", ErrCode: -1, ErrMsg: "empty openid"}
	}

	return &result.Session, nil
}
