// Package wechat はミニプログラムの購読メッセージ送信ゲートウェイのクライアントを提供する。
// アクセストークンの取得とキャッシュ、購読メッセージの送信を含む。
package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultBaseURL はゲートウェイAPIのベースURL。
const defaultBaseURL = "https://api.weixin.qq.com"

// Value は購読メッセージのテンプレート変数1つ分の値。
type Value struct {
	Value string `json:"value"`
}

// Message は購読メッセージの送信内容。
type Message struct {
	ToUser           string           `json:"touser"`
	TemplateID       string           `json:"template_id"`
	Page             string           `json:"page,omitempty"`
	Data             map[string]Value `json:"data"`
	MiniprogramState string           `json:"miniprogram_state"`
	Lang             string           `json:"lang"`
}

// SendResult はゲートウェイの送信結果。
type SendResult struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MsgID   int64  `json:"msgid,omitempty"`
}

// Client はゲートウェイAPIのクライアント。
// アクセストークンはClient単位でキャッシュされる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	appID      string
	secret     string
	baseURL    string
	now        func() time.Time
	tokens     tokenCache
}

// NewClient はClientの新しいインスタンスを生成する。
// appIDまたはsecretが空でも生成は成功し、送信時にErrNotConfiguredを返す。
func NewClient(httpClient *http.Client, logger *slog.Logger, appID, secret string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		appID:      appID,
		secret:     secret,
		baseURL:    defaultBaseURL,
		now:        time.Now,
	}
}

// WithBaseURL はAPIの接続先を差し替える。末尾のスラッシュは除く。
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Configured は認証情報が設定されているかを返す。
func (c *Client) Configured() bool {
	return c.appID != "" && c.secret != ""
}

// Send は購読メッセージを送信する。
// トークン無効（40001/42001）の応答を受けた場合はキャッシュを破棄した上でエラーを返す。
// 再送は呼び出し元の判断に任せる。
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if msg.ToUser == "" || msg.TemplateID == "" {
		return nil, fmt.Errorf("touser and template_id are required")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL, err := url.Parse(c.baseURL + "/cgi-bin/message/subscribe/send")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("access_token", token)
	reqURL.RawQuery = q.Encode()

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result SendResult
	if err := c.do(req, "send", &result); err != nil {
		return nil, err
	}

	if result.ErrCode != 0 {
		gwErr := &GatewayError{Op: "send", ErrCode: result.ErrCode, ErrMsg: result.ErrMsg}
		if gwErr.tokenRejected() {
			c.InvalidateToken()
		}
		c.logger.Error("購読メッセージの送信に失敗しました",
			slog.String("touser", msg.ToUser),
			slog.Int("errcode", result.ErrCode),
			slog.String("errmsg", result.ErrMsg),
		)
		return nil, gwErr
	}

	return &result, nil
}

// do はリクエストを実行し、2xxレスポンスのJSONボディをoutにデコードする。
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ゲートウェイAPIの呼び出しに失敗しました",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("ゲートウェイAPIがエラーステータスを返しました",
			slog.String("op", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)}
	}
	return nil
}
