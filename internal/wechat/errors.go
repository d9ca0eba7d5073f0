package wechat

import (
	"errors"
	"fmt"
)

// ErrNotConfigured はappidまたはsecretが未設定の場合に返される。
var ErrNotConfigured = errors.New("wechat: appid/secret not configured")

// ErrCredentialsRejected はトークン取得時にゲートウェイがappidまたはsecretを拒否した場合に返される。
var ErrCredentialsRejected = errors.New("wechat: appid/secret rejected")

// トークン無効を示すゲートウェイのエラーコード。
const (
	errCodeInvalidCredential = 40001
	errCodeTokenExpired      = 42001
)

// トークン取得で認証情報の不備を示すエラーコード。
// 40164はIPホワイトリスト外からの呼び出し。
var credentialErrCodes = map[int]bool{
	errCodeInvalidCredential: true,
	40013:                    true, // invalid appid
	40125:                    true, // invalid appsecret
	40164:                    true,
	41002:                    true, // appid missing
	41004:                    true, // appsecret missing
}

// TransportError はゲートウェイとの通信そのものが失敗したことを表す。
// ネットワークエラー、非2xxステータス、レスポンスのデコード失敗を含む。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wechat %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GatewayError はゲートウェイが非0のerrcodeを返したことを表す。
type GatewayError struct {
	Op      string
	ErrCode int
	ErrMsg  string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("wechat %s: errcode=%d errmsg=%s", e.Op, e.ErrCode, e.ErrMsg)
}

// Unwrap はトークン取得で認証情報が拒否された場合にErrCredentialsRejectedを返す。
func (e *GatewayError) Unwrap() error {
	if e.Op == "token" && credentialErrCodes[e.ErrCode] {
		return ErrCredentialsRejected
	}
	return nil
}

// tokenRejected はアクセストークンの再取得が必要なエラーかを返す。
func (e *GatewayError) tokenRejected() bool {
	return e.ErrCode == errCodeInvalidCredential || e.ErrCode == errCodeTokenExpired
}

// IsConfigError はerrが設定不備（認証情報の未設定または拒否）に起因するかを返す。
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrCredentialsRejected)
}

// IsTransportError はerrが通信エラーかを返す。
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsGatewayError はerrがゲートウェイのエラー応答かを返す。
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
