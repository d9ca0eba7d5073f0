package reminder

import (
	"context"
	"time"

	"github.com/hitoshi/displaydate/internal/wechat"
)

const (
	// maxNameRunes はメッセージに載せる品名の最大文字数。
	maxNameRunes = 20

	fieldName   = "thing1"
	fieldExpiry = "date3"
)

// 送信失敗の分類。メトリクスのラベルとしても使用する。
const (
	FailureConfig    = "config"
	FailureTransport = "transport"
	FailureGateway   = "gateway"
	FailureUnknown   = "unknown"
)

// Sender は購読メッセージ送信のインターフェース。
// テスト時にモックに差し替え可能。
type Sender interface {
	Send(ctx context.Context, msg wechat.Message) (*wechat.SendResult, error)
}

// MessageConfig はメッセージに付与する固定値。
type MessageConfig struct {
	TemplateID       string
	Page             string
	MiniprogramState string
	Lang             string
}

// Dispatcher は1件の通知対象からメッセージを組み立てて送信する。
// 記録自体は変更しない。
type Dispatcher struct {
	sender Sender
	config MessageConfig
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(sender Sender, config MessageConfig) *Dispatcher {
	return &Dispatcher{sender: sender, config: config}
}

// BuildMessage は品名と期限から購読メッセージを組み立てる。
func BuildMessage(openid, name string, expireAt time.Time, config MessageConfig) wechat.Message {
	return wechat.Message{
		ToUser:     openid,
		TemplateID: config.TemplateID,
		Page:       config.Page,
		Data: map[string]wechat.Value{
			fieldName:   {Value: TruncateName(name)},
			fieldExpiry: {Value: FormatExpiry(expireAt)},
		},
		MiniprogramState: config.MiniprogramState,
		Lang:             config.Lang,
	}
}

// TruncateName は品名を先頭20文字に切り詰める。
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxNameRunes {
		return name
	}
	return string(runes[:maxNameRunes])
}

// Dispatch はitemの所有者宛てに通知を送信する。
func (d *Dispatcher) Dispatch(ctx context.Context, item DueItem) error {
	msg := BuildMessage(item.Candidate.OwnerOpenID, item.Candidate.Name, item.ExpireAt, d.config)
	_, err := d.sender.Send(ctx, msg)
	return err
}

// ClassifyFailure は送信エラーを分類する。
func ClassifyFailure(err error) string {
	switch {
	case wechat.IsConfigError(err):
		return FailureConfig
	case wechat.IsTransportError(err):
		return FailureTransport
	case wechat.IsGatewayError(err):
		return FailureGateway
	default:
		return FailureUnknown
	}
}
